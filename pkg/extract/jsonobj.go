package extract

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cast"
)

// orderedObject is a decoded JSON object that remembers its key order
type orderedObject struct {
	keys   []string
	values map[string]interface{}
}

// decodeOrderedObject reads one JSON object from r, keeping key order.
// Nested values are decoded with json.Number preserved.
func decodeOrderedObject(r io.Reader) (*orderedObject, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	obj := &orderedObject{values: make(map[string]interface{})}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected object key, got %v", tok)
		}

		var value interface{}
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("failed to decode %q: %w", key, err)
		}

		if _, seen := obj.values[key]; !seen {
			obj.keys = append(obj.keys, key)
		}
		obj.values[key] = jsonScalar(value)
	}

	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

// jsonScalar turns json.Number into int64 or float64
func jsonScalar(v interface{}) interface{} {
	n, ok := v.(json.Number)
	if !ok {
		return v
	}
	if i, err := n.Int64(); err == nil {
		return i
	}
	if f, err := cast.ToFloat64E(string(n)); err == nil {
		return f
	}
	return string(n)
}
