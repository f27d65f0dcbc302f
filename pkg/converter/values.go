// pkg/converter/values.go
package converter

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// ConvertValueForPostgres converts a cleaned value to the Go type bound for targetType
func (c *TypeConverter) ConvertValueForPostgres(value interface{}, targetType string, colName string) (interface{}, error) {
	if model.IsMissing(value) {
		return nil, nil
	}

	switch v := value.(type) {
	case *string:
		value = *v
	case *float64:
		value = *v
	}

	targetType = strings.ToLower(targetType)

	switch {
	case strings.HasPrefix(targetType, "varchar"), targetType == "text":
		s, err := cast.ToStringE(value)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s value %v to text: %w", colName, value, err)
		}
		if s == "" && c.config.EmptyStringAsNull {
			return nil, nil
		}
		return s, nil

	case targetType == "bigint", targetType == "integer", targetType == "smallint":
		i, err := cast.ToInt64E(value)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s value %v to integer: %w", colName, value, err)
		}
		return i, nil

	case targetType == "double precision", targetType == "real",
		strings.HasPrefix(targetType, "numeric"):
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s value %v to numeric: %w", colName, value, err)
		}
		return f, nil

	case targetType == "boolean":
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s value %v to boolean: %w", colName, value, err)
		}
		return b, nil

	case targetType == "date":
		return convertToDate(value, colName)

	default:
		return cast.ToStringE(value)
	}
}

// convertToDate parses canonical YYYY-MM-DD dates
func convertToDate(value interface{}, colName string) (interface{}, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case string:
		d, err := time.Parse(dateLayout, v)
		if err != nil {
			return nil, fmt.Errorf("cannot convert %s value %q to date: %w", colName, v, err)
		}
		return d, nil
	default:
		return nil, fmt.Errorf("cannot convert %s value of type %T to date", colName, value)
	}
}
