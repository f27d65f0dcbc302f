package extract

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// DateDetails reads the column-oriented date details document:
// {"column": {"0": value, "1": value, ...}, ...}
type DateDetails struct {
	client *http.Client
	url    string
	logger *zap.Logger
}

// NewDateDetails creates a date details source
func NewDateDetails(client *http.Client, url string, logger *zap.Logger) *DateDetails {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DateDetails{client: client, url: url, logger: logger.Named("date-details")}
}

// Fetch downloads the document and pivots it into rows ordered by row key
func (d *DateDetails) Fetch(ctx context.Context) (*model.Table, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to get date details: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("failed to get date details: unexpected status %d: %s",
			resp.StatusCode, strings.TrimSpace(string(body)))
	}

	t, err := ReadColumnOriented("date_details", resp.Body)
	if err != nil {
		return nil, err
	}

	d.logger.Info("Extracted date details",
		zap.Int("rows", t.Len()),
		zap.Int("columns", len(t.Columns)))
	return t, nil
}

// ReadColumnOriented pivots a column-oriented JSON document into a table.
// Row keys must be integers; a column lacking a row key leaves that value missing.
func ReadColumnOriented(name string, r io.Reader) (*model.Table, error) {
	doc, err := decodeOrderedObject(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", name, err)
	}

	rowKeys := make(map[int]bool)
	columns := make(map[string]map[int]interface{}, len(doc.keys))
	for _, col := range doc.keys {
		cells, ok := doc.values[col].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("column %q of %s is not an object", col, name)
		}
		byRow := make(map[int]interface{}, len(cells))
		for k, v := range cells {
			pos, err := strconv.Atoi(k)
			if err != nil {
				return nil, fmt.Errorf("column %q of %s has non-numeric row key %q", col, name, k)
			}
			byRow[pos] = jsonScalar(v)
			rowKeys[pos] = true
		}
		columns[col] = byRow
	}

	order := make([]int, 0, len(rowKeys))
	for k := range rowKeys {
		order = append(order, k)
	}
	sort.Ints(order)

	rows := make([]model.Row, len(order))
	for i, pos := range order {
		row := make(model.Row, len(doc.keys))
		for _, col := range doc.keys {
			row[col] = columns[col][pos]
		}
		rows[i] = row
	}

	t := model.NewTable(name, doc.keys, rows)
	t.Index = order
	return t, nil
}
