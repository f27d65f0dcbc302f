package extract

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// ReadCSV parses a headed CSV document into a table. Empty cells are missing
// values and empty header cells are named unnamed_<position>.
func ReadCSV(name string, r io.Reader) (*model.Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return model.NewTable(name, nil, nil), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV header of %s: %w", name, err)
	}

	columns := make([]string, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if h == "" {
			h = fmt.Sprintf("unnamed_%d", i)
		}
		columns[i] = h
	}

	var rows []model.Row
	for line := 2; ; line++ {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read CSV line %d of %s: %w", line, name, err)
		}

		row := make(model.Row, len(columns))
		for i, col := range columns {
			if i < len(record) && record[i] != "" {
				row[col] = record[i]
			} else {
				row[col] = nil
			}
		}
		rows = append(rows, row)
	}

	return model.NewTable(name, columns, rows), nil
}

// CSVFile reads a CSV document from the local filesystem
type CSVFile struct {
	name   string
	path   string
	logger *zap.Logger
}

// NewCSVFile creates a file-backed source
func NewCSVFile(name, path string, logger *zap.Logger) *CSVFile {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CSVFile{name: name, path: path, logger: logger.Named("csv")}
}

// Fetch opens and parses the file
func (f *CSVFile) Fetch(ctx context.Context) (*model.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", f.path, err)
	}
	defer file.Close()

	t, err := ReadCSV(f.name, file)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Extracted CSV file",
		zap.String("path", f.path),
		zap.Int("rows", t.Len()),
		zap.Int("columns", len(t.Columns)))
	return t, nil
}
