package extract

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// RDSTable reads a whole relational table
type RDSTable struct {
	db        *sqlx.DB
	name      string
	qualified string
	logger    *zap.Logger
}

// NewRDSTable creates a reader for one table. qualified is the name as it
// appears in the FROM clause and must already be quoted for the source.
func NewRDSTable(db *sqlx.DB, name, qualified string, logger *zap.Logger) *RDSTable {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RDSTable{
		db:        db,
		name:      name,
		qualified: qualified,
		logger:    logger.Named("rds").With(zap.String("table", name)),
	}
}

// Fetch selects every row of the table
func (r *RDSTable) Fetch(ctx context.Context) (*model.Table, error) {
	start := time.Now()

	rows, err := r.db.QueryxContext(ctx, "SELECT * FROM "+r.qualified)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", r.name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", r.name, err)
	}

	var out []model.Row
	for rows.Next() {
		scanned := make(map[string]interface{}, len(columns))
		if err := rows.MapScan(scanned); err != nil {
			return nil, fmt.Errorf("failed to scan row of %s: %w", r.name, err)
		}
		row := make(model.Row, len(scanned))
		for k, v := range scanned {
			row[k] = scalar(v)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows of %s: %w", r.name, err)
	}

	r.logger.Info("Extracted table",
		zap.Int("rows", len(out)),
		zap.Int("columns", len(columns)),
		zap.Duration("duration", time.Since(start)))

	return model.NewTable(r.name, columns, out), nil
}

// scalar maps driver values onto the value types the cleaner understands
func scalar(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format(time.RFC3339)
	case int32:
		return int64(val)
	case float32:
		return float64(val)
	default:
		return v
	}
}
