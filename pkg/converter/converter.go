// pkg/converter/converter.go
package converter

import (
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// IndexColumn carries the cleaned row index into the destination table
const IndexColumn = "index"

// TypeConverter maps cleaned tables onto PostgreSQL column types and values
type TypeConverter struct {
	logger *zap.Logger
	// Configuration options
	config TypeConverterConfig
}

// TypeConverterConfig provides configuration options for type conversion
type TypeConverterConfig struct {
	// Size string columns as VARCHAR from observed lengths instead of TEXT
	OptimizeStorage bool
	// Longest VARCHAR produced before falling back to TEXT
	MaxVarcharLength int
	// Store date columns as DATE when every value is a valid calendar date
	TypedDates bool
	// Treat empty strings as NULL
	EmptyStringAsNull bool
	// Write the row index as the first column
	WriteIndex bool
}

// DefaultConfig returns the default configuration
func DefaultConfig() TypeConverterConfig {
	return TypeConverterConfig{
		OptimizeStorage:   false,
		MaxVarcharLength:  1000,
		TypedDates:        true,
		EmptyStringAsNull: false,
		WriteIndex:        true,
	}
}

// NewTypeConverter creates a new TypeConverter with default configuration
func NewTypeConverter(logger *zap.Logger) *TypeConverter {
	return NewTypeConverterWithConfig(logger, DefaultConfig())
}

// NewTypeConverterWithConfig creates a TypeConverter with custom configuration
func NewTypeConverterWithConfig(logger *zap.Logger, config TypeConverterConfig) *TypeConverter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TypeConverter{
		logger: logger.Named("converter"),
		config: config,
	}
}

// Column is one destination column
type Column struct {
	Name   string
	PgType string
}

// Plan is the destination layout of a cleaned table
type Plan struct {
	Table   string
	Columns []Column
}

// Names returns the destination column names in order
func (p Plan) Names() []string {
	names := make([]string, len(p.Columns))
	for i, c := range p.Columns {
		names[i] = c.Name
	}
	return names
}

// PlanTable derives the destination columns of a table from its kinds and values
func (c *TypeConverter) PlanTable(dest string, t *model.Table) Plan {
	plan := Plan{Table: dest}
	if c.config.WriteIndex && !t.HasColumn(IndexColumn) {
		plan.Columns = append(plan.Columns, Column{Name: IndexColumn, PgType: "BIGINT"})
	}

	for _, name := range t.Columns {
		profile := profileColumn(t.Column(name))
		pgType := c.mapColumn(name, t.Kind(name), profile)
		plan.Columns = append(plan.Columns, Column{Name: name, PgType: pgType})
	}
	return plan
}

// GenerateColumnDefinitions creates PostgreSQL column definitions
func (c *TypeConverter) GenerateColumnDefinitions(plan Plan) []string {
	definitions := make([]string, 0, len(plan.Columns))
	for _, col := range plan.Columns {
		nullability := "NULL"
		if col.Name == IndexColumn && c.config.WriteIndex {
			nullability = "NOT NULL"
		}
		definitions = append(definitions, fmt.Sprintf("%s %s %s",
			pq.QuoteIdentifier(col.Name),
			col.PgType,
			nullability))
	}
	return definitions
}

// RowValues converts every row of t into the argument order of plan
func (c *TypeConverter) RowValues(plan Plan, t *model.Table) ([][]interface{}, error) {
	out := make([][]interface{}, len(t.Rows))
	for i, row := range t.Rows {
		values := make([]interface{}, len(plan.Columns))
		for j, col := range plan.Columns {
			var raw interface{}
			if col.Name == IndexColumn && !t.HasColumn(IndexColumn) {
				raw = int64(i)
				if i < len(t.Index) {
					raw = int64(t.Index[i])
				}
			} else {
				raw = row[col.Name]
			}

			v, err := c.ConvertValueForPostgres(raw, col.PgType, col.Name)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			values[j] = v
		}
		out[i] = values
	}
	return out, nil
}
