// pkg/converter/mapping.go
package converter

import (
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

const dateLayout = "2006-01-02"

// mapColumn picks the PostgreSQL type of one column
func (c *TypeConverter) mapColumn(name string, kind model.ColumnKind, p columnProfile) string {
	switch kind {
	case model.KindDate:
		if c.config.TypedDates && p.allDates {
			return "DATE"
		}
		if c.config.TypedDates {
			c.logger.Debug("Date column kept as TEXT",
				zap.String("column", name),
				zap.Int("invalid_dates", p.invalidDates))
		}
		return "TEXT"
	case model.KindNumber:
		return "DOUBLE PRECISION"
	case model.KindCategory:
		return c.handleVarcharType(name, p.maxLength)
	}

	switch {
	case p.present == 0:
		return "TEXT"
	case p.allInts:
		return "BIGINT"
	case p.allNumbers:
		return "DOUBLE PRECISION"
	case p.allBools:
		return "BOOLEAN"
	default:
		return c.handleVarcharType(name, p.maxLength)
	}
}

// handleVarcharType sizes string columns from the longest observed value
func (c *TypeConverter) handleVarcharType(name string, length int) string {
	if !c.config.OptimizeStorage {
		return "TEXT"
	}

	if length > c.config.MaxVarcharLength {
		c.logger.Debug("Using TEXT for long column",
			zap.String("column", name),
			zap.Int("length", length))
		return "TEXT"
	}

	switch {
	case length > 255:
		return "VARCHAR(1000)"
	case length > 100:
		return "VARCHAR(255)"
	case length > 50:
		return "VARCHAR(100)"
	default:
		return "VARCHAR(50)"
	}
}
