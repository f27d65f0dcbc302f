// pkg/connector/postgres.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/config"
)

// PostgresConnector is the destination store the cleaned datasets are written to
type PostgresConnector struct {
	db     *sql.DB
	logger *zap.Logger
	cfg    *config.PostgresConfig
}

// NewPostgresConnector opens the destination database through pgx
func NewPostgresConnector(ctx context.Context, cfg *config.PostgresConfig, logger *zap.Logger) (*PostgresConnector, error) {
	logger = logger.Named("postgres-connector")

	logger.Info("Connecting to PostgreSQL",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("schema", cfg.Schema),
		zap.String("user", cfg.User))

	db, err := openPool(ctx, "pgx", cfg.ConnectionString(), cfg.Pool, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	logPool(logger, db.DB)
	return &PostgresConnector{db: db.DB, logger: logger, cfg: cfg}, nil
}

// NewPostgresConnectorFromDB wraps an already open connection
func NewPostgresConnectorFromDB(db *sql.DB, cfg *config.PostgresConfig, logger *zap.Logger) *PostgresConnector {
	return &PostgresConnector{db: db, logger: logger.Named("postgres-connector"), cfg: cfg}
}

// DB returns the underlying database connection
func (c *PostgresConnector) DB() *sql.DB {
	return c.db
}

// Validate checks the server version and makes sure the destination schema exists
func (c *PostgresConnector) Validate(ctx context.Context) error {
	var version string
	if err := c.db.QueryRowContext(ctx, "SELECT version()").Scan(&version); err != nil {
		return fmt.Errorf("failed to query PostgreSQL version: %w", err)
	}
	c.logger.Info("Connected to PostgreSQL", zap.String("version", version))

	if err := c.ensureSchema(ctx, c.cfg.Schema); err != nil {
		return fmt.Errorf("failed to create/verify schema %s: %w", c.cfg.Schema, err)
	}

	c.logger.Info("PostgreSQL connection validated",
		zap.String("database", c.cfg.Database),
		zap.String("schema", c.cfg.Schema))
	return nil
}

// Close closes the database connection
func (c *PostgresConnector) Close() error {
	c.logger.Info("Closing PostgreSQL connection")
	logPool(c.logger, c.db)
	return c.db.Close()
}

func (c *PostgresConnector) ensureSchema(ctx context.Context, schema string) error {
	_, err := c.db.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+pq.QuoteIdentifier(schema))
	return err
}

// QualifiedName returns the quoted schema.table name in the destination schema
func (c *PostgresConnector) QualifiedName(table string) string {
	return pq.QuoteIdentifier(c.cfg.Schema) + "." + pq.QuoteIdentifier(table)
}

// ddlTimeout bounds every statement the loader issues
const ddlTimeout = 30 * time.Second

func (c *PostgresConnector) exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, ddlTimeout)
	defer cancel()
	return c.db.ExecContext(ctx, query, args...)
}

// ReplaceTable drops the destination table if it exists and creates it again
// with the given column definitions
func (c *PostgresConnector) ReplaceTable(ctx context.Context, table string, columnDefs []string) error {
	fullTableName := c.QualifiedName(table)

	if _, err := c.exec(ctx, "DROP TABLE IF EXISTS "+fullTableName); err != nil {
		return fmt.Errorf("failed to drop table %s: %w", fullTableName, err)
	}

	createSQL := fmt.Sprintf("CREATE TABLE %s (\n\t%s\n)", fullTableName, strings.Join(columnDefs, ",\n\t"))
	if _, err := c.exec(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create table %s: %w", fullTableName, err)
	}

	c.logger.Info("Replaced table", zap.String("table", fullTableName), zap.Int("columns", len(columnDefs)))
	return nil
}

// BatchInsert performs a bulk multi-row insert into a destination table
func (c *PostgresConnector) BatchInsert(
	ctx context.Context,
	table string,
	columns []string,
	valueRows [][]interface{},
	batchSize int,
) (int64, error) {
	if len(valueRows) == 0 {
		return 0, nil
	}

	if batchSize <= 0 {
		batchSize = 1000
	}

	fullTableName := c.QualifiedName(table)
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = pq.QuoteIdentifier(col)
	}
	columnStr := strings.Join(quoted, ", ")

	var totalRowsInserted int64

	for i := 0; i < len(valueRows); i += batchSize {
		end := i + batchSize
		if end > len(valueRows) {
			end = len(valueRows)
		}

		query, args := buildInsert(fullTableName, columnStr, len(columns), valueRows[i:end])

		result, err := c.exec(ctx, query, args...)
		if err != nil {
			return totalRowsInserted, fmt.Errorf("batch insert failed at row %d: %w", i, err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			c.logger.Warn("Couldn't get rows affected", zap.Error(err))
			continue
		}
		totalRowsInserted += rowsAffected
	}

	return totalRowsInserted, nil
}

// buildInsert renders one multi-row INSERT with positional placeholders
func buildInsert(fullTableName, columnStr string, width int, batch [][]interface{}) (string, []interface{}) {
	placeholders := make([]string, len(batch))
	args := make([]interface{}, 0, len(batch)*width)

	for j, row := range batch {
		rowPlaceholders := make([]string, width)
		for k := 0; k < width; k++ {
			rowPlaceholders[k] = fmt.Sprintf("$%d", j*width+k+1)
			var val interface{}
			if k < len(row) {
				val = row[k]
			}
			args = append(args, val)
		}
		placeholders[j] = "(" + strings.Join(rowPlaceholders, ", ") + ")"
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		fullTableName, columnStr, strings.Join(placeholders, ", "))
	return query, args
}

// CountRows returns the number of rows in a destination table
func (c *PostgresConnector) CountRows(ctx context.Context, table string) (int64, error) {
	var count int64
	query := "SELECT COUNT(*) FROM " + c.QualifiedName(table)
	if err := c.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count rows in %s: %w", table, err)
	}
	return count, nil
}

// ColumnNames returns the columns of a destination table in table order
func (c *PostgresConnector) ColumnNames(ctx context.Context, table string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT * FROM "+c.QualifiedName(table)+" LIMIT 0")
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()
	return rows.Columns()
}
