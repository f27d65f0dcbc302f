// pkg/connector/source.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/config"
)

// PostgresSource reads the legacy tables from the relational source database
type PostgresSource struct {
	db     *sqlx.DB
	logger *zap.Logger
	cfg    *config.SourceConfig
}

// NewPostgresSource opens the source database through lib/pq
func NewPostgresSource(ctx context.Context, cfg *config.SourceConfig, logger *zap.Logger) (*PostgresSource, error) {
	logger = logger.Named("source-connector")

	logger.Info("Connecting to source database",
		zap.String("host", cfg.Host),
		zap.Int("port", cfg.Port),
		zap.String("database", cfg.Database),
		zap.String("user", cfg.User))

	db, err := openPool(ctx, "postgres", cfg.ConnectionString(), cfg.Pool, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to source database: %w", err)
	}

	logPool(logger, db.DB)
	return &PostgresSource{db: db, logger: logger, cfg: cfg}, nil
}

// DB returns the underlying database connection
func (c *PostgresSource) DB() *sql.DB {
	return c.db.DB
}

// Sqlx returns the connection wrapped for map scanning
func (c *PostgresSource) Sqlx() *sqlx.DB {
	return c.db
}

// QualifiedTable quotes a table name in the search path
func (c *PostgresSource) QualifiedTable(name string) string {
	return pq.QuoteIdentifier(name)
}

// Validate checks that the source is reachable and lists its tables
func (c *PostgresSource) Validate(ctx context.Context) error {
	tables, err := c.ListTables(ctx)
	if err != nil {
		return err
	}
	c.logger.Info("Source database validated",
		zap.String("database", c.cfg.Database),
		zap.Int("tables", len(tables)))
	return nil
}

// ListTables lists the base tables visible in the public schema
func (c *PostgresSource) ListTables(ctx context.Context) ([]string, error) {
	var tables []string
	err := c.db.SelectContext(ctx, &tables, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
		ORDER BY table_name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list source tables: %w", err)
	}
	return tables, nil
}

// Close closes the database connection
func (c *PostgresSource) Close() error {
	c.logger.Info("Closing source connection")
	return c.db.Close()
}
