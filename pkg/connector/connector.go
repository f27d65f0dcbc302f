// pkg/connector/connector.go
package connector

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/config"
)

// DatabaseConnector is a connection the ingress can validate and close
type DatabaseConnector interface {
	// DB returns the underlying database connection
	DB() *sql.DB

	// Validate verifies the connection and permissions
	Validate(ctx context.Context) error

	// Close closes the connection and releases resources
	Close() error
}

// SourceConnector is a relational source the extraction layer reads whole tables from
type SourceConnector interface {
	DatabaseConnector

	// Sqlx returns the connection wrapped for map scanning
	Sqlx() *sqlx.DB

	// QualifiedTable returns the quoted, schema-qualified name of a source table
	QualifiedTable(name string) string

	// ListTables lists the tables available to read
	ListTables(ctx context.Context) ([]string, error)
}

// ConnStats is the subset of sql.DBStats worth logging
type ConnStats struct {
	OpenConnections int
	InUse           int
	Idle            int
	MaxOpenConns    int
	WaitCount       int64
}

// GetConnectionStats snapshots the pool of db
func GetConnectionStats(db *sql.DB) ConnStats {
	s := db.Stats()
	return ConnStats{
		OpenConnections: s.OpenConnections,
		InUse:           s.InUse,
		Idle:            s.Idle,
		MaxOpenConns:    s.MaxOpenConnections,
		WaitCount:       s.WaitCount,
	}
}

func logPool(logger *zap.Logger, db *sql.DB) {
	s := GetConnectionStats(db)
	logger.Debug("Connection pool",
		zap.Int("open", s.OpenConnections),
		zap.Int("in_use", s.InUse),
		zap.Int("idle", s.Idle),
		zap.Int("max_open", s.MaxOpenConns),
		zap.Int64("waited", s.WaitCount))
}

// openPool opens driverName, sizes its pool and pings it within pingTimeout.
// The pool is closed again if the ping fails.
func openPool(ctx context.Context, driverName, dsn string, pool config.PoolConfig, pingTimeout time.Duration) (*sqlx.DB, error) {
	db, err := sqlx.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driverName, err)
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}
	if pool.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(pool.ConnMaxIdleTime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		if pingCtx.Err() != nil && ctx.Err() == nil {
			return nil, fmt.Errorf("ping %s timed out after %v: %w", driverName, pingTimeout, err)
		}
		return nil, fmt.Errorf("ping %s: %w", driverName, err)
	}
	return db, nil
}
