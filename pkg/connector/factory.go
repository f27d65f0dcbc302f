// pkg/connector/factory.go
package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/David-Botos/retail-ingress/pkg/config"
)

// ConnectorFactory creates database connectors
type ConnectorFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewConnectorFactory creates a new connector factory
func NewConnectorFactory(cfg *config.Config, logger *zap.Logger) *ConnectorFactory {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConnectorFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateSourceConnector opens the relational source selected by SOURCE_DRIVER
func (f *ConnectorFactory) CreateSourceConnector(ctx context.Context) (SourceConnector, error) {
	f.logger.Info("Creating source connector", zap.String("driver", f.cfg.Source.Driver))

	switch f.cfg.Source.Driver {
	case config.DriverSnowflake:
		conn, err := NewSnowflakeConnector(ctx, f.cfg.Snowflake, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create Snowflake connector: %w", err)
		}
		return conn, nil
	case config.DriverPostgres:
		conn, err := NewPostgresSource(ctx, f.cfg.Source, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create source connector: %w", err)
		}
		return conn, nil
	default:
		return nil, fmt.Errorf("unsupported source driver %q", f.cfg.Source.Driver)
	}
}

// CreatePostgresConnector creates the destination PostgreSQL connector
func (f *ConnectorFactory) CreatePostgresConnector(ctx context.Context) (*PostgresConnector, error) {
	f.logger.Info("Creating PostgreSQL connector")

	conn, err := NewPostgresConnector(ctx, f.cfg.Postgres, f.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create PostgreSQL connector: %w", err)
	}

	return conn, nil
}

// CreateAllConnectors creates the source and destination connectors
func (f *ConnectorFactory) CreateAllConnectors(ctx context.Context) (SourceConnector, *PostgresConnector, error) {
	src, err := f.CreateSourceConnector(ctx)
	if err != nil {
		return nil, nil, err
	}

	pgConn, err := f.CreatePostgresConnector(ctx)
	if err != nil {
		src.Close() // Clean up the source connection if PostgreSQL fails
		return nil, nil, err
	}

	return src, pgConn, nil
}
