// pkg/config/database.go
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/snowflakedb/gosnowflake"
)

// Source drivers
const (
	DriverPostgres  = "postgres"
	DriverSnowflake = "snowflake"
)

// PoolConfig sizes a database/sql connection pool
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// SourceConfig holds the connection parameters of the relational source holding
// the legacy users and orders tables
type SourceConfig struct {
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	Pool PoolConfig
}

// SnowflakeConfig holds Snowflake connection parameters
type SnowflakeConfig struct {
	User          string
	Password      string
	Account       string
	Warehouse     string
	Database      string
	Schema        string
	Role          string
	Authenticator gosnowflake.AuthType

	Pool PoolConfig

	// Session statement timeout
	QueryTimeout time.Duration
}

// PostgresConfig holds PostgreSQL connection parameters for the destination store
type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	Schema   string
	SSLMode  string

	Pool PoolConfig

	// Applied to every session through the connection string
	StatementTimeout time.Duration
}

// loadPoolConfig reads PREFIX_MAX_OPEN_CONNS and friends
func loadPoolConfig(prefix string, defaults PoolConfig) PoolConfig {
	seconds := func(key string, def time.Duration) time.Duration {
		return time.Duration(getEnvAsInt(prefix+key, int(def.Seconds()))) * time.Second
	}
	return PoolConfig{
		MaxOpenConns:    getEnvAsInt(prefix+"_MAX_OPEN_CONNS", defaults.MaxOpenConns),
		MaxIdleConns:    getEnvAsInt(prefix+"_MAX_IDLE_CONNS", defaults.MaxIdleConns),
		ConnMaxLifetime: seconds("_CONN_MAX_LIFETIME_SECONDS", defaults.ConnMaxLifetime),
		ConnMaxIdleTime: seconds("_CONN_MAX_IDLE_TIME_SECONDS", defaults.ConnMaxIdleTime),
	}
}

// requireEnv returns the values of keys, failing on the first unset one
func requireEnv(keys ...string) ([]string, error) {
	values := make([]string, len(keys))
	for i, key := range keys {
		values[i] = os.Getenv(key)
		if values[i] == "" {
			return nil, fmt.Errorf("%s environment variable is required", key)
		}
	}
	return values, nil
}

// LoadSourceConfig loads the source database configuration from environment variables
func LoadSourceConfig() (*SourceConfig, error) {
	driver := strings.ToLower(getEnv("SOURCE_DRIVER", DriverPostgres))
	if driver != DriverPostgres && driver != DriverSnowflake {
		return nil, fmt.Errorf("unsupported SOURCE_DRIVER %q", driver)
	}

	cfg := &SourceConfig{
		Driver:   driver,
		Host:     getEnv("SOURCE_HOST", "localhost"),
		Port:     getEnvAsInt("SOURCE_PORT", 5432),
		User:     getEnv("SOURCE_USER", ""),
		Password: getEnv("SOURCE_PASSWORD", ""),
		Database: getEnv("SOURCE_DB", "postgres"),
		SSLMode:  getEnv("SOURCE_SSLMODE", "require"),
		Pool: loadPoolConfig("SOURCE", PoolConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 10 * time.Minute,
		}),
	}

	if driver == DriverPostgres && cfg.User == "" {
		return nil, errors.New("SOURCE_USER environment variable is required")
	}

	return cfg, nil
}

// LoadSnowflakeConfig loads Snowflake configuration from environment variables
func LoadSnowflakeConfig() (*SnowflakeConfig, error) {
	required, err := requireEnv("SNOWFLAKE_USER", "SNOWFLAKE_PASSWORD", "SNOWFLAKE_ACCOUNT", "SNOWFLAKE_WAREHOUSE")
	if err != nil {
		return nil, err
	}

	var authenticator gosnowflake.AuthType
	switch getEnv("SNOWFLAKE_AUTHENTICATOR", "snowflake") {
	case "oauth":
		authenticator = gosnowflake.AuthTypeOAuth
	case "externalbrowser":
		authenticator = gosnowflake.AuthTypeExternalBrowser
	case "jwt":
		authenticator = gosnowflake.AuthTypeJwt
	case "okta":
		authenticator = gosnowflake.AuthTypeOkta
	default:
		authenticator = gosnowflake.AuthTypeSnowflake
	}

	return &SnowflakeConfig{
		User:          required[0],
		Password:      required[1],
		Account:       required[2],
		Warehouse:     required[3],
		Database:      getEnv("SNOWFLAKE_DATABASE", "RETAIL"),
		Schema:        getEnv("SNOWFLAKE_SCHEMA", "PUBLIC"),
		Role:          getEnv("SNOWFLAKE_ROLE", ""),
		Authenticator: authenticator,
		Pool: loadPoolConfig("SNOWFLAKE", PoolConfig{
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 10 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		}),
		QueryTimeout: time.Duration(getEnvAsInt("SNOWFLAKE_QUERY_TIMEOUT_SECONDS", 300)) * time.Second,
	}, nil
}

// LoadPostgresConfig loads PostgreSQL configuration from environment variables
func LoadPostgresConfig() (*PostgresConfig, error) {
	required, err := requireEnv("POSTGRES_USER", "POSTGRES_PASSWORD", "POSTGRES_DB")
	if err != nil {
		return nil, err
	}

	return &PostgresConfig{
		Host:     getEnv("POSTGRES_HOST", "localhost"),
		Port:     getEnvAsInt("POSTGRES_PORT", 5432),
		User:     required[0],
		Password: required[1],
		Database: required[2],
		Schema:   getEnv("POSTGRES_SCHEMA", "public"),
		SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		Pool: loadPoolConfig("POSTGRES", PoolConfig{
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 10 * time.Minute,
		}),
		StatementTimeout: time.Duration(getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_SECONDS", 300)) * time.Second,
	}, nil
}

// ConnectionString returns a lib/pq URL for a postgres source
func (c *SourceConfig) ConnectionString() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.Database,
		RawQuery: "sslmode=" + url.QueryEscape(c.SSLMode),
	}
	return u.String()
}

// ConnectionString returns a pgx keyword/value connection string. Values are
// single-quoted so passwords may contain spaces.
func (c *PostgresConfig) ConnectionString() string {
	quote := func(v string) string {
		return "'" + strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(v) + "'"
	}
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		quote(c.Host), c.Port, quote(c.User), quote(c.Password), quote(c.Database), quote(c.SSLMode))
	if c.StatementTimeout > 0 {
		dsn += fmt.Sprintf(" statement_timeout=%d", c.StatementTimeout.Milliseconds())
	}
	return dsn
}
