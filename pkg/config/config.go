// pkg/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/David-Botos/retail-ingress/pkg/model"
)

// Config represents the application configuration
type Config struct {
	// Database connections
	Source    *SourceConfig
	Snowflake *SnowflakeConfig
	Postgres  *PostgresConfig

	// Extraction endpoints
	Extract *ExtractConfig

	// Destination column typing
	Storage *StorageConfig

	// Run settings
	Datasets         []model.DatasetKind
	WorkerPoolSize   int
	InsertBatchSize  int
	RecordOperations bool
	Schedule         string
	MetricsAddr      string

	// Logging
	LogLevel  string
	LogFormat string
}

// ExtractConfig locates the non-relational inputs
type ExtractConfig struct {
	StoreAPIBaseURL  string
	StoreAPIKey      string
	ProductsBucket   string
	ProductsKey      string
	ProductsRegion   string
	ProductsEndpoint string
	DateDetailsURL   string
	CardDetailsPath  string
	UsersTable       string
	OrdersTable      string
	HTTPTimeout      time.Duration
}

// StorageConfig controls how cleaned columns are typed in the destination
type StorageConfig struct {
	OptimizeStorage   bool
	MaxVarcharLength  int
	TypedDates        bool
	EmptyStringAsNull bool
	WriteIndex        bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	datasets, err := parseDatasets(getEnvAsStringSlice("DATASETS", nil))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Datasets:         datasets,
		WorkerPoolSize:   getEnvAsInt("WORKER_POOL_SIZE", 0), // 0 means one worker per dataset
		InsertBatchSize:  getEnvAsInt("INSERT_BATCH_SIZE", 1000),
		RecordOperations: getEnvAsBool("RECORD_OPERATIONS", false),
		Schedule:         getEnv("INGRESS_SCHEDULE", ""),
		MetricsAddr:      getEnv("METRICS_ADDR", ""),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		LogFormat:        getEnv("LOG_FORMAT", "json"),
		Extract:          LoadExtractConfig(),
		Storage:          LoadStorageConfig(),
	}

	srcConfig, err := LoadSourceConfig()
	if err != nil {
		return nil, errors.New("failed to load source configuration: " + err.Error())
	}
	cfg.Source = srcConfig

	if srcConfig.Driver == DriverSnowflake {
		snowConfig, err := LoadSnowflakeConfig()
		if err != nil {
			return nil, errors.New("failed to load Snowflake configuration: " + err.Error())
		}
		cfg.Snowflake = snowConfig
	}

	pgConfig, err := LoadPostgresConfig()
	if err != nil {
		return nil, errors.New("failed to load PostgreSQL configuration: " + err.Error())
	}
	cfg.Postgres = pgConfig

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadExtractConfig loads the extraction endpoints. Every field has a default.
func LoadExtractConfig() *ExtractConfig {
	return &ExtractConfig{
		StoreAPIBaseURL:  getEnv("STORE_API_BASE_URL", "https://aqj7u5id95.execute-api.eu-west-1.amazonaws.com/prod"),
		StoreAPIKey:      getEnv("STORE_API_KEY", ""),
		ProductsBucket:   getEnv("PRODUCTS_S3_BUCKET", "data-handling-public"),
		ProductsKey:      getEnv("PRODUCTS_S3_KEY", "products.csv"),
		ProductsRegion:   getEnv("PRODUCTS_S3_REGION", "eu-west-1"),
		ProductsEndpoint: getEnv("PRODUCTS_S3_ENDPOINT", ""),
		DateDetailsURL:   getEnv("DATE_DETAILS_URL", "https://data-handling-public.s3.eu-west-1.amazonaws.com/date_details.json"),
		CardDetailsPath:  getEnv("CARD_DETAILS_PATH", "card_details.csv"),
		UsersTable:       getEnv("USERS_TABLE", "legacy_users"),
		OrdersTable:      getEnv("ORDERS_TABLE", "orders_table"),
		HTTPTimeout:      time.Duration(getEnvAsInt("HTTP_TIMEOUT_SECONDS", 30)) * time.Second,
	}
}

// LoadStorageConfig loads the destination typing options
func LoadStorageConfig() *StorageConfig {
	return &StorageConfig{
		OptimizeStorage:   getEnvAsBool("STORAGE_OPTIMIZE", false),
		MaxVarcharLength:  getEnvAsInt("STORAGE_MAX_VARCHAR_LENGTH", 1000),
		TypedDates:        getEnvAsBool("STORAGE_TYPED_DATES", true),
		EmptyStringAsNull: getEnvAsBool("EMPTY_STRING_AS_NULL", false),
		WriteIndex:        getEnvAsBool("STORAGE_WRITE_INDEX", true),
	}
}

// Validate ensures all required configuration is present and valid
func (c *Config) Validate() error {
	if c.Source == nil {
		return errors.New("source configuration is required")
	}

	if c.Source.Driver == DriverSnowflake && c.Snowflake == nil {
		return errors.New("snowflake configuration is required for the snowflake source driver")
	}

	if c.Postgres == nil {
		return errors.New("postgreSQL configuration is required")
	}

	if c.Storage != nil && c.Storage.MaxVarcharLength <= 0 {
		return errors.New("max varchar length must be positive")
	}

	if c.InsertBatchSize <= 0 {
		return errors.New("insert batch size must be positive")
	}

	if c.WorkerPoolSize < 0 {
		return errors.New("worker pool size cannot be negative")
	}

	if len(c.Datasets) == 0 {
		return errors.New("at least one dataset is required")
	}

	if c.Schedule != "" {
		if _, err := cron.ParseStandard(c.Schedule); err != nil {
			return fmt.Errorf("invalid INGRESS_SCHEDULE %q: %w", c.Schedule, err)
		}
	}

	return nil
}

func parseDatasets(names []string) ([]model.DatasetKind, error) {
	if len(names) == 0 {
		return append([]model.DatasetKind(nil), model.AllDatasets...), nil
	}
	kinds := make([]model.DatasetKind, 0, len(names))
	for _, n := range names {
		k, err := model.ParseDatasetKind(n)
		if err != nil {
			return nil, fmt.Errorf("invalid DATASETS: %w", err)
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

// Helper functions for environment variables
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(getEnv(key, ""))
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsStringSlice parses a comma-separated list, ignoring empty items
func getEnvAsStringSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, v := range strings.Split(value, ",") {
		v = strings.Trim(strings.TrimSpace(v), `"`)
		if v != "" {
			result = append(result, v)
		}
	}

	if len(result) == 0 {
		return defaultValue
	}

	return result
}
