// Package config loads service settings from the environment.
package config

import (
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

var validBackends = []string{BackendMemory, BackendSQLite}

// Config holds every setting of the server, the worker and the CLI.
type Config struct {
	// HTTP Server
	Port            string
	ShutdownTimeout time.Duration

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	SeedFile     string

	// AMQP, optional for the server
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets ledger mirror
	GoogleSpreadsheetID      string
	GoogleLedgerSheet        string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// Worker
	SyncInterval      time.Duration
	ReconcileWorkers  int
	WorkerMetricsPort string

	// Caching and limits
	CacheTTL           time.Duration
	CacheSize          int
	RateLimitPerMinute int

	LogLevel string
}

// Load reads the configuration from the environment, applying defaults.
func Load() *Config {
	return &Config{
		Port:            getEnv("PORT", "8081"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		DataBackend:  getEnv("DATA_BACKEND", BackendMemory),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/hostel.db"),
		SeedFile:     getEnv("SEED_FILE", ""),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "hostel"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "payment_ledger"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleLedgerSheet:        getEnv("GOOGLE_LEDGER_SHEET_NAME", "Payments"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),

		SyncInterval:      getEnvDuration("SYNC_INTERVAL", 5*time.Minute),
		ReconcileWorkers:  getEnvInt("RECONCILE_WORKERS", 4),
		WorkerMetricsPort: getEnv("WORKER_METRICS_PORT", "9091"),

		CacheTTL:           getEnvDuration("CACHE_TTL", 5*time.Minute),
		CacheSize:          getEnvInt("CACHE_SIZE", 128),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks the settings the HTTP server needs and reports every
// problem at once.
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !slices.Contains(validBackends, c.DataBackend) {
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}
	if c.DataBackend == BackendSQLite && strings.TrimSpace(c.SQLiteDBPath) == "" {
		errs = append(errs, "SQLite database path cannot be empty when using sqlite backend")
	}
	if c.DataBackend == BackendSQLite && c.SeedFile != "" {
		errs = append(errs, "SEED_FILE is only supported by the memory backend")
	}

	errs = append(errs, c.validateAMQP()...)

	if c.CacheTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}
	if c.CacheSize < 1 {
		errs = append(errs, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.RateLimitPerMinute < 1 {
		errs = append(errs, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	return joinErrors(errs)
}

// ValidateWorker checks the settings the ledger worker needs.
func (c *Config) ValidateWorker() error {
	var errs []string

	if c.DataBackend != BackendSQLite {
		errs = append(errs, fmt.Sprintf("ledger worker requires the sqlite backend, got '%s'", c.DataBackend))
	}
	if strings.TrimSpace(c.SQLiteDBPath) == "" {
		errs = append(errs, "SQLite database path cannot be empty")
	}
	if c.AMQPURL == "" {
		errs = append(errs, "AMQP_URL is required by the ledger worker")
	}
	errs = append(errs, c.validateAMQP()...)

	if c.GoogleSpreadsheetID == "" {
		errs = append(errs, "GOOGLE_SPREADSHEET_ID is required by the ledger worker")
	}
	if c.GoogleLedgerSheet == "" {
		errs = append(errs, "GOOGLE_LEDGER_SHEET_NAME cannot be empty")
	}
	switch {
	case c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "":
		errs = append(errs, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
	case c.GoogleServiceAccountFile != "":
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.SyncInterval < time.Second {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at least 1 second", c.SyncInterval))
	} else if c.SyncInterval > 24*time.Hour {
		errs = append(errs, fmt.Sprintf("invalid sync interval %v: must be at most 24 hours", c.SyncInterval))
	}
	if port, err := strconv.Atoi(c.WorkerMetricsPort); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid worker metrics port '%s'", c.WorkerMetricsPort))
	}
	if c.ReconcileWorkers < 1 || c.ReconcileWorkers > 32 {
		errs = append(errs, fmt.Sprintf("invalid reconcile workers %d: must be between 1 and 32", c.ReconcileWorkers))
	}

	return joinErrors(errs)
}

func (c *Config) validateAMQP() []string {
	if c.AMQPURL == "" {
		return nil
	}
	var errs []string
	if parsed, err := url.Parse(c.AMQPURL); err != nil {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
	} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsed.Scheme))
	}
	if c.AMQPExchange == "" {
		errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
	}
	if c.AMQPQueue == "" {
		errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
	}
	return errs
}

// GoogleCredentials returns the service account key, reading the file when
// no inline JSON is configured.
func (c *Config) GoogleCredentials() ([]byte, error) {
	if c.GoogleServiceAccountJSON != "" {
		return []byte(c.GoogleServiceAccountJSON), nil
	}
	b, err := os.ReadFile(c.GoogleServiceAccountFile)
	if err != nil {
		return nil, fmt.Errorf("read service account file: %w", err)
	}
	return b, nil
}

func joinErrors(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
