package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Catalog of sandbox databases and exercises.
	CatalogFile string

	// Execution limits applied to every sandbox query.
	MaxRows        int
	QueryTimeout   time.Duration
	ConnectTimeout time.Duration

	// Grading.
	FoldColumnCase bool // compare column names case-insensitively

	// Logging.
	LogLevel slog.Level

	// Transport.
	Transport       string // "stdio" (default) or "http"
	HTTPAddr        string // listen address for HTTP transport (default ":8080")
	HTTPBearerToken string // required when transport=http

	// Observability.
	OTelEnabled bool

	// CLI-only.
	AuditLog string // path to NDJSON audit log file
}

// Overrides holds CLI flag values that override environment variables.
// Pointer fields distinguish "not set" from zero values.
type Overrides struct {
	CatalogFile     *string
	LogLevel        *string
	MaxRows         *int
	QueryTimeout    *time.Duration
	ConnectTimeout  *time.Duration
	Transport       *string
	HTTPAddr        *string
	HTTPBearerToken *string
	FoldColumnCase  bool
	OTelEnabled     bool
	AuditLog        string
}

// Load builds a Config from environment variables, then applies CLI overrides,
// then validates the result.
func Load(overrides Overrides) (*Config, error) {
	cfg := defaults()

	if err := loadEnvVars(cfg); err != nil {
		return nil, err
	}
	if err := applyOverrides(cfg, overrides); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		MaxRows:        1000,
		QueryTimeout:   5 * time.Second,
		ConnectTimeout: 5 * time.Second,
		LogLevel:       slog.LevelInfo,
		Transport:      "stdio",
		HTTPAddr:       ":8080",
	}
}

func loadEnvVars(cfg *Config) error {
	cfg.CatalogFile = os.Getenv("CATALOG_FILE")

	if v := os.Getenv("MAX_ROWS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid MAX_ROWS value %q: must be a positive integer", v)
		}
		cfg.MaxRows = n
	}

	var err error
	if cfg.QueryTimeout, err = durationEnv("QUERY_TIMEOUT", cfg.QueryTimeout); err != nil {
		return err
	}
	if cfg.ConnectTimeout, err = durationEnv("CONNECT_TIMEOUT", cfg.ConnectTimeout); err != nil {
		return err
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		level, err := parseLogLevel(v)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}

	if v := os.Getenv("TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	cfg.HTTPBearerToken = os.Getenv("HTTP_BEARER_TOKEN")

	if cfg.OTelEnabled, err = boolEnv("OTEL_ENABLED", cfg.OTelEnabled); err != nil {
		return err
	}
	if cfg.FoldColumnCase, err = boolEnv("FOLD_COLUMN_CASE", cfg.FoldColumnCase); err != nil {
		return err
	}
	return nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, v, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s value %q: must be positive", name, v)
	}
	return d, nil
}

func boolEnv(name string, def bool) (bool, error) {
	v := os.Getenv(name)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", name, v, err)
	}
	return b, nil
}

func applyOverrides(cfg *Config, o Overrides) error {
	if o.CatalogFile != nil {
		cfg.CatalogFile = *o.CatalogFile
	}
	if o.LogLevel != nil {
		level, err := parseLogLevel(*o.LogLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if o.MaxRows != nil {
		if *o.MaxRows <= 0 {
			return fmt.Errorf("invalid --max-rows value: must be a positive integer")
		}
		cfg.MaxRows = *o.MaxRows
	}
	if o.QueryTimeout != nil {
		if *o.QueryTimeout <= 0 {
			return fmt.Errorf("invalid --query-timeout value: must be positive")
		}
		cfg.QueryTimeout = *o.QueryTimeout
	}
	if o.ConnectTimeout != nil {
		if *o.ConnectTimeout <= 0 {
			return fmt.Errorf("invalid --connect-timeout value: must be positive")
		}
		cfg.ConnectTimeout = *o.ConnectTimeout
	}
	if o.Transport != nil {
		cfg.Transport = *o.Transport
	}
	if o.HTTPAddr != nil {
		cfg.HTTPAddr = *o.HTTPAddr
	}
	if o.HTTPBearerToken != nil {
		cfg.HTTPBearerToken = *o.HTTPBearerToken
	}

	cfg.AuditLog = o.AuditLog
	cfg.OTelEnabled = cfg.OTelEnabled || o.OTelEnabled
	cfg.FoldColumnCase = cfg.FoldColumnCase || o.FoldColumnCase
	return nil
}

// validate checks cross-field constraints on the final config.
func validate(cfg *Config) error {
	if cfg.CatalogFile == "" {
		return fmt.Errorf("CATALOG_FILE is required (set via env var or --catalog flag)")
	}

	switch cfg.Transport {
	case "stdio", "http":
	default:
		return fmt.Errorf("invalid TRANSPORT value %q: must be \"stdio\" or \"http\"", cfg.Transport)
	}

	if cfg.Transport == "http" && cfg.HTTPBearerToken == "" {
		return fmt.Errorf("HTTP_BEARER_TOKEN is required when transport is \"http\" (set via env var or --http-bearer-token flag)")
	}
	return nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL value %q: must be debug, info, warn, or error", s)
	}
}
