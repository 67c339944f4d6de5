// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// BlobBackend selects the object-store implementation used for stage uploads.
type BlobBackend string

const (
	BlobAzure BlobBackend = "azure"
	BlobS3    BlobBackend = "s3"
	BlobGCS   BlobBackend = "gcs"
	BlobNone  BlobBackend = ""
)

// OracleConfig holds generation-oracle (LLM) settings.
type OracleConfig struct {
	APIKey string // ORACLE_API_KEY
	Model  string // ORACLE_MODEL (default "gemini-2.0-flash")
}

// BlobConfig holds object-store settings for the pipe stage backend.
type BlobConfig struct {
	Backend BlobBackend // BLOB_BACKEND: azure, s3, or gcs

	// Azure Blob Storage
	AzureAccountName string
	AzureAccountKey  string
	AzureContainer   string

	// S3-compatible storage
	S3Bucket   string
	S3Region   string
	S3KeyID    string
	S3Secret   string
	S3Endpoint string // optional, for non-AWS endpoints

	// Google Cloud Storage
	GCSBucket          string
	GCSCredentialsFile string // optional, ADC is used when empty
}

// Validate checks that the selected backend has the fields it needs.
func (b *BlobConfig) Validate() error {
	switch b.Backend {
	case BlobNone:
		return nil
	case BlobAzure:
		if b.AzureAccountName == "" || b.AzureAccountKey == "" || b.AzureContainer == "" {
			return fmt.Errorf("AZURE_ACCOUNT_NAME, AZURE_ACCOUNT_KEY and AZURE_CONTAINER must be set when BLOB_BACKEND=azure")
		}
	case BlobS3:
		if b.S3Bucket == "" || b.S3Region == "" || b.S3KeyID == "" || b.S3Secret == "" {
			return fmt.Errorf("S3_BUCKET, S3_REGION, S3_KEY_ID and S3_SECRET must be set when BLOB_BACKEND=s3")
		}
	case BlobGCS:
		if b.GCSBucket == "" {
			return fmt.Errorf("GCS_BUCKET must be set when BLOB_BACKEND=gcs")
		}
	default:
		return fmt.Errorf("unknown BLOB_BACKEND %q (want azure, s3, or gcs)", b.Backend)
	}
	return nil
}

// Config holds the configuration for the regression-test service.
type Config struct {
	WarehouseDSN  string // WAREHOUSE_DSN: DuckDB database path ("" = in-memory)
	HistoryDBPath string // HISTORY_DB_PATH: SQLite run-history file
	ReportDir     string // REPORT_DIR: directory for report artifacts

	ListenAddr string // HTTP listen address (default ":8080")
	LogLevel   string // log level: debug, info, warn, error (default "info")
	Env        string // environment: "development" (default) or "production"

	// SettleInterval is the blind wait between a stage upload and ingestion
	// verification. A single fixed delay, no polling.
	SettleInterval time.Duration

	// ScheduleManifest is an optional YAML file listing objects to test on a
	// cron schedule.
	ScheduleManifest string

	// Rate limiting
	RateLimitRPS   float64 // sustained requests per second (default 10)
	RateLimitBurst int     // burst capacity (default 20)

	// CORS
	CORSAllowedOrigins []string // allowed origins (default: ["*"])

	Oracle OracleConfig
	Blob   BlobConfig

	// Warnings collects non-fatal warnings generated during config loading.
	// These are logged by the caller after the logger is initialised.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction returns true when the server is running in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables.
// Blob variables are optional — procedure testing works without them; pipe
// testing requires a configured backend.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		WarehouseDSN:     os.Getenv("WAREHOUSE_DSN"),
		HistoryDBPath:    os.Getenv("HISTORY_DB_PATH"),
		ReportDir:        os.Getenv("REPORT_DIR"),
		ListenAddr:       os.Getenv("LISTEN_ADDR"),
		LogLevel:         os.Getenv("LOG_LEVEL"),
		Env:              os.Getenv("ENV"),
		ScheduleManifest: os.Getenv("SCHEDULE_MANIFEST"),
		Oracle: OracleConfig{
			APIKey: os.Getenv("ORACLE_API_KEY"),
			Model:  os.Getenv("ORACLE_MODEL"),
		},
		Blob: BlobConfig{
			Backend:            BlobBackend(strings.ToLower(os.Getenv("BLOB_BACKEND"))),
			AzureAccountName:   os.Getenv("AZURE_ACCOUNT_NAME"),
			AzureAccountKey:    os.Getenv("AZURE_ACCOUNT_KEY"),
			AzureContainer:     os.Getenv("AZURE_CONTAINER"),
			S3Bucket:           os.Getenv("S3_BUCKET"),
			S3Region:           os.Getenv("S3_REGION"),
			S3KeyID:            os.Getenv("S3_KEY_ID"),
			S3Secret:           os.Getenv("S3_SECRET"),
			S3Endpoint:         os.Getenv("S3_ENDPOINT"),
			GCSBucket:          os.Getenv("GCS_BUCKET"),
			GCSCredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
		},
	}

	if v := os.Getenv("PIPE_SETTLE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PIPE_SETTLE_INTERVAL %q: %w", v, err)
		}
		cfg.SettleInterval = d
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.RateLimitBurst = n
		}
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	// Defaults
	if cfg.HistoryDBPath == "" {
		cfg.HistoryDBPath = "sqlregress_history.sqlite"
	}
	if cfg.ReportDir == "" {
		cfg.ReportDir = "reports"
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.SettleInterval == 0 {
		cfg.SettleInterval = 35 * time.Second
	}
	if cfg.Oracle.Model == "" {
		cfg.Oracle.Model = "gemini-2.0-flash"
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 10
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 20
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if err := cfg.Blob.Validate(); err != nil {
		return nil, err
	}
	if cfg.Oracle.APIKey == "" {
		cfg.Warnings = append(cfg.Warnings, "ORACLE_API_KEY not set — fixture synthesis will fail at run time")
	}
	if cfg.Blob.Backend == BlobNone {
		cfg.Warnings = append(cfg.Warnings, "BLOB_BACKEND not set — pipe testing is unavailable")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if cfg.Oracle.APIKey == "" {
			return nil, fmt.Errorf("ORACLE_API_KEY must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

// LoadDotEnv reads a .env file and sets any variables not already in the environment.
// Lines must be in KEY=VALUE format. Comments (#) and blank lines are skipped.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil // .env not found is not an error
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		// Only set if not already in the environment (env vars take precedence)
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

// stripQuotes removes surrounding double or single quotes from a value.
// Only strips if both the first and last characters are matching quotes.
func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
