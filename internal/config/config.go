package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"splitledger/internal/backend"
)

// Config is the full application configuration, loaded from the
// environment.
type Config struct {
	// Backend selection
	DataBackend string

	// Google Sheets
	GoogleSheetID            string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	SheetTimeout             time.Duration

	// Local file
	DataFile string

	// SQLite
	SQLiteDBPath string

	// Currencies and rates
	BaseCurrency   string
	ReportCurrency string
	RatesURL       string
	RatesTTL       time.Duration

	// AMQP (optional sync notifications)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Logging
	LogLevel string
}

// Load reads the configuration from the environment, applying
// defaults for everything that is unset.
func Load() *Config {
	return &Config{
		DataBackend: getEnv("DATA_BACKEND", "auto"),

		GoogleSheetID:            getEnv("GOOGLE_SHEET_ID", ""),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		SheetTimeout:             getEnvDuration("SHEET_TIMEOUT", 15*time.Second),

		DataFile:     getEnv("DATA_FILE", "./data/expenses.json"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/splitledger.db"),

		BaseCurrency:   getEnv("BASE_CURRENCY", "EUR"),
		ReportCurrency: getEnv("REPORT_CURRENCY", ""),
		RatesURL:       getEnv("RATES_URL", ""),
		RatesTTL:       getEnvDuration("RATES_TTL", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "splitledger"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "ledger_events"),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}
}

// BackendConfig converts the application config into the backend
// selector's config.
func (c *Config) BackendConfig() backend.Config {
	return backend.Config{
		Kind:            backend.Kind(c.DataBackend),
		SpreadsheetID:   c.GoogleSheetID,
		CredentialsJSON: c.GoogleServiceAccountJSON,
		CredentialsFile: c.GoogleServiceAccountFile,
		SheetTimeout:    c.SheetTimeout,
		FilePath:        c.DataFile,
		SQLitePath:      c.SQLiteDBPath,
	}
}

// Validate checks the configuration and reports all problems at once.
func (c *Config) Validate() error {
	var errs []string

	if !backend.Kind(c.DataBackend).IsValid() {
		errs = append(errs, fmt.Sprintf("invalid data backend %q: must be one of %v", c.DataBackend, backend.Kinds()))
	}
	if c.DataBackend == backend.KindSheets.String() && c.GoogleSheetID == "" {
		errs = append(errs, "GOOGLE_SHEET_ID is required when using the sheets backend")
	}
	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errs = append(errs, fmt.Sprintf("service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.BaseCurrency == "" {
		errs = append(errs, "base currency cannot be empty")
	}
	if c.ReportCurrency != "" && c.ReportCurrency != c.BaseCurrency && c.RatesURL == "" {
		errs = append(errs, "RATES_URL is required when REPORT_CURRENCY differs from BASE_CURRENCY")
	}
	if c.RatesURL != "" {
		if _, err := url.Parse(c.RatesURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid rates URL %q: %v", c.RatesURL, err))
		}
	}
	if c.RatesTTL < time.Second {
		errs = append(errs, fmt.Sprintf("invalid rates TTL %v: must be at least 1 second", c.RatesTTL))
	}

	if c.AMQPURL != "" {
		if parsed, err := url.Parse(c.AMQPURL); err != nil {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL %q: %v", c.AMQPURL, err))
		} else if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
			errs = append(errs, fmt.Sprintf("invalid AMQP URL scheme %q: must be 'amqp' or 'amqps'", parsed.Scheme))
		}
		if c.AMQPExchange == "" {
			errs = append(errs, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errs = append(errs, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("invalid log level %q: must be one of debug, info, warn, error", c.LogLevel))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		// Bare integers are taken as seconds.
		if secs, err := strconv.Atoi(value); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultValue
}
