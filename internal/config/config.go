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

// Option backends.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
	BackendRemote = "remote"
	BackendSheets = "sheets"
)

var validBackends = []string{BackendMemory, BackendSQLite, BackendRemote, BackendSheets}

type Config struct {
	// HTTP Server
	Port     string
	LogLevel string

	// Option source
	OptionsBackend string
	OptionsDataDir string
	SQLiteDBPath   string

	DimensionsAPIURL     string
	DimensionsAPIToken   string
	DimensionsAPIRetries int

	GoogleSpreadsheetID   string
	GoogleDimensionsSheet string
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	OptionsCacheSize int
	OptionsCacheTTL  time.Duration

	// Sessions
	SessionTTL   time.Duration
	PreviewUsers []string

	// AMQP criteria publication, disabled when AMQPURL is empty
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Criteria rendering
	CriteriaParameterized bool
}

func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		OptionsBackend: strings.ToLower(getEnv("OPTIONS_BACKEND", BackendMemory)),
		OptionsDataDir: getEnv("OPTIONS_DATA_DIR", "./data/options"),
		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/options.db"),

		DimensionsAPIURL:     getEnv("DIMENSIONS_API_URL", ""),
		DimensionsAPIToken:   getEnv("DIMENSIONS_API_TOKEN", ""),
		DimensionsAPIRetries: getEnvInt("DIMENSIONS_API_RETRIES", 3),

		GoogleSpreadsheetID:   getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleDimensionsSheet: getEnv("GOOGLE_DIMENSIONS_SHEET", "Dimensions"),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCredentialsJSON: getEnv("GOOGLE_CREDENTIALS_JSON", ""),

		OptionsCacheSize: getEnvInt("OPTIONS_CACHE_SIZE", 64),
		OptionsCacheTTL:  getEnvDuration("OPTIONS_CACHE_TTL", 5*time.Minute),

		SessionTTL:   getEnvDuration("SESSION_TTL", 12*time.Hour),
		PreviewUsers: getEnvList("PREVIEW_USERS"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "criteria"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "criteria_updates"),

		CriteriaParameterized: getEnvBool("CRITERIA_PARAMETERIZED", false),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of debug, info, warn, error", c.LogLevel))
	}

	if !slices.Contains(validBackends, c.OptionsBackend) {
		errors = append(errors, fmt.Sprintf("invalid options backend '%s': must be one of %v", c.OptionsBackend, validBackends))
	}

	switch c.OptionsBackend {
	case BackendSQLite:
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case BackendRemote:
		if c.DimensionsAPIURL == "" {
			errors = append(errors, "DIMENSIONS_API_URL is required when using remote backend")
		} else if u, err := url.Parse(c.DimensionsAPIURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid dimensions API URL '%s': %v", c.DimensionsAPIURL, err))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid dimensions API URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
		if c.DimensionsAPIRetries < 0 || c.DimensionsAPIRetries > 10 {
			errors = append(errors, fmt.Sprintf("invalid dimensions API retries %d: must be between 0 and 10", c.DimensionsAPIRetries))
		}
	case BackendSheets:
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "Google Spreadsheet ID is required when using sheets backend")
		}
		if c.GoogleCredentialsFile == "" && c.GoogleCredentialsJSON == "" {
			errors = append(errors, "either GOOGLE_CREDENTIALS_FILE or GOOGLE_CREDENTIALS_JSON must be provided for sheets backend")
		}
		if c.GoogleCredentialsFile != "" {
			if _, err := os.Stat(c.GoogleCredentialsFile); os.IsNotExist(err) {
				errors = append(errors, fmt.Sprintf("Google credentials file does not exist: %s", c.GoogleCredentialsFile))
			}
		}
	}

	if c.OptionsCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid options cache size %d: must be at least 1", c.OptionsCacheSize))
	}
	if c.OptionsCacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid options cache TTL %v: must not be negative", c.OptionsCacheTTL))
	}

	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	} else if c.SessionTTL > 7*24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at most 7 days", c.SessionTTL))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// AMQPEnabled reports whether criteria are published to a broker.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated value, dropping blanks.
func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
