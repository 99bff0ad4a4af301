package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP server
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Credentials store
	UserBackend  string
	SQLiteDBPath string

	// Account created at startup when the store has no users
	AdminUsername string
	AdminPassword string

	// Registry (BCRA Central de Deudores)
	RegistryBackend            string
	RegistryBaseURL            string
	RegistryHostHeader         string
	RegistryInsecureSkipVerify bool
	RegistryTimeout            time.Duration
	RegistryDataDir            string

	// Sessions
	JWTSecret     string
	SessionTTL    time.Duration
	SecureCookies bool

	// Raw registry answers kept for the export
	SnapshotTTL       time.Duration
	SnapshotCacheSize int

	RateLimitPerMinute int

	// AMQP, optional: query audit events
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Google Sheets, audit worker only
	GoogleSpreadsheetID      string
	GoogleAuditSheetName     string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
	AuditBatchSize           int
	AuditSyncInterval        time.Duration
}

func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8050"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		UserBackend:  getEnv("USER_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/veraz.db"),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),

		RegistryBackend:            getEnv("REGISTRY_BACKEND", "bcra"),
		RegistryBaseURL:            getEnv("REGISTRY_BASE_URL", "https://api.bcra.gob.ar"),
		RegistryHostHeader:         getEnv("REGISTRY_HOST_HEADER", ""),
		RegistryInsecureSkipVerify: getEnvBool("REGISTRY_INSECURE_SKIP_VERIFY", false),
		RegistryTimeout:            getEnvDuration("REGISTRY_TIMEOUT", 15*time.Second),
		RegistryDataDir:            getEnv("REGISTRY_DATA_DIR", "./data/registry"),

		JWTSecret:     getEnv("JWT_SECRET", ""),
		SessionTTL:    getEnvDuration("SESSION_TTL", 8*time.Hour),
		SecureCookies: getEnvBool("SECURE_COOKIES", false),

		SnapshotTTL:       getEnvDuration("SNAPSHOT_TTL", 15*time.Minute),
		SnapshotCacheSize: getEnvInt("SNAPSHOT_CACHE_SIZE", 256),

		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 60),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "veraz"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "query_audit"),

		GoogleSpreadsheetID:      getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleAuditSheetName:     getEnv("GOOGLE_AUDIT_SHEET_NAME", "Consultas"),
		GoogleServiceAccountJSON: getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", ""),
		AuditBatchSize:           getEnvInt("AUDIT_BATCH_SIZE", 10),
		AuditSyncInterval:        getEnvDuration("AUDIT_SYNC_INTERVAL", 5*time.Minute),
	}
}

// Validate checks the configuration and reports every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch strings.ToLower(c.LogFormat) {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be text or json", c.LogFormat))
	}

	if !oneOf(c.UserBackend, "sqlite", "memory") {
		errors = append(errors, fmt.Sprintf("invalid user backend '%s': must be one of [memory sqlite]", c.UserBackend))
	}
	if c.UserBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0o755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		errors = append(errors, "ADMIN_USERNAME and ADMIN_PASSWORD must be set together")
	}

	if !oneOf(c.RegistryBackend, "bcra", "memory") {
		errors = append(errors, fmt.Sprintf("invalid registry backend '%s': must be one of [bcra memory]", c.RegistryBackend))
	}
	if c.RegistryBackend == "bcra" {
		if u, err := url.Parse(c.RegistryBaseURL); err != nil || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid registry base URL '%s'", c.RegistryBaseURL))
		} else if u.Scheme != "http" && u.Scheme != "https" {
			errors = append(errors, fmt.Sprintf("invalid registry URL scheme '%s': must be 'http' or 'https'", u.Scheme))
		}
		if c.RegistryTimeout <= 0 {
			errors = append(errors, fmt.Sprintf("invalid registry timeout %v: must be positive", c.RegistryTimeout))
		}
	}
	if c.RegistryBackend == "memory" && c.RegistryDataDir == "" {
		errors = append(errors, "registry data directory cannot be empty when using memory registry")
	}

	if len(c.JWTSecret) < 32 {
		errors = append(errors, "JWT_SECRET must be at least 32 characters")
	}
	if c.SessionTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid session TTL %v: must be at least 1 minute", c.SessionTTL))
	}

	if c.SnapshotCacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid snapshot cache size %d: must be at least 1", c.SnapshotCacheSize))
	}
	if c.SnapshotTTL <= 0 {
		errors = append(errors, fmt.Sprintf("invalid snapshot TTL %v: must be positive", c.SnapshotTTL))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 per minute", c.RateLimitPerMinute))
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

// ValidateWorker checks the settings the audit worker needs on top of AMQP.
func (c *Config) ValidateWorker() error {
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the audit worker")
	}
	if c.GoogleSpreadsheetID == "" {
		errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the audit worker")
	}
	if c.GoogleAuditSheetName == "" {
		errors = append(errors, "GOOGLE_AUDIT_SHEET_NAME cannot be empty")
	}
	if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
	}
	if c.AuditBatchSize < 1 || c.AuditBatchSize > 1000 {
		errors = append(errors, fmt.Sprintf("invalid audit batch size %d: must be between 1 and 1000", c.AuditBatchSize))
	}
	if c.AuditSyncInterval < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid audit sync interval %v: must be at least 1 minute", c.AuditSyncInterval))
	}
	if len(errors) > 0 {
		return fmt.Errorf("worker configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
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
