package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable with STORE_BACKEND
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendRemote   = "remote"
)

// Backends lists every supported store backend
var Backends = []string{BackendMemory, BackendFile, BackendRedis, BackendSQLite, BackendPostgres, BackendRemote}

// Config holds application configuration
type Config struct {
	ServerPort       string
	FrontendURL      string
	EnableHSTS       bool
	StoreBackend     string
	DataFile         string
	SQLitePath       string
	DatabaseURL      string
	RedisURL         string
	RedisTodoKey     string
	APIURL           string
	RateLimit        string
	RateLimitRedis   bool
	RabbitMQURL      string
	RabbitMQPrefetch int
	MaxTextLength    int
	RejectDuplicates bool
	RefreshInterval  time.Duration
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		StoreBackend:     strings.ToLower(getEnv("STORE_BACKEND", BackendMemory)),
		DataFile:         getEnv("TODO_DATA_FILE", "todos.json"),
		SQLitePath:       getEnv("SQLITE_PATH", "todos.db"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RedisTodoKey:     getEnv("REDIS_TODO_KEY", "todos"),
		APIURL:           getEnv("TODO_API_URL", "http://localhost:8080"),
		RateLimit:        getEnv("RATE_LIMIT", "5-S"),
		RateLimitRedis:   getEnvBool("RATE_LIMIT_REDIS", false),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		MaxTextLength:    getEnvInt("TODO_MAX_TEXT_LENGTH", 30),
		RejectDuplicates: getEnvBool("TODO_REJECT_DUPLICATES", false),
		RefreshInterval:  getEnvDuration("TODO_REFRESH_INTERVAL", 5*time.Second),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the settings the selected backend depends on.
// Callers that override fields after Load should call it again.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendMemory, BackendFile, BackendSQLite:
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis backend")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendRemote:
		if c.APIURL == "" {
			return fmt.Errorf("TODO_API_URL is required for the remote backend")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (valid: %s)", c.StoreBackend, strings.Join(Backends, ", "))
	}

	if c.MaxTextLength <= 0 {
		return fmt.Errorf("TODO_MAX_TEXT_LENGTH must be positive, got %d", c.MaxTextLength)
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("TODO_REFRESH_INTERVAL must not be negative")
	}
	if c.RabbitMQPrefetch < 1 {
		c.RabbitMQPrefetch = 1
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("5s") or plain milliseconds ("5000")
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms, err := strconv.Atoi(value); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	return defaultValue
}
