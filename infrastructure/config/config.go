package config

import (
	"os"
	"strconv"
	"time"

	"rxsync/pkg/utils"
)

// Config holds all sync-layer configuration
type Config struct {
	// Environment selects logger construction and defaults
	Environment string `validate:"oneof=development production test"`
	LogLevel    string

	// Remote API
	APIBaseURL     string `validate:"required,url"`
	HealthCheckURL string `validate:"required,url"`

	// Listen address for the bundled mock API server
	ServerAddress string `validate:"required"`

	// Cache budgets
	CacheMaxEntries           int           `validate:"gt=0"`
	CacheMaxSizeBytes         int64         `validate:"gt=0"`
	CacheCompressionThreshold int           `validate:"gt=0"`
	CacheDefaultTTL           time.Duration `validate:"gt=0"`
	CacheSweepInterval        time.Duration `validate:"gt=0"`

	// Retry defaults for fetches
	RetryAttempts int           `validate:"gte=1"`
	RetryDelay    time.Duration `validate:"gt=0"`

	// Connectivity probe
	ProbeInterval time.Duration `validate:"gt=0"`
	ProbeTimeout  time.Duration `validate:"gt=0"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		APIBaseURL:     getEnv("API_BASE_URL", "http://localhost:8080"),
		HealthCheckURL: getEnv("HEALTH_CHECK_URL", "http://localhost:8080/health"),
		ServerAddress:  getEnv("SERVER_ADDRESS", ":8080"),

		CacheMaxEntries:           getEnvInt("CACHE_MAX_ENTRIES", 1000),
		CacheMaxSizeBytes:         getEnvInt64("CACHE_MAX_SIZE_BYTES", 10<<20),
		CacheCompressionThreshold: getEnvInt("CACHE_COMPRESSION_THRESHOLD", 10<<10),
		CacheDefaultTTL:           getEnvDuration("CACHE_DEFAULT_TTL", 5*time.Minute),
		CacheSweepInterval:        getEnvDuration("CACHE_SWEEP_INTERVAL", time.Minute),

		RetryAttempts: getEnvInt("RETRY_ATTEMPTS", 3),
		RetryDelay:    getEnvDuration("RETRY_DELAY", 500*time.Millisecond),

		ProbeInterval: getEnvDuration("PROBE_INTERVAL", 30*time.Second),
		ProbeTimeout:  getEnvDuration("PROBE_TIMEOUT", 5*time.Second),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks that budgets and endpoints are usable
func (c *Config) Validate() error {
	return utils.ValidateStruct(c)
}

// IsDevelopment checks if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction checks if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an integer environment variable with a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvInt64 gets a 64-bit integer environment variable with a default value
func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration gets a duration environment variable with a default value
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
