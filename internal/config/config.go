// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/aristath/folio/internal/format"
	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	LogLevel  string
	LogPretty bool
	Port      int
	DevMode   bool
	Currency  string // ISO 4217 code used when formatting amounts

	EntityStore EntityStoreConfig

	CacheSweepSchedule string // cron schedule of the query cache sweep
}

// EntityStoreConfig describes how to reach the entity store, and how the
// reference entity store serves itself
type EntityStoreConfig struct {
	URL     string
	Timeout time.Duration
	Watch   bool // follow the change feed and invalidate on out-of-band writes

	Port   int    // listen port of cmd/entitystore
	DBPath string // SQLite file of cmd/entitystore, always absolute
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dbPath, err := filepath.Abs(getEnv("ENTITY_STORE_DB", "./data/entitystore.db"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve entity store database path: %w", err)
	}

	cfg := &Config{
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogPretty: getEnvAsBool("LOG_PRETTY", false),
		Port:      getEnvAsInt("PORT", 8001),
		DevMode:   getEnvAsBool("DEV_MODE", false),
		Currency:  strings.ToUpper(getEnv("CURRENCY", format.DefaultCurrency)),
		EntityStore: EntityStoreConfig{
			URL:     strings.TrimRight(getEnv("ENTITY_STORE_URL", "http://localhost:8080"), "/"),
			Timeout: getEnvAsDuration("ENTITY_STORE_TIMEOUT", 10*time.Second),
			Watch:   getEnvAsBool("ENTITY_STORE_WATCH", false),
			Port:    getEnvAsInt("ENTITY_STORE_PORT", 8080),
			DBPath:  dbPath,
		},
		CacheSweepSchedule: getEnv("CACHE_SWEEP_SCHEDULE", "@every 1m"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects malformed values
func (c *Config) Validate() error {
	if err := validatePort("PORT", c.Port); err != nil {
		return err
	}
	if err := validatePort("ENTITY_STORE_PORT", c.EntityStore.Port); err != nil {
		return err
	}

	u, err := url.Parse(c.EntityStore.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("ENTITY_STORE_URL must be an absolute http(s) URL, got %q", c.EntityStore.URL)
	}

	if c.EntityStore.Timeout <= 0 {
		return fmt.Errorf("ENTITY_STORE_TIMEOUT must be positive, got %s", c.EntityStore.Timeout)
	}

	if !format.ValidCurrency(c.Currency) {
		return fmt.Errorf("CURRENCY must be an ISO 4217 code, got %q", c.Currency)
	}

	if strings.TrimSpace(c.CacheSweepSchedule) == "" {
		return fmt.Errorf("CACHE_SWEEP_SCHEDULE must not be empty")
	}

	return nil
}

func validatePort(key string, port int) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535, got %d", key, port)
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvAsDuration accepts Go durations ("10s") or a bare number of seconds
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}
