// Package config loads and validates environment-based configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default OSRM endpoints: the managed per-profile instances the project runs
// on Cloud Run. Overridable for self-hosted OSRM or local development.
const (
	defaultOSRMCarURL     = "https://osrm-car-q2drvffsoa-as.a.run.app"
	defaultOSRMBicycleURL = "https://osrm-bicycle-q2drvffsoa-as.a.run.app"
	defaultOSRMFootURL    = "https://osrm-foot-q2drvffsoa-as.a.run.app"
)

// ConfigError represents a configuration error.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config error: field %q: %s", e.Field, e.Message)
}

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	Port int

	// Per-profile OSRM base URLs.
	OSRMCarURL     string
	OSRMBicycleURL string
	OSRMFootURL    string

	// EngineTimeout bounds each OSRM call.
	EngineTimeout time.Duration

	// CacheCapacity bounds the in-memory LRU route cache.
	CacheCapacity int

	// MaxConcurrentFetches caps concurrent engine calls per batch.
	MaxConcurrentFetches int

	// DBDSN, when set, switches the route cache to the Postgres-backed
	// store shared across instances. Empty means in-memory.
	DBDSN string
}

// Load reads and validates the environment. Returns a ConfigError for any
// invalid value; every variable has a working default.
func Load() (*Config, error) {
	cfg := &Config{
		OSRMCarURL:     envOrDefault("OSRM_CAR_URL", defaultOSRMCarURL),
		OSRMBicycleURL: envOrDefault("OSRM_BICYCLE_URL", defaultOSRMBicycleURL),
		OSRMFootURL:    envOrDefault("OSRM_FOOT_URL", defaultOSRMFootURL),
		EngineTimeout:  parseDurationEnv("ENGINE_TIMEOUT", 10*time.Second),
		DBDSN:          os.Getenv("DB_DSN"),
	}

	port, err := parseIntEnv("PORT", 8080)
	if err != nil {
		return nil, err
	}
	cfg.Port = port

	capacity, err := parseIntEnv("CACHE_CAPACITY", 1000)
	if err != nil {
		return nil, err
	}
	cfg.CacheCapacity = capacity

	maxFetches, err := parseIntEnv("MAX_CONCURRENT_FETCHES", 8)
	if err != nil {
		return nil, err
	}
	cfg.MaxConcurrentFetches = maxFetches

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate re-checks required fields on an already-constructed Config.
func (c *Config) Validate() error {
	var errs []error
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, &ConfigError{Field: "PORT", Message: "must be between 1 and 65535"})
	}
	if c.OSRMCarURL == "" || c.OSRMBicycleURL == "" || c.OSRMFootURL == "" {
		errs = append(errs, &ConfigError{Field: "OSRM_*_URL", Message: "OSRM endpoints cannot be empty"})
	}
	if c.EngineTimeout <= 0 {
		errs = append(errs, &ConfigError{Field: "ENGINE_TIMEOUT", Message: "must be positive"})
	}
	if c.CacheCapacity < 1 {
		errs = append(errs, &ConfigError{Field: "CACHE_CAPACITY", Message: "must be at least 1"})
	}
	if c.MaxConcurrentFetches < 1 {
		errs = append(errs, &ConfigError{Field: "MAX_CONCURRENT_FETCHES", Message: "must be at least 1"})
	}
	return errors.Join(errs...)
}

// envOrDefault reads a string environment variable with a fallback.
func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// parseIntEnv reads an integer from an environment variable, falling back to
// defaultVal when unset. An unparseable value is a ConfigError, not a silent
// fallback: a typoed capacity should fail loudly at startup.
func parseIntEnv(key string, defaultVal int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &ConfigError{Field: key, Message: "must be a valid integer"}
	}
	return v, nil
}

// parseDurationEnv reads a duration from an environment variable.
// Falls back to defaultVal if the variable is unset or unparseable.
// Accepts Go duration strings like "5s", "500ms", "1m".
func parseDurationEnv(key string, defaultVal time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return defaultVal
	}
	return d
}
