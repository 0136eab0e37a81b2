package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"climateprep/internal/errors"
)

// Supported report store drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config represents the complete application configuration
type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Pipeline  PipelineConfig
	Profiling ProfilingConfig
	LogLevel  string
}

// DatabaseConfig holds report store settings. An empty URL selects the
// in-memory store.
type DatabaseConfig struct {
	Driver string
	URL    string
}

// InMemory reports whether reports are kept in process memory only
func (d DatabaseConfig) InMemory() bool {
	return d.URL == ""
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port           string
	GinMode        string
	MaxUploadBytes int64
}

// PipelineConfig holds processing limits
type PipelineConfig struct {
	BatchConcurrency      int
	BatchMaxInflightBytes int64
	ProcessTimeout        time.Duration
	SchemaFile            string
}

// ProfilingConfig holds performance profiling settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: loadDatabaseConfig(),
		Server: ServerConfig{
			Port:           getEnvOrDefault("PORT", "8080"),
			GinMode:        getEnvOrDefault("GIN_MODE", "debug"),
			MaxUploadBytes: getEnvInt64OrDefault("MAX_UPLOAD_BYTES", 50<<20),
		},
		Pipeline: PipelineConfig{
			BatchConcurrency:      getEnvIntOrDefault("BATCH_CONCURRENCY", 4),
			BatchMaxInflightBytes: getEnvInt64OrDefault("BATCH_MAX_INFLIGHT_BYTES", 256<<20),
			ProcessTimeout:        getEnvDurationOrDefault("PROCESS_TIMEOUT", 2*time.Minute),
			SchemaFile:            getEnvOrDefault("SCHEMA_FILE", ""),
		},
		Profiling: ProfilingConfig{
			Port:    getEnvOrDefault("PROFILING_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("PROFILING_ENABLED", false),
		},
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() DatabaseConfig {
	// DATABASE_URL set to the empty string selects the in-memory store
	url, ok := os.LookupEnv("DATABASE_URL")
	if !ok {
		url = "climateprep.db"
	}
	return DatabaseConfig{
		Driver: strings.ToLower(getEnvOrDefault("DATABASE_DRIVER", DriverSQLite)),
		URL:    url,
	}
}

// Validate rejects non-positive limits and unknown drivers
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverSQLite, DriverPostgres:
	default:
		return errors.ConfigInvalid(fmt.Sprintf("unknown DATABASE_DRIVER %q", c.Database.Driver))
	}
	if c.Server.Port == "" {
		return errors.ConfigInvalid("PORT is required")
	}
	if c.Server.MaxUploadBytes <= 0 {
		return errors.ConfigInvalid("MAX_UPLOAD_BYTES must be positive")
	}
	if c.Pipeline.BatchConcurrency <= 0 {
		return errors.ConfigInvalid("BATCH_CONCURRENCY must be positive")
	}
	if c.Pipeline.BatchMaxInflightBytes <= 0 {
		return errors.ConfigInvalid("BATCH_MAX_INFLIGHT_BYTES must be positive")
	}
	if c.Pipeline.BatchMaxInflightBytes < c.Server.MaxUploadBytes {
		return errors.ConfigInvalid("BATCH_MAX_INFLIGHT_BYTES must be at least MAX_UPLOAD_BYTES")
	}
	if c.Pipeline.ProcessTimeout <= 0 {
		return errors.ConfigInvalid("PROCESS_TIMEOUT must be positive")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
