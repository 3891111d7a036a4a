package config

import (
	"os"
	"strconv"
	"time"

	"riskcorr/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Data      DataConfig
	Analysis  AnalysisConfig
	Profiling ProfilingConfig
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port    string
	GinMode string
}

// DatabaseConfig holds database connection settings. Optional: when URL is
// empty the workbook source is used instead.
type DatabaseConfig struct {
	URL string
}

// DataConfig holds file-based data source settings
type DataConfig struct {
	WorkbookFile string
}

// AnalysisConfig holds engine tuning knobs
type AnalysisConfig struct {
	FetchConcurrency int           // parallel series fetches, capped small to protect the data source
	RequestTimeout   time.Duration // wall-clock bound on fetch + compute
}

// ProfilingConfig holds the ops listener settings
type ProfilingConfig struct {
	Port    string
	Enabled bool
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Port:    getEnvOrDefault("PORT", "8080"),
			GinMode: getEnvOrDefault("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			URL: getEnvOrDefault("DATABASE_URL", ""),
		},
		Data: DataConfig{
			WorkbookFile: getEnvOrDefault("WORKBOOK_FILE", ""),
		},
		Analysis: AnalysisConfig{
			FetchConcurrency: getEnvIntOrDefault("FETCH_CONCURRENCY", 8),
			RequestTimeout:   getEnvDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
		},
		Profiling: ProfilingConfig{
			Port:    getEnvOrDefault("PPROF_PORT", "6060"),
			Enabled: getEnvBoolOrDefault("PPROF_ENABLED", false),
		},
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func validateConfig(config *Config) error {
	if config.Database.URL == "" && config.Data.WorkbookFile == "" {
		return errors.ConfigInvalid("either DATABASE_URL or WORKBOOK_FILE is required")
	}
	if config.Analysis.FetchConcurrency < 1 {
		return errors.ConfigInvalid("FETCH_CONCURRENCY must be >= 1")
	}
	if config.Analysis.RequestTimeout <= 0 {
		return errors.ConfigInvalid("REQUEST_TIMEOUT must be positive")
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
