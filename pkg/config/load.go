package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns
// any errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns a fully defaulted configuration without reading any
// file. Used when no configuration file is given.
func Default() *Config {
	var cfg Config
	ApplyDefaults(&cfg)
	return &cfg
}

// DefaultWithEnvOverrides returns the default configuration with
// environment variable overrides applied, for running without a
// configuration file.
func DefaultWithEnvOverrides() (*Config, error) {
	cfg := Default()
	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}
	return cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and
// applies environment variable overrides. Variables follow the naming
// convention CALLISTO_SECTION_FIELD (e.g. CALLISTO_SERVER_LISTEN_ADDRESS)
// and always take precedence over file-based configuration.
//
// The loading sequence is:
//  1. Load YAML from file
//  2. Apply default values
//  3. Apply environment variable overrides
//  4. Validate the final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration using the CALLISTO_SECTION_FIELD convention.
func applyEnvOverrides(cfg *Config) {
	// Server
	if val := os.Getenv("CALLISTO_SERVER_LISTEN_ADDRESS"); val != "" {
		cfg.Server.ListenAddress = val
	}
	if d, ok := envDuration("CALLISTO_SERVER_READ_TIMEOUT"); ok {
		cfg.Server.ReadTimeout = d
	}
	if d, ok := envDuration("CALLISTO_SERVER_WRITE_TIMEOUT"); ok {
		cfg.Server.WriteTimeout = d
	}
	if d, ok := envDuration("CALLISTO_SERVER_SHUTDOWN_TIMEOUT"); ok {
		cfg.Server.ShutdownTimeout = d
	}

	// Backend
	if val := os.Getenv("CALLISTO_BACKEND_PATH"); val != "" {
		cfg.Backend.Path = val
	}
	if val := os.Getenv("CALLISTO_BACKEND_DEFAULT_MODEL"); val != "" {
		cfg.Backend.DefaultModel = val
	}
	if i, ok := envInt("CALLISTO_BACKEND_DEFAULT_MAX_TOKENS"); ok {
		cfg.Backend.DefaultMaxTokens = i
	}
	if val := os.Getenv("CALLISTO_BACKEND_DEFAULT_TEMPERATURE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Backend.DefaultTemperature = &f
		}
	}
	if d, ok := envDuration("CALLISTO_BACKEND_TIMEOUT"); ok {
		cfg.Backend.Timeout = d
	}
	if val := os.Getenv("CALLISTO_BACKEND_INPUT_FORMAT"); val != "" {
		cfg.Backend.InputFormat = val
	}

	// Auth
	if b, ok := envBool("CALLISTO_AUTH_ENABLED"); ok {
		cfg.Auth.Enabled = b
	}
	if val := os.Getenv("CALLISTO_AUTH_API_KEYS"); val != "" {
		cfg.Auth.APIKeys = splitAndTrim(val)
	}

	// Limits
	if i, ok := envInt("CALLISTO_LIMITS_MAX_CONCURRENT"); ok {
		cfg.Limits.MaxConcurrent = i
	}
	if d, ok := envDuration("CALLISTO_LIMITS_QUEUE_TIMEOUT"); ok {
		cfg.Limits.QueueTimeout = d
	}

	// Usage
	if b, ok := envBool("CALLISTO_USAGE_ENABLED"); ok {
		cfg.Usage.Enabled = b
	}
	if val := os.Getenv("CALLISTO_USAGE_BACKEND"); val != "" {
		cfg.Usage.Backend = val
	}
	if val := os.Getenv("CALLISTO_USAGE_SQLITE_PATH"); val != "" {
		cfg.Usage.SQLitePath = val
	}
	if i, ok := envInt("CALLISTO_USAGE_RETENTION_DAYS"); ok {
		cfg.Usage.Retention.Days = i
	}

	// Telemetry
	if val := os.Getenv("CALLISTO_LOGGING_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("CALLISTO_LOGGING_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
	if b, ok := envBool("CALLISTO_METRICS_ENABLED"); ok {
		cfg.Telemetry.Metrics.Enabled = b
	}
}

func envDuration(key string) (time.Duration, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, false
	}
	return d, true
}

func envInt(key string) (int, bool) {
	val := os.Getenv(key)
	if val == "" {
		return 0, false
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return 0, false
	}
	return i, true
}

func envBool(key string) (bool, bool) {
	val := os.Getenv(key)
	if val == "" {
		return false, false
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return b, true
}

func splitAndTrim(val string) []string {
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
