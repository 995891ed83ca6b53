package config

import (
	"fmt"
	"net"
	"strings"
)

// ValidationError describes one invalid configuration field.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config field %q: %s", e.Field, e.Message)
}

// Validate checks the configuration for internal consistency. It is
// called after defaults are applied, so zero values that defaults would
// have filled indicate a deliberate (and possibly wrong) setting.
func Validate(cfg *Config) error {
	if err := validateServer(&cfg.Server); err != nil {
		return err
	}
	if err := validateBackend(&cfg.Backend); err != nil {
		return err
	}
	if err := validateAuth(&cfg.Auth); err != nil {
		return err
	}
	if err := validateLimits(&cfg.Limits); err != nil {
		return err
	}
	if err := validateUsage(&cfg.Usage); err != nil {
		return err
	}
	if err := validateTelemetry(&cfg.Telemetry); err != nil {
		return err
	}
	return nil
}

func validateServer(cfg *ServerConfig) error {
	if _, _, err := net.SplitHostPort(cfg.ListenAddress); err != nil {
		return &ValidationError{
			Field:   "server.listen_address",
			Message: fmt.Sprintf("must be host:port, got %q", cfg.ListenAddress),
		}
	}
	if cfg.ReadTimeout < 0 {
		return &ValidationError{
			Field:   "server.read_timeout",
			Message: "must not be negative",
		}
	}
	if cfg.ShutdownTimeout <= 0 {
		return &ValidationError{
			Field:   "server.shutdown_timeout",
			Message: "must be positive",
		}
	}
	return nil
}

func validateBackend(cfg *BackendConfig) error {
	if cfg.Path == "" {
		return &ValidationError{
			Field:   "backend.path",
			Message: "backend executable path is required",
		}
	}
	if cfg.Timeout <= 0 {
		return &ValidationError{
			Field:   "backend.timeout",
			Message: "must be positive",
		}
	}
	if cfg.DefaultMaxTokens < 0 {
		return &ValidationError{
			Field:   "backend.default_max_tokens",
			Message: "must not be negative",
		}
	}
	if cfg.DefaultTemperature != nil && (*cfg.DefaultTemperature < 0 || *cfg.DefaultTemperature > 2) {
		return &ValidationError{
			Field:   "backend.default_temperature",
			Message: "must be between 0.0 and 2.0",
		}
	}
	switch cfg.InputFormat {
	case "text", "stream-json":
	default:
		return &ValidationError{
			Field:   "backend.input_format",
			Message: fmt.Sprintf("must be \"text\" or \"stream-json\", got %q", cfg.InputFormat),
		}
	}
	return nil
}

func validateAuth(cfg *AuthConfig) error {
	if !cfg.Enabled {
		return nil
	}
	if len(cfg.APIKeys) == 0 {
		return &ValidationError{
			Field:   "auth.api_keys",
			Message: "at least one API key is required when auth is enabled",
		}
	}
	for i, key := range cfg.APIKeys {
		if strings.TrimSpace(key) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("auth.api_keys[%d]", i),
				Message: "API key must not be blank",
			}
		}
	}
	return nil
}

func validateLimits(cfg *LimitsConfig) error {
	if cfg.MaxConcurrent < 0 {
		return &ValidationError{
			Field:   "limits.max_concurrent",
			Message: "must not be negative",
		}
	}
	if cfg.QueueTimeout < 0 {
		return &ValidationError{
			Field:   "limits.queue_timeout",
			Message: "must not be negative",
		}
	}
	return nil
}

func validateUsage(cfg *UsageConfig) error {
	switch cfg.Backend {
	case "sqlite", "memory":
	default:
		return &ValidationError{
			Field:   "usage.backend",
			Message: fmt.Sprintf("must be \"sqlite\" or \"memory\", got %q", cfg.Backend),
		}
	}
	if cfg.Backend == "sqlite" && cfg.SQLitePath == "" {
		return &ValidationError{
			Field:   "usage.sqlite_path",
			Message: "sqlite backend requires a database path",
		}
	}
	if cfg.Retention.Days < 0 {
		return &ValidationError{
			Field:   "usage.retention.days",
			Message: "must not be negative",
		}
	}
	if cfg.Retention.MaxRecords < 0 {
		return &ValidationError{
			Field:   "usage.retention.max_records",
			Message: "must not be negative",
		}
	}
	return nil
}

func validateTelemetry(cfg *TelemetryConfig) error {
	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.level",
			Message: fmt.Sprintf("must be debug, info, warn, or error, got %q", cfg.Logging.Level),
		}
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.format",
			Message: fmt.Sprintf("must be json or text, got %q", cfg.Logging.Format),
		}
	}
	if cfg.Metrics.Enabled && !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return &ValidationError{
			Field:   "telemetry.metrics.path",
			Message: "must start with /",
		}
	}
	return nil
}
