package config

import "time"

// Config is the root configuration structure for Callisto.
// It contains all configuration sections for the HTTP server, the
// backend CLI execution engine, authentication, admission limits,
// usage recording, and telemetry.
type Config struct {
	// Server contains HTTP server configuration including listen
	// address, timeouts, and CORS settings.
	Server ServerConfig `yaml:"server"`

	// Backend contains configuration for the backend CLI subprocess:
	// executable path, defaults, and the execution timeout.
	Backend BackendConfig `yaml:"backend"`

	// Auth contains API key authentication configuration.
	Auth AuthConfig `yaml:"auth"`

	// Limits contains concurrency admission configuration.
	Limits LimitsConfig `yaml:"limits"`

	// Usage contains configuration for per-request usage recording.
	Usage UsageConfig `yaml:"usage"`

	// Telemetry contains observability configuration: logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ServerConfig contains configuration for the HTTP server.
type ServerConfig struct {
	// ListenAddress is the address and port to listen on.
	// Format: "host:port". Default: "127.0.0.1:8080"
	ListenAddress string `yaml:"listen_address"`

	// ReadTimeout is the maximum duration for reading the entire
	// request, including the body. Default: 30s
	ReadTimeout time.Duration `yaml:"read_timeout"`

	// WriteTimeout is the maximum duration before timing out response
	// writes. Zero means no timeout. The default is zero: SSE streams
	// stay open as long as the backend is producing output, so a fixed
	// write deadline would sever healthy streams.
	WriteTimeout time.Duration `yaml:"write_timeout"`

	// IdleTimeout is the keep-alive idle limit. Default: 120s
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// ShutdownTimeout is the maximum duration to wait for graceful
	// shutdown before in-flight requests are abandoned. Default: 30s
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	// AdminTimeout is the per-request timeout applied to the
	// administrative routes (health, readiness, metrics). Completion
	// routes are governed by the backend execution timeout instead.
	// Default: 10s
	AdminTimeout time.Duration `yaml:"admin_timeout"`

	// MaxHeaderBytes limits request header size. Default: 1MB
	MaxHeaderBytes int `yaml:"max_header_bytes"`

	// CORS contains Cross-Origin Resource Sharing configuration.
	CORS CORSConfig `yaml:"cors"`
}

// CORSConfig contains CORS (Cross-Origin Resource Sharing) configuration.
type CORSConfig struct {
	// Enabled controls whether CORS is enabled. Default: true
	Enabled bool `yaml:"enabled"`

	// AllowedOrigins is a list of allowed origins. Use ["*"] to allow
	// all origins. Default: ["*"]
	AllowedOrigins []string `yaml:"allowed_origins"`

	// AllowedMethods is a list of allowed HTTP methods.
	// Default: ["GET", "POST", "OPTIONS"]
	AllowedMethods []string `yaml:"allowed_methods"`

	// AllowedHeaders is a list of allowed HTTP headers.
	AllowedHeaders []string `yaml:"allowed_headers"`

	// ExposedHeaders is a list of headers exposed to the client.
	// Default: ["X-Request-ID"]
	ExposedHeaders []string `yaml:"exposed_headers"`

	// MaxAge is the preflight cache age in seconds. Default: 3600
	MaxAge int `yaml:"max_age"`

	// AllowCredentials controls whether credentials are allowed.
	// Default: false
	AllowCredentials bool `yaml:"allow_credentials"`
}

// BackendConfig contains configuration for the backend CLI subprocess.
type BackendConfig struct {
	// Path is the backend executable. Resolved via PATH when not
	// absolute. Default: "claude"
	Path string `yaml:"path"`

	// DefaultModel is used when a request does not name a model.
	DefaultModel string `yaml:"default_model"`

	// DefaultMaxTokens bounds completion length when a request does
	// not. Zero means no bound is sent to the backend.
	DefaultMaxTokens int `yaml:"default_max_tokens"`

	// DefaultTemperature is used when a request does not set one.
	// Nil means no temperature is sent.
	DefaultTemperature *float64 `yaml:"default_temperature"`

	// Timeout is the wall-clock execution timeout per invocation.
	// Default: 2m
	Timeout time.Duration `yaml:"timeout"`

	// InputFormat selects how chat turns reach the backend's stdin:
	// "text" (labeled plain text) or "stream-json" (one JSON object
	// per line). Default: "stream-json"
	InputFormat string `yaml:"input_format"`
}

// AuthConfig contains API key authentication configuration.
type AuthConfig struct {
	// Enabled controls whether API key authentication is enforced.
	// Default: false (local development)
	Enabled bool `yaml:"enabled"`

	// APIKeys is the list of accepted API keys. Required when Enabled.
	APIKeys []string `yaml:"api_keys"`
}

// LimitsConfig contains concurrency admission configuration.
type LimitsConfig struct {
	// MaxConcurrent caps the number of backend subprocesses running at
	// once. Zero disables the cap. Default: 8
	MaxConcurrent int `yaml:"max_concurrent"`

	// QueueTimeout is how long a request waits for an execution slot
	// before being rejected with 429. Default: 10s
	QueueTimeout time.Duration `yaml:"queue_timeout"`
}

// UsageConfig contains per-request usage recording configuration.
type UsageConfig struct {
	// Enabled controls whether usage records are written. Default: true
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend: "sqlite" or "memory".
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLitePath is the database file path for the sqlite backend.
	// Default: "data/usage.db"
	SQLitePath string `yaml:"sqlite_path"`

	// BusyTimeout is the sqlite busy handler timeout. Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`

	// Retention configures automatic pruning of old usage records.
	Retention RetentionConfig `yaml:"retention"`
}

// RetentionConfig configures usage record retention.
type RetentionConfig struct {
	// Days is how long records are kept. Zero disables age-based
	// pruning. Default: 90
	Days int `yaml:"days"`

	// Schedule is the cron expression for the pruning job.
	// Default: "0 3 * * *" (daily at 03:00)
	Schedule string `yaml:"schedule"`

	// MaxRecords caps the table size; the oldest records beyond the
	// cap are pruned. Zero disables the cap.
	MaxRecords int64 `yaml:"max_records"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format: "json" or "text". Default: "json"
	Format string `yaml:"format"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected and exposed.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metric name prefix. Default: "callisto"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric name subsystem. Default: "proxy"
	Subsystem string `yaml:"subsystem"`

	// Path is the scrape endpoint path. Default: "/metrics"
	Path string `yaml:"path"`

	// RequestDurationBuckets overrides the latency histogram buckets.
	RequestDurationBuckets []float64 `yaml:"request_duration_buckets"`
}
