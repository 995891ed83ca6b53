package config

import "time"

// Default values for configuration fields.
const (
	// Server defaults
	DefaultListenAddress   = "127.0.0.1:8080"
	DefaultReadTimeout     = 30 * time.Second
	DefaultWriteTimeout    = 0 * time.Second
	DefaultIdleTimeout     = 120 * time.Second
	DefaultShutdownTimeout = 30 * time.Second
	DefaultAdminTimeout    = 10 * time.Second
	DefaultMaxHeaderBytes  = 1048576 // 1MB

	// CORS defaults
	DefaultCORSEnabled          = true
	DefaultCORSMaxAge           = 3600
	DefaultCORSAllowCredentials = false

	// Backend defaults
	DefaultBackendPath    = "claude"
	DefaultBackendTimeout = 2 * time.Minute
	DefaultInputFormat    = "stream-json"

	// Limits defaults
	DefaultMaxConcurrent = 8
	DefaultQueueTimeout  = 10 * time.Second

	// Usage defaults
	DefaultUsageEnabled       = true
	DefaultUsageBackend       = "sqlite"
	DefaultUsageSQLitePath    = "data/usage.db"
	DefaultUsageBusyTimeout   = 5 * time.Second
	DefaultRetentionDays      = 90
	DefaultRetentionSchedule  = "0 3 * * *"
	DefaultRetentionMaxCount  = int64(0)

	// Telemetry defaults
	DefaultLoggingLevel   = "info"
	DefaultLoggingFormat  = "json"
	DefaultMetricsEnabled = true
	DefaultMetricsPath    = "/metrics"
	DefaultMetricsNS      = "callisto"
	DefaultMetricsSub     = "proxy"
)

// ApplyDefaults fills in default values for unset configuration fields.
// It is called after YAML parsing and before validation, so a minimal
// (or empty) configuration file yields a fully usable configuration.
func ApplyDefaults(cfg *Config) {
	// Server
	if cfg.Server.ListenAddress == "" {
		cfg.Server.ListenAddress = DefaultListenAddress
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = DefaultReadTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
	if cfg.Server.AdminTimeout == 0 {
		cfg.Server.AdminTimeout = DefaultAdminTimeout
	}
	if cfg.Server.MaxHeaderBytes == 0 {
		cfg.Server.MaxHeaderBytes = DefaultMaxHeaderBytes
	}

	// CORS
	if len(cfg.Server.CORS.AllowedOrigins) == 0 {
		cfg.Server.CORS.Enabled = DefaultCORSEnabled
		cfg.Server.CORS.AllowedOrigins = []string{"*"}
	}
	if len(cfg.Server.CORS.AllowedMethods) == 0 {
		cfg.Server.CORS.AllowedMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.Server.CORS.AllowedHeaders) == 0 {
		cfg.Server.CORS.AllowedHeaders = []string{"Authorization", "Content-Type", "X-Api-Key", "X-Request-ID", "X-User-ID"}
	}
	if len(cfg.Server.CORS.ExposedHeaders) == 0 {
		cfg.Server.CORS.ExposedHeaders = []string{"X-Request-ID"}
	}
	if cfg.Server.CORS.MaxAge == 0 {
		cfg.Server.CORS.MaxAge = DefaultCORSMaxAge
	}

	// Backend
	if cfg.Backend.Path == "" {
		cfg.Backend.Path = DefaultBackendPath
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = DefaultBackendTimeout
	}
	if cfg.Backend.InputFormat == "" {
		cfg.Backend.InputFormat = DefaultInputFormat
	}

	// Limits
	if cfg.Limits.MaxConcurrent == 0 {
		cfg.Limits.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.Limits.QueueTimeout == 0 {
		cfg.Limits.QueueTimeout = DefaultQueueTimeout
	}

	// Usage
	if cfg.Usage.Backend == "" {
		cfg.Usage.Enabled = DefaultUsageEnabled
		cfg.Usage.Backend = DefaultUsageBackend
	}
	if cfg.Usage.SQLitePath == "" {
		cfg.Usage.SQLitePath = DefaultUsageSQLitePath
	}
	if cfg.Usage.BusyTimeout == 0 {
		cfg.Usage.BusyTimeout = DefaultUsageBusyTimeout
	}
	if cfg.Usage.Retention.Days == 0 {
		cfg.Usage.Retention.Days = DefaultRetentionDays
	}
	if cfg.Usage.Retention.Schedule == "" {
		cfg.Usage.Retention.Schedule = DefaultRetentionSchedule
	}

	// Telemetry
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Enabled = DefaultMetricsEnabled
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNS
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSub
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if len(cfg.Telemetry.Metrics.RequestDurationBuckets) == 0 {
		// Backend invocations routinely run tens of seconds.
		cfg.Telemetry.Metrics.RequestDurationBuckets = []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0}
	}
}
