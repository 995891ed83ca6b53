package metrics

import (
	"time"

	"mercator-hq/callisto/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector is the orchestrator for all Prometheus metrics in Callisto.
// It owns the registry, registers the metric families at construction,
// and provides typed recording methods for the rest of the proxy.
//
// All recording methods are no-ops when metrics are disabled, so callers
// never need to guard their calls.
type Collector struct {
	config   *config.MetricsConfig
	registry *prometheus.Registry

	requestMetrics *RequestMetrics
	backendMetrics *BackendMetrics
}

// NewCollector creates a metrics collector with the specified
// configuration and Prometheus registry. If registry is nil, a fresh
// registry is created.
func NewCollector(cfg *config.MetricsConfig, registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	if cfg.Namespace == "" {
		cfg.Namespace = "callisto"
	}
	if cfg.Subsystem == "" {
		cfg.Subsystem = "proxy"
	}
	if len(cfg.RequestDurationBuckets) == 0 {
		// Backend invocations run far longer than typical HTTP
		// handlers, so the buckets extend to two minutes.
		cfg.RequestDurationBuckets = []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0, 60.0, 120.0}
	}

	c := &Collector{
		config:   cfg,
		registry: registry,
	}

	c.requestMetrics = NewRequestMetrics(cfg, registry)
	c.backendMetrics = NewBackendMetrics(cfg, registry)

	return c
}

// Registry returns the underlying Prometheus registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RecordRequest records metrics for a completed proxy request.
//
// dialect is the inbound API shape ("openai" or "anthropic"), status is
// the outcome ("success", "error", "timeout", "canceled"), and tokens
// are taken from the backend's reported usage.
func (c *Collector) RecordRequest(dialect, model, status string, duration time.Duration, promptTokens, completionTokens int) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRequest(dialect, model, status, duration)
	c.requestMetrics.RecordTokens(dialect, model, promptTokens, completionTokens)
}

// RecordBackendInvocation records the terminal state and exit of one
// backend subprocess.
func (c *Collector) RecordBackendInvocation(state string, exitCode int, duration time.Duration) {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.RecordInvocation(state, exitCode, duration)
}

// BackendStarted marks one backend subprocess as running.
func (c *Collector) BackendStarted() {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.InFlightInc()
}

// BackendFinished marks one backend subprocess as done.
func (c *Collector) BackendFinished() {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.InFlightDec()
}

// RecordStreamEvent counts one line read from a streaming backend,
// classified as "assistant", "system", "malformed", or "oversized".
func (c *Collector) RecordStreamEvent(kind string) {
	if !c.config.Enabled {
		return
	}
	c.backendMetrics.RecordStreamEvent(kind)
}

// RecordRejection counts a request rejected before reaching the
// backend, labeled by reason ("unauthorized", "queue_full", "invalid").
func (c *Collector) RecordRejection(reason string) {
	if !c.config.Enabled {
		return
	}
	c.requestMetrics.RecordRejection(reason)
}
