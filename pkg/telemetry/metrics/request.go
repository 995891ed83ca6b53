package metrics

import (
	"time"

	"mercator-hq/callisto/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RequestMetrics tracks proxy-level request metrics.
//
// Metrics:
//   - callisto_proxy_requests_total: request count by dialect, model, status
//   - callisto_proxy_request_duration_seconds: end-to-end duration histogram
//   - callisto_proxy_request_tokens_total: token counts by direction
//   - callisto_proxy_rejections_total: requests rejected before execution
type RequestMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	tokensTotal     *prometheus.CounterVec
	rejectionsTotal *prometheus.CounterVec
}

// NewRequestMetrics creates and registers request metrics with the
// provided registry.
func NewRequestMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RequestMetrics {
	rm := &RequestMetrics{
		requestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "requests_total",
				Help:      "Total number of completion requests processed",
			},
			[]string{"dialect", "model", "status"},
		),

		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_duration_seconds",
				Help:      "End-to-end duration of completion requests in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
			[]string{"dialect", "model"},
		),

		tokensTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "request_tokens_total",
				Help:      "Total tokens reported by the backend",
			},
			[]string{"dialect", "model", "type"},
		),

		rejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rejections_total",
				Help:      "Requests rejected before backend execution",
			},
			[]string{"reason"},
		),
	}

	registry.MustRegister(
		rm.requestsTotal,
		rm.requestDuration,
		rm.tokensTotal,
		rm.rejectionsTotal,
	)

	return rm
}

// RecordRequest records the outcome and duration of one request.
func (rm *RequestMetrics) RecordRequest(dialect, model, status string, duration time.Duration) {
	rm.requestsTotal.WithLabelValues(dialect, model, status).Inc()
	rm.requestDuration.WithLabelValues(dialect, model).Observe(duration.Seconds())
}

// RecordTokens records the backend-reported token usage for one request.
func (rm *RequestMetrics) RecordTokens(dialect, model string, promptTokens, completionTokens int) {
	if promptTokens > 0 {
		rm.tokensTotal.WithLabelValues(dialect, model, "prompt").Add(float64(promptTokens))
	}
	if completionTokens > 0 {
		rm.tokensTotal.WithLabelValues(dialect, model, "completion").Add(float64(completionTokens))
	}
}

// RecordRejection counts a request rejected before execution.
func (rm *RequestMetrics) RecordRejection(reason string) {
	rm.rejectionsTotal.WithLabelValues(reason).Inc()
}
