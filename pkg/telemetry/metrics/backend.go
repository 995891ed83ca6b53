package metrics

import (
	"strconv"
	"time"

	"mercator-hq/callisto/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// BackendMetrics tracks the lifecycle of backend subprocesses.
//
// Metrics:
//   - callisto_proxy_backend_invocations_total: terminal state and exit code
//   - callisto_proxy_backend_duration_seconds: subprocess wall-clock time
//   - callisto_proxy_backend_in_flight: currently running subprocesses
//   - callisto_proxy_backend_stream_events_total: lines read from streams
type BackendMetrics struct {
	invocationsTotal  *prometheus.CounterVec
	duration          prometheus.Histogram
	inFlight          prometheus.Gauge
	streamEventsTotal *prometheus.CounterVec
}

// NewBackendMetrics creates and registers backend subprocess metrics.
func NewBackendMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *BackendMetrics {
	bm := &BackendMetrics{
		invocationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_invocations_total",
				Help:      "Backend subprocess invocations by terminal state and exit code",
			},
			[]string{"state", "exit_code"},
		),

		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_duration_seconds",
				Help:      "Wall-clock duration of backend subprocesses in seconds",
				Buckets:   cfg.RequestDurationBuckets,
			},
		),

		inFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_in_flight",
				Help:      "Number of backend subprocesses currently running",
			},
		),

		streamEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "backend_stream_events_total",
				Help:      "Lines read from streaming backends by classification",
			},
			[]string{"kind"},
		),
	}

	registry.MustRegister(
		bm.invocationsTotal,
		bm.duration,
		bm.inFlight,
		bm.streamEventsTotal,
	)

	return bm
}

// RecordInvocation records one finished subprocess.
func (bm *BackendMetrics) RecordInvocation(state string, exitCode int, duration time.Duration) {
	bm.invocationsTotal.WithLabelValues(state, strconv.Itoa(exitCode)).Inc()
	bm.duration.Observe(duration.Seconds())
}

// InFlightInc marks one subprocess as started.
func (bm *BackendMetrics) InFlightInc() {
	bm.inFlight.Inc()
}

// InFlightDec marks one subprocess as finished.
func (bm *BackendMetrics) InFlightDec() {
	bm.inFlight.Dec()
}

// RecordStreamEvent counts one classified stream line.
func (bm *BackendMetrics) RecordStreamEvent(kind string) {
	bm.streamEventsTotal.WithLabelValues(kind).Inc()
}
