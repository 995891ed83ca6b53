// Package metrics provides Prometheus instrumentation for Callisto.
//
// The Collector owns a registry and two metric families:
//
//   - RequestMetrics: per-request counts, latencies, and token usage,
//     labeled by inbound dialect and model
//   - BackendMetrics: subprocess lifecycle, exit codes, in-flight
//     gauge, and stream line classification
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordRequest("openai", "sonnet", "success", elapsed, 120, 40)
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// Recording methods are safe to call when metrics are disabled; they
// become no-ops.
package metrics
