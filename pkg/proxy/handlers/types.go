package handlers

import (
	"context"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/telemetry/metrics"
	"mercator-hq/callisto/pkg/usage"
)

// Executor runs completion requests against the backend CLI. It is
// implemented by *backend.Runner; tests substitute fakes.
type Executor interface {
	// Execute runs one buffered invocation.
	Execute(ctx context.Context, req *backend.CompletionRequest) (*backend.CompletionResponse, error)

	// ExecuteStream runs one streaming invocation. The returned channel
	// is closed when the subprocess is done; a chunk with a non-nil
	// Error field, when present, is always the last one delivered.
	ExecuteStream(ctx context.Context, req *backend.CompletionRequest) (<-chan *backend.StreamChunk, error)

	// Ready reports whether the backend executable can be resolved.
	Ready() error
}

// UsageRecorder persists per-request usage records.
// Implemented by usage.Store.
type UsageRecorder interface {
	Record(ctx context.Context, rec *usage.Record) error
}

// Deps bundles the shared dependencies handed to each handler.
// Metrics and Usage are optional; nil disables them.
type Deps struct {
	// Executor runs backend invocations.
	Executor Executor

	// Metrics receives per-request observations.
	Metrics *metrics.Collector

	// Usage receives per-request accounting records.
	Usage UsageRecorder

	// InputFormat is how chat turns reach the backend's stdin
	// ("text" or "stream-json").
	InputFormat string
}
