package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/proxy"
	"mercator-hq/callisto/pkg/proxy/middleware"
	"mercator-hq/callisto/pkg/usage"
)

// statusLabel classifies a request outcome for metrics and usage
// records.
func statusLabel(err error) string {
	if err == nil {
		return "success"
	}

	var timeoutErr *backend.TimeoutError
	if errors.As(err, &timeoutErr) {
		return "timeout"
	}
	if errors.Is(err, context.Canceled) {
		return "canceled"
	}
	return "error"
}

// observeRequest records metrics and a usage record for one finished
// request. Safe to call with nil Metrics or Usage.
func (d *Deps) observeRequest(r *http.Request, dialect, model string, stream bool, start time.Time, tokens backend.TokenUsage, err error) {
	status := statusLabel(err)
	elapsed := time.Since(start)

	if d.Metrics != nil {
		d.Metrics.RecordRequest(dialect, model, status, elapsed, tokens.PromptTokens, tokens.CompletionTokens)
	}

	if d.Usage == nil {
		return
	}

	rec := &usage.Record{
		ID:               uuid.NewString(),
		RequestID:        middleware.GetRequestID(r.Context()),
		Dialect:          dialect,
		Model:            model,
		Stream:           stream,
		Status:           status,
		PromptTokens:     tokens.PromptTokens,
		CompletionTokens: tokens.CompletionTokens,
		TotalTokens:      tokens.TotalTokens,
		DurationMs:       elapsed.Milliseconds(),
		UserID:           proxy.ExtractUserID(r),
		CreatedAt:        time.Now().UTC(),
	}

	// The request context may already be canceled; the record still
	// has to land.
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if recordErr := d.Usage.Record(ctx, rec); recordErr != nil {
		slog.Warn("failed to record usage",
			"request_id", rec.RequestID,
			"error", recordErr,
		)
	}
}
