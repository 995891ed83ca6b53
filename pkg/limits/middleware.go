package limits

import (
	"errors"
	"log/slog"
	"net/http"

	"mercator-hq/callisto/pkg/proxy"
	"mercator-hq/callisto/pkg/proxy/types"
)

// ErrQueueTimeout is returned when a request waited the full queue
// timeout without getting an execution slot.
var ErrQueueTimeout = errors.New("timed out waiting for an execution slot")

// Middleware applies the concurrency limiter to wrapped handlers.
type Middleware struct {
	limiter  *ConcurrencyLimiter
	onReject func()
}

// NewMiddleware creates an admission middleware. onReject, when
// non-nil, is invoked for every rejected request (metrics hook).
func NewMiddleware(limiter *ConcurrencyLimiter, onReject func()) *Middleware {
	return &Middleware{
		limiter:  limiter,
		onReject: onReject,
	}
}

// Handle wraps an HTTP handler with admission control. The slot is held
// for the handler's whole duration, which for streaming responses means
// until the backend subprocess is done.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := m.limiter.Acquire(r.Context()); err != nil {
			if errors.Is(err, ErrQueueTimeout) {
				slog.WarnContext(r.Context(), "request rejected, execution slots exhausted",
					"path", r.URL.Path,
					"in_flight", m.limiter.InFlight(),
				)
				if m.onReject != nil {
					m.onReject()
				}

				errResp := types.NewErrorResponse(
					"Too many concurrent requests. Try again shortly.",
					types.ErrorTypeRateLimitExceeded,
					"",
					"concurrency_limit",
				)
				proxy.WriteErrorResponse(w, errResp)
				return
			}
			// Context canceled while queued; the client is gone.
			return
		}
		defer m.limiter.Release()

		next.ServeHTTP(w, r)
	})
}
