package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"mercator-hq/callisto/pkg/proxy/types"
)

// TimeoutMiddleware enforces a per-request timeout via context
// cancellation. If the deadline passes before the handler finishes, a
// 504 response is written in the outward error envelope.
//
// Completion endpoints are not wrapped with this middleware: their
// budget is the backend execution timeout, and streaming responses must
// not have a second writer racing the SSE stream. This wraps only the
// short administrative routes.
func TimeoutMiddleware(timeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				next.ServeHTTP(w, r.WithContext(ctx))
			}()

			select {
			case <-done:
				return
			case <-ctx.Done():
				if ctx.Err() == context.DeadlineExceeded {
					errResp := types.NewGatewayTimeoutError(
						"Request timeout: the request took too long to complete",
					)

					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusGatewayTimeout)
					_ = json.NewEncoder(w).Encode(errResp)
				}
			}
		})
	}
}
