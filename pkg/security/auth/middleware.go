package auth

import (
	"log/slog"
	"net/http"

	"mercator-hq/callisto/pkg/proxy"
	"mercator-hq/callisto/pkg/proxy/types"
)

// Middleware enforces API key authentication on wrapped handlers. Keys
// are accepted from the Authorization header ("Bearer <key>", OpenAI
// convention) or the X-Api-Key header (Anthropic convention).
type Middleware struct {
	validator *APIKeyValidator
	onReject  func()
}

// NewMiddleware creates an authentication middleware. onReject, when
// non-nil, is invoked for every rejected request (metrics hook).
func NewMiddleware(validator *APIKeyValidator, onReject func()) *Middleware {
	return &Middleware{
		validator: validator,
		onReject:  onReject,
	}
}

// Handle wraps an HTTP handler with API key authentication.
func (m *Middleware) Handle(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := proxy.ExtractAPIKey(r)
		if err := m.validator.Validate(key); err != nil {
			slog.WarnContext(r.Context(), "authentication failed",
				"error", err,
				"remote_addr", r.RemoteAddr,
				"path", r.URL.Path,
			)
			if m.onReject != nil {
				m.onReject()
			}

			errResp := types.NewErrorResponse(
				"Invalid or missing API key.",
				types.ErrorTypeAuthentication,
				"",
				"invalid_api_key",
			)
			proxy.WriteErrorResponse(w, errResp)
			return
		}

		next.ServeHTTP(w, r)
	})
}
