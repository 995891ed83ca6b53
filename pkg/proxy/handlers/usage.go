package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"mercator-hq/callisto/pkg/proxy"
	"mercator-hq/callisto/pkg/usage"
)

// UsageHandler serves the administrative usage endpoint. It reports an
// aggregate summary plus the most recent records.
type UsageHandler struct {
	store usage.Store
}

// NewUsageHandler creates a usage reporting handler.
func NewUsageHandler(store usage.Store) *UsageHandler {
	return &UsageHandler{store: store}
}

// usageRecordView is the outward JSON shape of one usage record.
type usageRecordView struct {
	ID               string `json:"id"`
	RequestID        string `json:"request_id"`
	Dialect          string `json:"dialect"`
	Model            string `json:"model"`
	Stream           bool   `json:"stream"`
	Status           string `json:"status"`
	PromptTokens     int    `json:"prompt_tokens"`
	CompletionTokens int    `json:"completion_tokens"`
	TotalTokens      int    `json:"total_tokens"`
	DurationMs       int64  `json:"duration_ms"`
	UserID           string `json:"user_id,omitempty"`
	CreatedAt        string `json:"created_at"`
}

// ServeHTTP implements http.Handler.
//
// Query parameters:
//   - since_hours: summary window in hours (default 24)
//   - limit: how many recent records to include (default 20, max 500)
func (h *UsageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	ctx := r.Context()

	sinceHours := 24
	if raw := r.URL.Query().Get("since_hours"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			sinceHours = parsed
		}
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > 500 {
		limit = 500
	}

	since := time.Now().Add(-time.Duration(sinceHours) * time.Hour)

	summary, err := h.store.Summarize(ctx, since)
	if err != nil {
		slog.ErrorContext(ctx, "failed to summarize usage", "error", err)
		http.Error(w, "usage summary unavailable", http.StatusInternalServerError)
		return
	}

	records, err := h.store.Recent(ctx, limit)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list recent usage", "error", err)
		http.Error(w, "usage records unavailable", http.StatusInternalServerError)
		return
	}

	views := make([]usageRecordView, len(records))
	for i, rec := range records {
		views[i] = usageRecordView{
			ID:               rec.ID,
			RequestID:        rec.RequestID,
			Dialect:          rec.Dialect,
			Model:            rec.Model,
			Stream:           rec.Stream,
			Status:           rec.Status,
			PromptTokens:     rec.PromptTokens,
			CompletionTokens: rec.CompletionTokens,
			TotalTokens:      rec.TotalTokens,
			DurationMs:       rec.DurationMs,
			UserID:           rec.UserID,
			CreatedAt:        rec.CreatedAt.UTC().Format(time.RFC3339),
		}
	}

	response := map[string]interface{}{
		"window_hours": sinceHours,
		"summary":      summary,
		"recent":       views,
	}

	if err := proxy.WriteJSONResponse(w, http.StatusOK, response); err != nil {
		slog.ErrorContext(ctx, "failed to write usage response", "error", err)
	}
}
