package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/usage"
)

func TestUsageHandler(t *testing.T) {
	ctx := context.Background()
	store := usage.NewMemoryStore()
	now := time.Now()

	store.Record(ctx, &usage.Record{
		ID: "a", RequestID: "req-a", Dialect: "openai", Model: "sonnet",
		Status: "success", PromptTokens: 100, CompletionTokens: 20, TotalTokens: 120,
		DurationMs: 900, CreatedAt: now,
	})
	store.Record(ctx, &usage.Record{
		ID: "b", RequestID: "req-b", Dialect: "anthropic", Model: "opus",
		Status: "error", PromptTokens: 5, CompletionTokens: 0, TotalTokens: 5,
		DurationMs: 120, CreatedAt: now.Add(-48 * time.Hour),
	})

	handler := NewUsageHandler(store)

	t.Run("default window", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}

		var resp struct {
			WindowHours int               `json:"window_hours"`
			Summary     usage.Summary     `json:"summary"`
			Recent      []usageRecordView `json:"recent"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response is not valid JSON: %v", err)
		}

		if resp.WindowHours != 24 {
			t.Errorf("expected default 24h window, got %d", resp.WindowHours)
		}
		// Only the recent record falls inside the summary window.
		if resp.Summary.Requests != 1 || resp.Summary.TotalTokens != 120 {
			t.Errorf("unexpected summary: %+v", resp.Summary)
		}
		// Recent listing is not windowed.
		if len(resp.Recent) != 2 {
			t.Fatalf("expected 2 recent records, got %d", len(resp.Recent))
		}
		if resp.Recent[0].ID != "a" {
			t.Errorf("expected newest record first, got %q", resp.Recent[0].ID)
		}
	})

	t.Run("wider window and limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/v1/usage?since_hours=72&limit=1", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var resp struct {
			Summary usage.Summary     `json:"summary"`
			Recent  []usageRecordView `json:"recent"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("response is not valid JSON: %v", err)
		}
		if resp.Summary.Requests != 2 {
			t.Errorf("expected both records in 72h window, got %+v", resp.Summary)
		}
		if len(resp.Recent) != 1 {
			t.Errorf("expected limit to apply, got %d records", len(resp.Recent))
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/v1/usage", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rec.Code)
		}
	})
}
