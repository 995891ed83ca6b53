package proxy

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/proxy/types"
)

func postRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/v1/chat/completions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestParseChatCompletionRequest(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req, err := ParseChatCompletionRequest(postRequest(
			`{"model":"m","messages":[{"role":"user","content":"hi"}]}`,
		))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.Model != "m" || len(req.Messages) != 1 {
			t.Errorf("unexpected parse result: %+v", req)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseChatCompletionRequest(postRequest(`{not json`))
		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("expected RequestError, got %v", err)
		}
		if reqErr.Code != types.CodeInvalidJSON {
			t.Errorf("expected invalid_json code, got %q", reqErr.Code)
		}
	})

	t.Run("empty messages", func(t *testing.T) {
		_, err := ParseChatCompletionRequest(postRequest(`{"model":"m","messages":[]}`))
		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("expected RequestError, got %v", err)
		}
		if reqErr.Code != types.CodeInvalidValue {
			t.Errorf("expected invalid_value code, got %q", reqErr.Code)
		}
	})
}

func TestParseMessagesRequest(t *testing.T) {
	t.Run("valid request", func(t *testing.T) {
		req, err := ParseMessagesRequest(postRequest(
			`{"model":"m","max_tokens":100,"messages":[{"role":"user","content":"hi"}]}`,
		))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if req.MaxTokens != 100 {
			t.Errorf("expected max_tokens 100, got %d", req.MaxTokens)
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		_, err := ParseMessagesRequest(postRequest(`[`))
		var reqErr *RequestError
		if !errors.As(err, &reqErr) {
			t.Fatalf("expected RequestError, got %v", err)
		}
	})
}

func TestToCompletionRequest(t *testing.T) {
	maxTokens := 64
	temp := 0.5
	req := &types.ChatCompletionRequest{
		Model:       "m",
		MaxTokens:   &maxTokens,
		Temperature: &temp,
		Stream:      true,
		Messages: []types.Message{
			{Role: "system", Content: "be brief"},
			{Role: "user", Content: "hi"},
		},
	}

	out := ToCompletionRequest(req, backend.InputFormatStreamJSON)

	if out.Model != "m" || out.MaxTokens != 64 || !out.Stream {
		t.Errorf("unexpected normalization: %+v", out)
	}
	if out.Temperature == nil || *out.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", out.Temperature)
	}
	if out.InputFormat != backend.InputFormatStreamJSON {
		t.Errorf("expected stream-json input format, got %q", out.InputFormat)
	}
	if len(out.Turns) != 2 || out.Turns[0].Role != "system" || out.Turns[1].Content != "hi" {
		t.Errorf("unexpected turns: %+v", out.Turns)
	}
}

func TestMessagesToCompletionRequest(t *testing.T) {
	t.Run("system prompt becomes leading turn", func(t *testing.T) {
		req := &types.MessagesRequest{
			Model:     "m",
			MaxTokens: 100,
			System:    "be brief",
			Messages: []types.AnthropicMessage{
				{Role: "user", Content: "hi"},
			},
		}

		out := MessagesToCompletionRequest(req, backend.InputFormatText)

		if len(out.Turns) != 2 {
			t.Fatalf("expected 2 turns, got %d", len(out.Turns))
		}
		if out.Turns[0].Role != backend.RoleSystem || out.Turns[0].Content != "be brief" {
			t.Errorf("expected leading system turn, got %+v", out.Turns[0])
		}
	})

	t.Run("no system prompt", func(t *testing.T) {
		req := &types.MessagesRequest{
			Model:     "m",
			MaxTokens: 100,
			Messages: []types.AnthropicMessage{
				{Role: "user", Content: "hi"},
			},
		}

		out := MessagesToCompletionRequest(req, backend.InputFormatText)
		if len(out.Turns) != 1 {
			t.Errorf("expected 1 turn, got %d", len(out.Turns))
		}
	})
}

func TestExtractAPIKey(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{
			name:    "bearer token",
			headers: map[string]string{"Authorization": "Bearer sk-123"},
			want:    "sk-123",
		},
		{
			name:    "x-api-key",
			headers: map[string]string{"X-Api-Key": "sk-456"},
			want:    "sk-456",
		},
		{
			name: "authorization wins over x-api-key",
			headers: map[string]string{
				"Authorization": "Bearer sk-123",
				"X-Api-Key":     "sk-456",
			},
			want: "sk-123",
		},
		{
			name:    "malformed authorization yields nothing",
			headers: map[string]string{"Authorization": "Basic abc"},
			want:    "",
		},
		{
			name:    "no headers",
			headers: nil,
			want:    "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ExtractAPIKey(req); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestExtractUserID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-User-ID", "user-7")

	if got := ExtractUserID(req); got != "user-7" {
		t.Errorf("expected user-7, got %q", got)
	}
}
