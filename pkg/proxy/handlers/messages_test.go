package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/proxy/types"
)

func messagesBody(t *testing.T, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/messages", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestMessagesHandler_Buffered(t *testing.T) {
	exec := &fakeExecutor{
		resp: &backend.CompletionResponse{
			ID:         "inv-1",
			Content:    "4",
			StopReason: backend.StopReasonStop,
			Usage:      backend.TokenUsage{PromptTokens: 5, CompletionTokens: 1, TotalTokens: 6},
			Created:    time.Now().Unix(),
		},
	}
	handler := NewMessagesHandler(testDeps(exec))

	req := messagesBody(t, `{"model":"opus","max_tokens":100,"system":"Be brief.","messages":[{"role":"user","content":"What is 2+2?"}]}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp types.MessagesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response is not valid JSON: %v", err)
	}
	if !strings.HasPrefix(resp.ID, "msg-") {
		t.Errorf("expected msg- ID prefix, got %q", resp.ID)
	}
	if resp.Type != "message" || resp.Role != "assistant" {
		t.Errorf("unexpected envelope: type=%q role=%q", resp.Type, resp.Role)
	}
	if len(resp.Content) != 1 || resp.Content[0].Type != "text" || resp.Content[0].Text != "4" {
		t.Errorf("unexpected content blocks: %+v", resp.Content)
	}
	if resp.StopReason != "end_turn" {
		t.Errorf("expected stop_reason end_turn, got %q", resp.StopReason)
	}
	if resp.Usage.InputTokens != 5 || resp.Usage.OutputTokens != 1 {
		t.Errorf("unexpected usage: %+v", resp.Usage)
	}

	// The system prompt becomes a leading system turn.
	if exec.lastReq == nil || len(exec.lastReq.Turns) != 2 {
		t.Fatalf("expected system + user turns, got %+v", exec.lastReq)
	}
	if exec.lastReq.Turns[0].Role != backend.RoleSystem || exec.lastReq.Turns[0].Content != "Be brief." {
		t.Errorf("unexpected system turn: %+v", exec.lastReq.Turns[0])
	}
	if exec.lastReq.MaxTokens != 100 {
		t.Errorf("expected max tokens 100, got %d", exec.lastReq.MaxTokens)
	}
}

func TestMessagesHandler_StopReasonMapping(t *testing.T) {
	tests := []struct {
		name       string
		stopReason string
		want       string
	}{
		{"stop maps to end_turn", backend.StopReasonStop, "end_turn"},
		{"empty maps to end_turn", "", "end_turn"},
		{"length maps to max_tokens", backend.StopReasonLength, "max_tokens"},
		{"unknown maps to max_tokens", "content_filter", "max_tokens"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := &fakeExecutor{
				resp: &backend.CompletionResponse{
					ID:         "inv-1",
					Content:    "x",
					StopReason: tt.stopReason,
				},
			}
			handler := NewMessagesHandler(testDeps(exec))
			req := messagesBody(t, `{"messages":[{"role":"user","content":"hi"}]}`)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			var resp types.MessagesResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("response is not valid JSON: %v", err)
			}
			if resp.StopReason != tt.want {
				t.Errorf("expected stop_reason %q, got %q", tt.want, resp.StopReason)
			}
		})
	}
}

func TestMessagesHandler_ProjectionConsistency(t *testing.T) {
	// Identical backend output must yield identical content through
	// both dialects.
	resp := &backend.CompletionResponse{
		ID:         "inv-1",
		Content:    "the same answer",
		StopReason: backend.StopReasonStop,
		Usage:      backend.TokenUsage{PromptTokens: 10, CompletionTokens: 4, TotalTokens: 14},
	}

	chatRec := httptest.NewRecorder()
	NewChatHandler(testDeps(&fakeExecutor{resp: resp})).ServeHTTP(
		chatRec, chatBody(t, `{"messages":[{"role":"user","content":"hi"}]}`))

	msgRec := httptest.NewRecorder()
	NewMessagesHandler(testDeps(&fakeExecutor{resp: resp})).ServeHTTP(
		msgRec, messagesBody(t, `{"messages":[{"role":"user","content":"hi"}]}`))

	var chatResp types.ChatCompletionResponse
	if err := json.Unmarshal(chatRec.Body.Bytes(), &chatResp); err != nil {
		t.Fatalf("chat response is not valid JSON: %v", err)
	}
	var msgResp types.MessagesResponse
	if err := json.Unmarshal(msgRec.Body.Bytes(), &msgResp); err != nil {
		t.Fatalf("messages response is not valid JSON: %v", err)
	}

	if chatResp.Choices[0].Message.Content != msgResp.Content[0].Text {
		t.Errorf("projections diverged: openai=%v anthropic=%q",
			chatResp.Choices[0].Message.Content, msgResp.Content[0].Text)
	}
	if chatResp.Usage.PromptTokens != msgResp.Usage.InputTokens ||
		chatResp.Usage.CompletionTokens != msgResp.Usage.OutputTokens {
		t.Errorf("token projections diverged: openai=%+v anthropic=%+v",
			chatResp.Usage, msgResp.Usage)
	}
}

func TestMessagesHandler_Validation(t *testing.T) {
	t.Run("empty messages", func(t *testing.T) {
		exec := &fakeExecutor{}
		handler := NewMessagesHandler(testDeps(exec))
		req := messagesBody(t, `{"messages":[]}`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
		if exec.lastReq != nil {
			t.Error("executor must not be called for an invalid request")
		}
	})

	t.Run("system role not allowed in messages", func(t *testing.T) {
		handler := NewMessagesHandler(testDeps(&fakeExecutor{}))
		req := messagesBody(t, `{"messages":[{"role":"system","content":"x"}]}`)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected 400, got %d", rec.Code)
		}
	})
}

func TestMessagesHandler_Streaming(t *testing.T) {
	exec := &fakeExecutor{
		chunks: []*backend.StreamChunk{
			{ID: "inv-1", Delta: "Hello"},
			{ID: "inv-1", Delta: " world", StopReason: backend.StopReasonStop},
		},
	}
	handler := NewMessagesHandler(testDeps(exec))
	req := messagesBody(t, `{"stream":true,"messages":[{"role":"user","content":"hi"}]}`)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	payloads := parseSSE(t, rec.Body.String())
	// Two text deltas, one message_delta with the stop reason, one
	// [DONE] sentinel.
	if len(payloads) != 4 {
		t.Fatalf("expected 4 payloads, got %d: %v", len(payloads), payloads)
	}

	var first types.MessagesStreamChunk
	if err := json.Unmarshal([]byte(payloads[0]), &first); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	if first.Type != "content_block_delta" || first.Delta.Text != "Hello" {
		t.Errorf("unexpected first frame: %+v", first)
	}

	var stop types.MessagesStreamChunk
	if err := json.Unmarshal([]byte(payloads[2]), &stop); err != nil {
		t.Fatalf("frame is not valid JSON: %v", err)
	}
	if stop.Type != "message_delta" || stop.Delta.StopReason != "end_turn" {
		t.Errorf("unexpected stop frame: %+v", stop)
	}

	if payloads[3] != "[DONE]" {
		t.Errorf("expected [DONE] sentinel, got %q", payloads[3])
	}
}
