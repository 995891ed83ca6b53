package proxy

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/proxy/types"
)

// The two outward response shapes below are pure projections over one
// canonical CompletionResponse. Neither constructs content on its own;
// they must never diverge.

// FormatChatCompletionResponse projects a canonical response into the
// OpenAI chat completion shape.
func FormatChatCompletionResponse(resp *backend.CompletionResponse, requestedModel string) *types.ChatCompletionResponse {
	return &types.ChatCompletionResponse{
		ID:      fmt.Sprintf("chatcmpl-%s", resp.ID),
		Object:  "chat.completion",
		Created: responseTimestamp(resp.Created),
		Model:   requestedModel,
		Choices: []types.Choice{
			{
				Index: 0,
				Message: types.Message{
					Role:    "assistant",
					Content: resp.Content,
				},
				FinishReason: normalizeFinishReason(resp.StopReason),
			},
		},
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
}

// FormatMessagesResponse projects a canonical response into the
// Anthropic messages shape.
func FormatMessagesResponse(resp *backend.CompletionResponse, requestedModel string) *types.MessagesResponse {
	return &types.MessagesResponse{
		ID:    fmt.Sprintf("msg-%s", resp.ID),
		Type:  "message",
		Role:  "assistant",
		Model: requestedModel,
		Content: []types.ContentBlock{
			{Type: "text", Text: resp.Content},
		},
		StopReason:   normalizeStopReason(resp.StopReason),
		StopSequence: nil,
		Usage: types.AnthropicUsage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
}

// normalizeFinishReason maps a canonical stop reason to an OpenAI
// finish_reason value.
func normalizeFinishReason(stopReason string) string {
	switch stopReason {
	case backend.StopReasonLength:
		return "length"
	default:
		return "stop"
	}
}

// normalizeStopReason maps a canonical stop reason to an Anthropic
// stop_reason value. "stop" maps to end_turn; every other reason means
// generation was cut short.
func normalizeStopReason(stopReason string) string {
	switch stopReason {
	case backend.StopReasonStop, "":
		return "end_turn"
	default:
		return "max_tokens"
	}
}

// FormatStreamChunk projects a canonical stream chunk into the OpenAI
// chat completion chunk shape.
func FormatStreamChunk(chunk *backend.StreamChunk, requestedModel, responseID string) *types.ChatCompletionStreamChunk {
	if responseID == "" {
		responseID = fmt.Sprintf("chatcmpl-%s", chunk.ID)
	}

	streamChunk := &types.ChatCompletionStreamChunk{
		ID:      responseID,
		Object:  "chat.completion.chunk",
		Created: responseTimestamp(chunk.Created),
		Model:   requestedModel,
		Choices: []types.StreamChoice{
			{
				Index: 0,
				Delta: types.Delta{Content: chunk.Delta},
			},
		},
	}

	if chunk.StopReason != "" {
		finishReason := normalizeFinishReason(chunk.StopReason)
		streamChunk.Choices[0].FinishReason = &finishReason
	}

	return streamChunk
}

// FormatMessagesStreamFrames projects a canonical stream chunk into
// Anthropic-dialect frames. A chunk with content yields one
// content_block_delta frame; a chunk carrying a stop reason additionally
// yields a message_delta frame after it.
func FormatMessagesStreamFrames(chunk *backend.StreamChunk) []*types.MessagesStreamChunk {
	var frames []*types.MessagesStreamChunk

	if chunk.Delta != "" {
		frames = append(frames, &types.MessagesStreamChunk{
			Type:  "content_block_delta",
			Index: 0,
			Delta: types.AnthropicDelta{Type: "text_delta", Text: chunk.Delta},
		})
	}

	if chunk.StopReason != "" {
		frames = append(frames, &types.MessagesStreamChunk{
			Type:  "message_delta",
			Index: 0,
			Delta: types.AnthropicDelta{StopReason: normalizeStopReason(chunk.StopReason)},
		})
	}

	return frames
}

// WriteJSONResponse writes a JSON response to the HTTP response writer.
// It sets the appropriate content-type header and handles marshaling errors.
func WriteJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON response: %w", err)
	}

	return nil
}

// WriteErrorResponse writes the outward error envelope with the status
// code derived from the error type.
func WriteErrorResponse(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	statusCode := errResp.Error.HTTPStatusCode()
	return WriteJSONResponse(w, statusCode, errResp)
}

// WriteSSEChunk writes a single frame in Server-Sent Events format:
//
//	data: {"id":"chatcmpl-123","object":"chat.completion.chunk",...}
//
// followed by two newlines. The payload may be either dialect's frame
// type; anything marshalable works.
func WriteSSEChunk(w http.ResponseWriter, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE chunk: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE chunk: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// WriteSSEDone writes the terminal "[DONE]" sentinel for SSE streams.
// Exactly one sentinel ends every stream, regardless of outcome.
func WriteSSEDone(w http.ResponseWriter) error {
	if _, err := fmt.Fprint(w, "data: [DONE]\n\n"); err != nil {
		return fmt.Errorf("failed to write SSE done marker: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// WriteSSEError writes an error-shaped frame. Failures after the stream
// has started are delivered this way, immediately before the sentinel,
// rather than by closing the transport abruptly.
func WriteSSEError(w http.ResponseWriter, errResp *types.ErrorResponse) error {
	data, err := json.Marshal(errResp)
	if err != nil {
		return fmt.Errorf("failed to marshal SSE error: %w", err)
	}

	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return fmt.Errorf("failed to write SSE error: %w", err)
	}

	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	return nil
}

// SetSSEHeaders sets the appropriate headers for Server-Sent Events streaming.
func SetSSEHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
}

// responseTimestamp guards against a zero timestamp on the canonical
// value, which happens when the response was built outside the runner.
func responseTimestamp(created int64) int64 {
	if created != 0 {
		return created
	}
	return time.Now().Unix()
}
