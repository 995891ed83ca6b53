package types

import "fmt"

// MessagesRequest represents an Anthropic-compatible messages request.
// This matches the Anthropic Messages API format so Anthropic SDKs work
// against the proxy unchanged.
type MessagesRequest struct {
	// Model is the ID of the model to use. Optional; the configured
	// default model is used when empty.
	Model string `json:"model,omitempty"`

	// System is an optional system prompt. Can be a string or an array
	// of typed content blocks.
	System interface{} `json:"system,omitempty"`

	// Messages is the conversation history.
	Messages []AnthropicMessage `json:"messages"`

	// MaxTokens is the maximum number of tokens to generate. The
	// upstream API requires it; here it is optional and falls back to
	// the configured default.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls randomness in the response (0.0 to 1.0).
	// Optional.
	Temperature *float64 `json:"temperature,omitempty"`

	// Stream enables server-sent events (SSE) streaming.
	Stream bool `json:"stream,omitempty"`

	// StopSequences is accepted for compatibility; the backend does
	// not support custom stop sequences.
	StopSequences []string `json:"stop_sequences,omitempty"`

	// Metadata carries opaque client metadata. Only user_id is read,
	// for usage tracking.
	Metadata *AnthropicMetadata `json:"metadata,omitempty"`
}

// AnthropicMessage is a single message in an Anthropic conversation.
type AnthropicMessage struct {
	// Role is "user" or "assistant". System prompts travel in the
	// request-level System field, not as messages.
	Role string `json:"role"`

	// Content is a string or an array of typed content blocks.
	Content interface{} `json:"content"`
}

// AnthropicMetadata carries request metadata.
type AnthropicMetadata struct {
	// UserID is an opaque end-user identifier.
	UserID string `json:"user_id,omitempty"`
}

// Validate validates the messages request.
func (r *MessagesRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{
			Field:   "messages",
			Message: "messages must contain at least one message",
		}
	}

	if r.MaxTokens < 0 {
		return &ValidationError{
			Field:   "max_tokens",
			Message: "max_tokens must not be negative",
		}
	}

	if r.Temperature != nil && (*r.Temperature < 0.0 || *r.Temperature > 1.0) {
		return &ValidationError{
			Field:   "temperature",
			Message: "temperature must be between 0.0 and 1.0",
		}
	}

	for i, msg := range r.Messages {
		switch msg.Role {
		case "user", "assistant":
		case "":
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "message role is required",
			}
		default:
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: fmt.Sprintf("unsupported role %q", msg.Role),
			}
		}
		if FlattenContent(msg.Content) == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].content", i),
				Message: "message content is required",
			}
		}
	}

	return nil
}

// MessagesResponse represents an Anthropic-compatible messages response.
type MessagesResponse struct {
	// ID is a unique identifier for the message.
	ID string `json:"id"`

	// Type is always "message".
	Type string `json:"type"`

	// Role is always "assistant".
	Role string `json:"role"`

	// Model is the model used for the completion.
	Model string `json:"model"`

	// Content is the generated content as typed blocks.
	Content []ContentBlock `json:"content"`

	// StopReason explains why generation stopped ("end_turn" or
	// "max_tokens").
	StopReason string `json:"stop_reason"`

	// StopSequence is the matched stop sequence, always null here.
	StopSequence *string `json:"stop_sequence"`

	// Usage contains token usage statistics.
	Usage AnthropicUsage `json:"usage"`
}

// ContentBlock is one typed block of response content.
type ContentBlock struct {
	// Type is the block type, always "text" here.
	Type string `json:"type"`

	// Text is the block's text content.
	Text string `json:"text"`
}

// AnthropicUsage contains token usage statistics in Anthropic naming.
type AnthropicUsage struct {
	// InputTokens is the number of tokens in the prompt.
	InputTokens int `json:"input_tokens"`

	// OutputTokens is the number of tokens in the completion.
	OutputTokens int `json:"output_tokens"`
}

// MessagesStreamChunk is one SSE frame of an Anthropic-dialect stream.
// The stream uses content_block_delta frames for incremental text and a
// final message_delta frame carrying the stop reason; the transport
// terminates with the same [DONE] sentinel as the OpenAI dialect.
type MessagesStreamChunk struct {
	// Type is the frame type ("content_block_delta" or "message_delta").
	Type string `json:"type"`

	// Index is the content block index, always 0.
	Index int `json:"index"`

	// Delta carries the incremental payload.
	Delta AnthropicDelta `json:"delta"`
}

// AnthropicDelta is the incremental payload of one stream frame.
type AnthropicDelta struct {
	// Type is "text_delta" for content frames, empty for message_delta.
	Type string `json:"type,omitempty"`

	// Text is the incremental text content.
	Text string `json:"text,omitempty"`

	// StopReason is set on the final message_delta frame.
	StopReason string `json:"stop_reason,omitempty"`
}
