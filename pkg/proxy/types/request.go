package types

import "fmt"

// ChatCompletionRequest represents an OpenAI-compatible chat completion request.
// This matches the OpenAI Chat Completions API format so existing OpenAI SDKs
// and tools work against the proxy unchanged. Fields the backend CLI cannot
// honor (top_p, stop sequences) are accepted and ignored rather than rejected.
type ChatCompletionRequest struct {
	// Model is the ID of the model to use. Optional; the configured
	// default model is used when empty.
	Model string `json:"model,omitempty"`

	// Messages is the conversation history as a list of messages.
	Messages []Message `json:"messages"`

	// Temperature controls randomness in the response (0.0 to 2.0).
	// Optional.
	Temperature *float64 `json:"temperature,omitempty"`

	// MaxTokens is the maximum number of tokens to generate. Optional.
	MaxTokens *int `json:"max_tokens,omitempty"`

	// TopP controls nucleus sampling (0.0 to 1.0). Accepted for
	// compatibility; the backend does not support it.
	TopP *float64 `json:"top_p,omitempty"`

	// N is the number of completions to generate. Accepted for
	// compatibility; only 1 is supported.
	N *int `json:"n,omitempty"`

	// Stream enables server-sent events (SSE) streaming.
	// Optional, defaults to false.
	Stream bool `json:"stream,omitempty"`

	// Stop is a list of stop sequences. Accepted for compatibility;
	// the backend does not support them.
	Stop []string `json:"stop,omitempty"`

	// User is a unique identifier for the end-user making the request.
	// Used for usage tracking. Optional.
	User string `json:"user,omitempty"`
}

// Message represents a single message in a conversation.
type Message struct {
	// Role is the author of the message ("system", "user", or "assistant").
	Role string `json:"role"`

	// Content is the text content of the message.
	// Can be a string or an array of content parts.
	Content interface{} `json:"content"`

	// Name is the name of the author (optional).
	Name string `json:"name,omitempty"`
}

// Validate validates the chat completion request.
// It checks that required fields are present and values are within
// acceptable ranges. Missing optional fields are not errors; they are
// filled from configured defaults later.
func (r *ChatCompletionRequest) Validate() error {
	if len(r.Messages) == 0 {
		return &ValidationError{
			Field:   "messages",
			Message: "messages must contain at least one message",
		}
	}

	if r.Temperature != nil && (*r.Temperature < 0.0 || *r.Temperature > 2.0) {
		return &ValidationError{
			Field:   "temperature",
			Message: "temperature must be between 0.0 and 2.0",
		}
	}

	if r.MaxTokens != nil && *r.MaxTokens < 1 {
		return &ValidationError{
			Field:   "max_tokens",
			Message: "max_tokens must be greater than 0",
		}
	}

	if r.N != nil && *r.N != 1 {
		return &ValidationError{
			Field:   "n",
			Message: "only n=1 is supported",
		}
	}

	for i, msg := range r.Messages {
		if msg.Role == "" {
			return &ValidationError{
				Field:   fmt.Sprintf("messages[%d].role", i),
				Message: "message role is required",
			}
		}
		switch msg.Role {
		case "system", "user", "assistant":
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

// FlattenContent reduces a message content value to plain text.
// Content may be a string or an array of typed parts; only text-typed
// parts contribute, joined in order.
func FlattenContent(content interface{}) string {
	if content == nil {
		return ""
	}

	if str, ok := content.(string); ok {
		return str
	}

	arr, ok := content.([]interface{})
	if !ok {
		return fmt.Sprintf("%v", content)
	}

	var result string
	for _, part := range arr {
		partMap, ok := part.(map[string]interface{})
		if !ok {
			continue
		}
		if partType, _ := partMap["type"].(string); partType != "text" {
			continue
		}
		if text, ok := partMap["text"].(string); ok {
			result += text
		}
	}
	return result
}

// ValidationError represents a request validation error.
type ValidationError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}
