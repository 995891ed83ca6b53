package backend

import "time"

// Turn represents a single role-tagged message in a conversation.
// It is dialect-agnostic; inbound OpenAI and Anthropic requests are both
// normalized to this shape before reaching the execution layer.
type Turn struct {
	// Role identifies the message sender (system, user, assistant)
	Role string `json:"role"`

	// Content is the message text content
	Content string `json:"content"`
}

// TokenUsage tracks token consumption for one invocation.
type TokenUsage struct {
	// PromptTokens is the number of tokens in the prompt
	PromptTokens int `json:"prompt_tokens"`

	// CompletionTokens is the number of tokens in the completion
	CompletionTokens int `json:"completion_tokens"`

	// TotalTokens is the total number of tokens used (prompt + completion)
	TotalTokens int `json:"total_tokens"`
}

// CompletionRequest is the dialect-agnostic form of an inbound chat request.
// It is translated to the backend CLI's input representation by the runner.
type CompletionRequest struct {
	// Model is the model identifier passed through to the backend
	Model string `json:"model"`

	// Turns is the ordered conversation history. Must be non-empty.
	Turns []Turn `json:"turns"`

	// MaxTokens bounds the completion length. Zero means unset.
	MaxTokens int `json:"max_tokens,omitempty"`

	// Temperature controls sampling randomness. Nil means unset; the
	// distinction matters because 0.0 is a meaningful value.
	Temperature *float64 `json:"temperature,omitempty"`

	// InputFormat selects how turns are serialized onto the backend's
	// stdin (InputFormatText or InputFormatStreamJSON).
	InputFormat string `json:"input_format,omitempty"`

	// Stream indicates whether to stream the response
	Stream bool `json:"stream,omitempty"`
}

// CompletionResponse is the canonical result of one buffered invocation.
// Both outward response dialects are pure projections of this value and
// must never diverge in content.
type CompletionResponse struct {
	// ID is the invocation's request identifier
	ID string `json:"id"`

	// Model is the model that generated the response
	Model string `json:"model"`

	// Content is the generated text content
	Content string `json:"content"`

	// StopReason indicates why generation stopped (stop, length)
	StopReason string `json:"stop_reason"`

	// Usage contains token consumption information
	Usage TokenUsage `json:"usage"`

	// Created is the Unix timestamp when the response was created
	Created int64 `json:"created"`
}

// StreamChunk represents a single chunk in a streaming response.
type StreamChunk struct {
	// ID is the invocation's request identifier (same across all chunks)
	ID string `json:"id"`

	// Model is the model generating the response
	Model string `json:"model"`

	// Delta is the incremental content in this chunk
	Delta string `json:"delta"`

	// StopReason is set when the backend reported one for this event
	StopReason string `json:"stop_reason,omitempty"`

	// Error is set if the invocation failed after the stream started.
	// It is delivered as the final chunk before the channel closes.
	Error error `json:"-"`

	// Created is the Unix timestamp when the chunk was created
	Created int64 `json:"created"`
}

// State is the termination state of one subprocess invocation.
// It transitions exactly once out of StateRunning.
type State int32

const (
	// StateRunning means the subprocess is alive (or being spawned).
	StateRunning State = iota

	// StateCompleted means the subprocess exited with status 0.
	StateCompleted

	// StateFailed means the subprocess exited with a non-zero status
	// or its stdin pipe broke mid-write.
	StateFailed

	// StateTimedOut means the wall-clock timeout fired and a
	// termination signal was sent.
	StateTimedOut

	// StateKilled means the downstream consumer went away and the
	// subprocess was terminated on its behalf.
	StateKilled

	// StateSpawnFailed means the subprocess never started.
	StateSpawnFailed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	case StateTimedOut:
		return "timed_out"
	case StateKilled:
		return "killed"
	case StateSpawnFailed:
		return "spawn_failed"
	default:
		return "unknown"
	}
}

// Handle carries the identity and timing of one invocation. It is owned
// exclusively by the runner call that created it; callers only ever see
// the ID for correlation.
type Handle struct {
	// ID is the generated request identifier, unique per invocation.
	ID string

	// StartedAt is the spawn timestamp.
	StartedAt time.Time
}

// Turn role constants
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Input format constants. StreamJSON is the backend's line-delimited
// JSON convention (one JSON value per line).
const (
	InputFormatText       = "text"
	InputFormatStreamJSON = "stream-json"
)

// Output format constants passed to the backend CLI.
const (
	OutputFormatJSON       = "json"
	OutputFormatStreamJSON = "stream-json"
)

// Stop reason constants
const (
	StopReasonStop   = "stop"
	StopReasonLength = "length"
)
