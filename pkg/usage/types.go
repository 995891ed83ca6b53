package usage

import (
	"context"
	"fmt"
	"time"
)

// Record captures the accounting data for one completion request.
type Record struct {
	// ID uniquely identifies this record.
	ID string

	// RequestID is the HTTP request ID the record belongs to.
	RequestID string

	// Dialect is the inbound API shape ("openai" or "anthropic").
	Dialect string

	// Model is the model the request named (or the configured default).
	Model string

	// Stream indicates whether the response was streamed.
	Stream bool

	// Status is the request outcome ("success", "error", "timeout",
	// "canceled").
	Status string

	// Token counts as reported by the backend.
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int

	// DurationMs is the end-to-end request duration in milliseconds.
	DurationMs int64

	// UserID is the optional caller identity from the X-User-ID header.
	UserID string

	// CreatedAt is when the record was written.
	CreatedAt time.Time
}

// Summary aggregates usage over a time window.
type Summary struct {
	Requests         int64 `json:"requests"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Store persists usage records.
type Store interface {
	// Record writes one usage record.
	Record(ctx context.Context, rec *Record) error

	// Summarize aggregates records created at or after since.
	Summarize(ctx context.Context, since time.Time) (*Summary, error)

	// Recent returns the newest records, most recent first.
	Recent(ctx context.Context, limit int) ([]*Record, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes records created before the cutoff and
	// returns how many were deleted.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// TrimToCount removes the oldest records beyond max and returns
	// how many were deleted.
	TrimToCount(ctx context.Context, max int64) (int64, error)

	// Close releases any underlying resources.
	Close() error
}

// StorageError wraps a failure in a storage backend.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("usage storage %s: %s: %v", e.Backend, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *StorageError) Unwrap() error {
	return e.Err
}
