package backend

import (
	"fmt"
	"time"
)

// ValidationError represents a structurally invalid request.
// This occurs when the request fails invariants before any subprocess
// is spawned (empty turn sequence, blank role or content).
type ValidationError struct {
	// Field is the name of the invalid field
	Field string

	// Message describes what is invalid about the field
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid request field %q: %s", e.Field, e.Message)
}

// UnavailableError represents a failure to spawn the backend executable.
// This occurs when the binary is missing or not executable; the invocation
// never started and nothing needs to be reaped.
type UnavailableError struct {
	// Path is the configured backend executable path
	Path string

	// Cause is the underlying spawn error
	Cause error
}

// Error implements the error interface.
func (e *UnavailableError) Error() string {
	return fmt.Sprintf("backend %q unavailable: %v", e.Path, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *UnavailableError) Unwrap() error {
	return e.Cause
}

// InputWriteError represents a broken stdin pipe after spawn.
// The invocation is fatal but the subprocess is still reaped.
type InputWriteError struct {
	// Cause is the underlying write error
	Cause error
}

// Error implements the error interface.
func (e *InputWriteError) Error() string {
	return fmt.Sprintf("failed to write backend stdin: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *InputWriteError) Unwrap() error {
	return e.Cause
}

// TimeoutError represents an invocation that exceeded its allotted
// wall-clock time. The caller only observes the timeout, not which
// termination signal ultimately succeeded.
type TimeoutError struct {
	// Timeout is the configured execution timeout
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("backend execution timed out after %s", e.Timeout)
}

// ExecutionError represents a subprocess that exited with a non-zero
// status. Stderr carries the captured diagnostic text, falling back to
// stdout when stderr was empty.
type ExecutionError struct {
	// ExitCode is the subprocess exit status
	ExitCode int

	// Stderr is the captured diagnostic text
	Stderr string
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	if e.Stderr != "" {
		return fmt.Sprintf("backend exited with code %d: %s", e.ExitCode, e.Stderr)
	}
	return fmt.Sprintf("backend exited with code %d", e.ExitCode)
}

// ParseError represents a zero-exit invocation whose output could not be
// parsed. This indicates a backend contract violation rather than a
// request problem.
type ParseError struct {
	// Raw is a truncated prefix of the unparseable output, for diagnostics
	Raw string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse backend output: %v", e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// rawPreviewLen bounds the diagnostic prefix attached to ParseError.
const rawPreviewLen = 512

// truncateRaw truncates raw backend output for inclusion in errors.
func truncateRaw(s string) string {
	if len(s) <= rawPreviewLen {
		return s
	}
	return s[:rawPreviewLen] + "..."
}
