// Package backend executes a CLI language-model backend as one
// subprocess per request and translates between HTTP chat payloads and
// the backend's process protocol.
//
// # Overview
//
// The backend binary is a long-running CLI tool driven entirely through
// its standard streams: the prompt goes in on stdin, the completion
// comes back on stdout, and diagnostics arrive on stderr. This package
// owns everything on the process side of that boundary:
//
//  1. Argument assembly - deterministic argv construction from request settings
//  2. Input translation - chat turns to plain text or the line-delimited JSON protocol
//  3. Process lifecycle - spawn, feed, wait, timeout escalation, reaping
//  4. Output parsing - terminal JSON objects and streamed event lines
//
// # Execution Model
//
// Every request gets a fresh subprocess. There is no pooling, reuse, or
// warm standby; invocations are fully independent and crash isolation
// comes for free. The three standard streams are serviced by dedicated
// goroutines so no stream can deadlock another.
//
// # Basic Usage
//
// Buffered execution:
//
//	runner := backend.NewRunner(backend.Options{
//	    Path:    "claude",
//	    Timeout: 2 * time.Minute,
//	})
//
//	resp, err := runner.Execute(ctx, &backend.CompletionRequest{
//	    Model: "claude-sonnet-4",
//	    Turns: []backend.Turn{
//	        {Role: backend.RoleUser, Content: "Hello!"},
//	    },
//	})
//
// Streaming execution:
//
//	chunks, err := runner.ExecuteStream(ctx, req)
//	if err != nil {
//	    return err
//	}
//	for chunk := range chunks {
//	    if chunk.Error != nil {
//	        return chunk.Error
//	    }
//	    fmt.Print(chunk.Delta)
//	}
//
// # Timeout Escalation
//
// An invocation that outlives its timeout is first asked to terminate
// gracefully, then killed after a fixed grace period. Cancellation of
// the caller's context (a dropped HTTP client, typically) follows the
// same escalation path. The subprocess is reaped in every outcome.
//
// # Error Handling
//
// Failures are classified into distinct error types so callers can map
// them to transport-level responses:
//
//   - ValidationError: the request could not produce backend input
//   - UnavailableError: the backend executable could not be spawned
//   - InputWriteError: stdin write failed mid-flight
//   - TimeoutError: wall-clock timeout expired
//   - ExecutionError: non-zero exit, carrying exit code and diagnostics
//   - ParseError: exit zero but unintelligible output
package backend
