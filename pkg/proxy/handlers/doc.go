// Package handlers implements the HTTP endpoints of the Callisto proxy.
//
// # Endpoints
//
//   - ChatHandler: POST /v1/chat/completions (OpenAI dialect)
//   - MessagesHandler: POST /v1/messages (Anthropic dialect)
//   - HealthHandler: GET /health (liveness)
//   - ReadyHandler: GET /ready (backend executable resolvable)
//   - UsageHandler: GET /v1/usage (usage summary and recent records)
//
// Both completion endpoints normalize their dialect into the canonical
// backend.CompletionRequest, run it through the shared Executor, and
// project the canonical response back into their own dialect. The two
// projections never construct content independently: identical backend
// output yields identical content on both endpoints.
//
// # Streaming
//
// When a request sets "stream": true, the handler switches to
// Server-Sent Events. Every data frame carries a JSON payload and the
// stream always terminates with exactly one "data: [DONE]" sentinel,
// whether it ended normally, with an error frame, or with no content at
// all. Errors that occur after the first byte has been written can no
// longer change the HTTP status; they travel as an error frame before
// the sentinel.
package handlers
