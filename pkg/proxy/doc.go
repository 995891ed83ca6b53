// Package proxy implements the HTTP translation layer between the two
// inbound chat dialects and the canonical execution types.
//
// # Overview
//
// The proxy accepts OpenAI-style chat completion requests and
// Anthropic-style messages requests, normalizes both to one canonical
// request shape, and projects the canonical result back into whichever
// dialect the client spoke. The projections are pure functions over one
// canonical response, so the two dialects can never report different
// content for the same invocation.
//
// # Request Flow
//
//  1. Parse and validate the dialect-specific body (request.go)
//  2. Normalize to backend.CompletionRequest
//  3. Execute (pkg/backend)
//  4. Project the canonical response outward (response.go)
//  5. On failure, map typed errors to the error envelope (errors.go)
//
// # Streaming
//
// Streaming responses use Server-Sent Events. Every frame is
//
//	data: <JSON>\n\n
//
// and every stream, successful or not, ends with exactly one
//
//	data: [DONE]\n\n
//
// sentinel. Failures after the first byte are encoded as an error-shaped
// frame immediately before the sentinel rather than a transport abort.
package proxy
