// Package server provides the HTTP proxy server for Callisto.
//
// The server ties together the request handlers, middleware chain, and
// routing, and manages the full lifecycle of the HTTP listener
// including graceful shutdown on SIGINT/SIGTERM or context
// cancellation.
//
// # Routes
//
// Completion routes translate between client dialects and the backend
// CLI:
//
//   - POST /v1/chat/completions: OpenAI-style chat completions
//   - POST /v1/messages: Anthropic-style messages
//
// Administrative routes serve operational traffic:
//
//   - GET /health: liveness probe
//   - GET /ready: readiness probe (checks backend availability)
//   - GET /v1/usage: usage summary (when usage tracking is enabled)
//   - GET /metrics: Prometheus metrics (when metrics are enabled)
//
// # Middleware
//
// Every request passes through the chain Recovery, Logging, RequestID,
// CORS (outermost first). Completion routes additionally carry API key
// authentication and concurrency admission control when configured;
// administrative routes carry a short per-request timeout instead.
//
// # Usage
//
//	srv := server.NewServer(cfg, runner, store, collector, logger)
//	if err := srv.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
package server
