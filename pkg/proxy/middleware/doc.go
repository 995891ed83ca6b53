// Package middleware provides the HTTP middleware chain for the proxy:
// panic recovery, structured request logging, request ID generation and
// propagation, CORS, and an administrative-route timeout.
//
// The server composes them outermost first:
//
//	Recovery -> Logging -> RequestID -> CORS -> handler
//
// so panics are caught around everything, every request is logged, and
// the request ID is available to all inner layers.
package middleware
