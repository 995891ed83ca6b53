// Callisto is an HTTP proxy that fronts a local CLI model runtime.
//
// It exposes OpenAI-style and Anthropic-style completion endpoints and
// translates each request into one backend subprocess invocation:
//   - POST /v1/chat/completions (OpenAI dialect)
//   - POST /v1/messages (Anthropic dialect)
//
// Both endpoints support buffered and SSE-streaming responses.
//
// Usage:
//
//	# Start the proxy with default configuration
//	callisto run
//
//	# Start with a custom configuration file
//	callisto run --config /path/to/config.yaml
//
//	# Validate configuration without starting
//	callisto validate --config /path/to/config.yaml
//
//	# Summarize recorded usage
//	callisto usage --since-hours 24
//
//	# Show version information
//	callisto version
package main

func main() {
	Execute()
}
