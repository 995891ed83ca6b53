// Package types defines the wire types for the proxy's two HTTP
// dialects: OpenAI-style chat completions and Anthropic-style messages.
//
// Both dialects are projections over the same canonical execution
// result; the types here carry no behavior beyond validation and are
// safe to marshal directly.
//
// The error envelope follows OpenAI conventions on both dialects:
//
//	{
//	  "error": {
//	    "message": "backend execution timed out after 2m0s",
//	    "type": "gateway_timeout",
//	    "code": "backend_timeout"
//	  }
//	}
package types
