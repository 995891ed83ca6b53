package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/proxy/types"
)

const (
	// MaxRequestBodySize is the maximum allowed request body size (10MB).
	MaxRequestBodySize = 10 * 1024 * 1024

	// AuthorizationHeader is the HTTP header for API key authentication.
	AuthorizationHeader = "Authorization"

	// AnthropicAPIKeyHeader is the Anthropic-convention API key header.
	AnthropicAPIKeyHeader = "X-Api-Key"

	// UserIDHeader is the HTTP header for user ID tracking.
	UserIDHeader = "X-User-ID"

	// RequestIDHeader is the HTTP header for request ID propagation.
	RequestIDHeader = "X-Request-ID"
)

// readBody reads and size-limits the request body.
func readBody(r *http.Request) ([]byte, error) {
	limitedReader := io.LimitReader(r.Body, MaxRequestBodySize)

	body, err := io.ReadAll(limitedReader)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}

	if len(body) >= MaxRequestBodySize {
		return nil, &RequestError{
			Message: fmt.Sprintf("request body exceeds maximum size of %d bytes", MaxRequestBodySize),
			Code:    types.CodeRequestTooLarge,
			Param:   "body",
		}
	}

	return body, nil
}

// ParseChatCompletionRequest parses an HTTP request body into an
// OpenAI-dialect ChatCompletionRequest. It validates the JSON format,
// enforces size limits, and validates required fields.
func ParseChatCompletionRequest(r *http.Request) (*types.ChatCompletionRequest, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	var req types.ChatCompletionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	if err := req.Validate(); err != nil {
		return nil, wrapValidation(err)
	}

	return &req, nil
}

// ParseMessagesRequest parses an HTTP request body into an
// Anthropic-dialect MessagesRequest.
func ParseMessagesRequest(r *http.Request) (*types.MessagesRequest, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}

	var req types.MessagesRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, &RequestError{
			Message: fmt.Sprintf("invalid JSON: %v", err),
			Code:    types.CodeInvalidJSON,
			Param:   "body",
		}
	}

	if err := req.Validate(); err != nil {
		return nil, wrapValidation(err)
	}

	return &req, nil
}

// wrapValidation converts a types.ValidationError to a RequestError so
// both dialects surface the same envelope shape.
func wrapValidation(err error) error {
	if valErr, ok := err.(*types.ValidationError); ok {
		return &RequestError{
			Message: valErr.Message,
			Code:    types.CodeInvalidValue,
			Param:   valErr.Field,
		}
	}
	return err
}

// ToCompletionRequest normalizes an OpenAI-dialect request to the
// canonical execution request. Multimodal content is flattened to its
// text parts; unsupported knobs are dropped.
func ToCompletionRequest(req *types.ChatCompletionRequest, inputFormat string) *backend.CompletionRequest {
	out := &backend.CompletionRequest{
		Model:       req.Model,
		Turns:       make([]backend.Turn, 0, len(req.Messages)),
		Temperature: req.Temperature,
		InputFormat: inputFormat,
		Stream:      req.Stream,
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	for _, msg := range req.Messages {
		out.Turns = append(out.Turns, backend.Turn{
			Role:    msg.Role,
			Content: types.FlattenContent(msg.Content),
		})
	}
	return out
}

// MessagesToCompletionRequest normalizes an Anthropic-dialect request to
// the canonical execution request. The request-level system prompt, when
// present, becomes a leading system turn.
func MessagesToCompletionRequest(req *types.MessagesRequest, inputFormat string) *backend.CompletionRequest {
	out := &backend.CompletionRequest{
		Model:       req.Model,
		Turns:       make([]backend.Turn, 0, len(req.Messages)+1),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		InputFormat: inputFormat,
		Stream:      req.Stream,
	}
	if system := types.FlattenContent(req.System); system != "" {
		out.Turns = append(out.Turns, backend.Turn{
			Role:    backend.RoleSystem,
			Content: system,
		})
	}
	for _, msg := range req.Messages {
		out.Turns = append(out.Turns, backend.Turn{
			Role:    msg.Role,
			Content: types.FlattenContent(msg.Content),
		})
	}
	return out
}

// ExtractAPIKey extracts the API key from the Authorization header
// ("Bearer <key>", OpenAI convention) or the X-Api-Key header
// (Anthropic convention). The Authorization header wins when both are
// present. Returns an empty string when neither is set.
func ExtractAPIKey(r *http.Request) string {
	if authHeader := r.Header.Get(AuthorizationHeader); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.ToLower(parts[0]) == "bearer" {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	return strings.TrimSpace(r.Header.Get(AnthropicAPIKeyHeader))
}

// ExtractUserID extracts the user ID from the X-User-ID header.
// If the header is not present, it returns an empty string.
func ExtractUserID(r *http.Request) string {
	return r.Header.Get(UserIDHeader)
}

// ExtractRequestID extracts the request ID from the X-Request-ID header.
// This allows clients to provide their own request IDs for correlation.
// If not provided, the middleware will generate one.
func ExtractRequestID(r *http.Request) string {
	return r.Header.Get(RequestIDHeader)
}

// RequestError represents a request parsing or validation error.
type RequestError struct {
	Message string
	Code    string
	Param   string
}

// Error implements the error interface.
func (e *RequestError) Error() string {
	return e.Message
}

// ToErrorResponse converts a RequestError to the outward error envelope.
func (e *RequestError) ToErrorResponse() *types.ErrorResponse {
	return types.NewInvalidRequestError(e.Message, e.Param, e.Code)
}
