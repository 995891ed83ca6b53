package proxy

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/proxy/types"
)

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantType   string
		wantStatus int
	}{
		{
			name:       "request error",
			err:        &RequestError{Message: "bad field", Code: types.CodeInvalidValue, Param: "model"},
			wantType:   types.ErrorTypeInvalidRequest,
			wantStatus: 400,
		},
		{
			name:       "validation error",
			err:        &backend.ValidationError{Field: "messages", Message: "must not be empty"},
			wantType:   types.ErrorTypeInvalidRequest,
			wantStatus: 400,
		},
		{
			name:       "unavailable",
			err:        &backend.UnavailableError{Path: "claude", Cause: errors.New("not found")},
			wantType:   types.ErrorTypeServiceUnavailable,
			wantStatus: 503,
		},
		{
			name:       "timeout",
			err:        &backend.TimeoutError{Timeout: 30 * time.Second},
			wantType:   types.ErrorTypeGatewayTimeout,
			wantStatus: 504,
		},
		{
			name:       "execution failure",
			err:        &backend.ExecutionError{ExitCode: 2, Stderr: "rate limited"},
			wantType:   types.ErrorTypeBadGateway,
			wantStatus: 502,
		},
		{
			name:       "parse failure",
			err:        &backend.ParseError{Raw: "garbage", Cause: errors.New("bad json")},
			wantType:   types.ErrorTypeBadGateway,
			wantStatus: 502,
		},
		{
			name:       "input write failure",
			err:        &backend.InputWriteError{Cause: errors.New("broken pipe")},
			wantType:   types.ErrorTypeBadGateway,
			wantStatus: 502,
		},
		{
			name:       "context canceled",
			err:        context.Canceled,
			wantType:   types.ErrorTypeServerError,
			wantStatus: 500,
		},
		{
			name:       "unknown error",
			err:        errors.New("something else"),
			wantType:   types.ErrorTypeServerError,
			wantStatus: 500,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := HandleError(tt.err)
			if resp.Error.Type != tt.wantType {
				t.Errorf("expected type %q, got %q", tt.wantType, resp.Error.Type)
			}
			if got := resp.Error.HTTPStatusCode(); got != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, got)
			}
		})
	}
}

func TestHandleErrorWrapped(t *testing.T) {
	// errors.As must see through wrapping.
	wrapped := fmt.Errorf("executing request: %w",
		&backend.TimeoutError{Timeout: time.Minute})

	resp := HandleError(wrapped)
	if resp.Error.HTTPStatusCode() != 504 {
		t.Errorf("expected 504 for wrapped timeout, got %d", resp.Error.HTTPStatusCode())
	}
}

func TestHandleErrorCarriesDiagnostics(t *testing.T) {
	resp := HandleError(&backend.ExecutionError{ExitCode: 3, Stderr: "model exploded"})
	if !strings.Contains(resp.Error.Message, "model exploded") {
		t.Errorf("expected stderr diagnostic in message, got %q", resp.Error.Message)
	}
}
