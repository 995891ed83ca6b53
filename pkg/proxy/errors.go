package proxy

import (
	"context"
	"errors"
	"fmt"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/proxy/types"
)

// HandleError converts the execution layer's typed errors to the
// outward error envelope. The mapping is the single place where failure
// classification becomes an HTTP status:
//
//	ValidationError / RequestError -> 400
//	UnavailableError               -> 503
//	TimeoutError                   -> 504
//	ExecutionError / ParseError    -> 502
//	InputWriteError                -> 502
//	anything else                  -> 500
func HandleError(err error) *types.ErrorResponse {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ToErrorResponse()
	}

	var valErr *backend.ValidationError
	if errors.As(err, &valErr) {
		return types.NewInvalidRequestError(valErr.Message, valErr.Field, types.CodeInvalidValue)
	}

	var unavailErr *backend.UnavailableError
	if errors.As(err, &unavailErr) {
		return types.NewServiceUnavailableError(
			"The model backend is not available. Check the configured executable path.",
		)
	}

	var timeoutErr *backend.TimeoutError
	if errors.As(err, &timeoutErr) {
		return types.NewGatewayTimeoutError(timeoutErr.Error())
	}

	var execErr *backend.ExecutionError
	if errors.As(err, &execErr) {
		return types.NewBadGatewayError(
			fmt.Sprintf("Backend execution failed: %v", execErr),
		)
	}

	var parseErr *backend.ParseError
	if errors.As(err, &parseErr) {
		return types.NewBadGatewayError(
			fmt.Sprintf("Backend returned unparseable output: %v", parseErr),
		)
	}

	var writeErr *backend.InputWriteError
	if errors.As(err, &writeErr) {
		return types.NewBadGatewayError(
			fmt.Sprintf("Backend rejected its input: %v", writeErr),
		)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		// The client that would read this response is already gone.
		return types.NewServerError("Request canceled.")
	}

	return types.NewServerError(
		"An internal error occurred. Please try again later.",
	)
}
