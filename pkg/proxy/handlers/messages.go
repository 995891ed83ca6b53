package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/proxy"
	"mercator-hq/callisto/pkg/proxy/middleware"
	"mercator-hq/callisto/pkg/proxy/types"
)

const dialectAnthropic = "anthropic"

// handleMessagesRequest handles an Anthropic-dialect messages request.
// It shares the execution path with the chat handler; only the inbound
// parsing and outbound projection differ.
func handleMessagesRequest(w http.ResponseWriter, r *http.Request, deps *Deps) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	if r.Method != http.MethodPost {
		errResp := types.NewInvalidRequestError(
			fmt.Sprintf("Method %s not allowed. Use POST instead.", r.Method),
			"method",
			"method_not_allowed",
		)
		if err := proxy.WriteErrorResponse(w, errResp); err != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	msgReq, err := proxy.ParseMessagesRequest(r)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse request",
			"request_id", requestID,
			"error", err,
		)
		if deps.Metrics != nil {
			deps.Metrics.RecordRejection("invalid")
		}

		errResp := proxy.HandleError(err)
		if err := proxy.WriteErrorResponse(w, errResp); err != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	if msgReq.Stream {
		handleMessagesStream(w, r, deps, msgReq)
		return
	}

	slog.InfoContext(ctx, "processing messages request",
		"request_id", requestID,
		"model", msgReq.Model,
		"messages", len(msgReq.Messages),
	)

	completionReq := proxy.MessagesToCompletionRequest(msgReq, deps.InputFormat)

	resp, err := deps.Executor.Execute(ctx, completionReq)
	if err != nil {
		slog.ErrorContext(ctx, "backend execution failed",
			"request_id", requestID,
			"model", msgReq.Model,
			"error", err,
		)
		deps.observeRequest(r, dialectAnthropic, modelLabel(msgReq.Model), false, startTime, backend.TokenUsage{}, err)

		errResp := proxy.HandleError(err)
		if err := proxy.WriteErrorResponse(w, errResp); err != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	messagesResp := proxy.FormatMessagesResponse(resp, msgReq.Model)

	deps.observeRequest(r, dialectAnthropic, modelLabel(msgReq.Model), false, startTime, resp.Usage, nil)

	slog.InfoContext(ctx, "messages request successful",
		"request_id", requestID,
		"model", msgReq.Model,
		"stop_reason", messagesResp.StopReason,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"total_latency_ms", time.Since(startTime).Milliseconds(),
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, messagesResp); err != nil {
		slog.ErrorContext(ctx, "failed to write response",
			"request_id", requestID,
			"error", err,
		)
	}
}

// handleMessagesStream handles a streaming Anthropic-dialect messages
// request. Deltas travel as content_block_delta frames, the stop reason
// as a message_delta frame, and the stream always ends with the single
// [DONE] sentinel.
func handleMessagesStream(w http.ResponseWriter, r *http.Request, deps *Deps, msgReq *types.MessagesRequest) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	slog.InfoContext(ctx, "processing streaming messages request",
		"request_id", requestID,
		"model", msgReq.Model,
		"messages", len(msgReq.Messages),
	)

	completionReq := proxy.MessagesToCompletionRequest(msgReq, deps.InputFormat)

	chunks, err := deps.Executor.ExecuteStream(ctx, completionReq)
	if err != nil {
		slog.ErrorContext(ctx, "backend stream start failed",
			"request_id", requestID,
			"model", msgReq.Model,
			"error", err,
		)
		deps.observeRequest(r, dialectAnthropic, modelLabel(msgReq.Model), true, startTime, backend.TokenUsage{}, err)

		errResp := proxy.HandleError(err)
		if err := proxy.WriteErrorResponse(w, errResp); err != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	proxy.SetSSEHeaders(w)
	if flusher, ok := w.(http.Flusher); ok {
		flusher.Flush()
	}

	frameCount := 0
	var streamErr error

	for chunk := range chunks {
		if chunk.Error != nil {
			streamErr = chunk.Error
			slog.ErrorContext(ctx, "error in stream",
				"request_id", requestID,
				"frame_count", frameCount,
				"error", chunk.Error,
			)

			errResp := proxy.HandleError(chunk.Error)
			if err := proxy.WriteSSEError(w, errResp); err != nil {
				slog.ErrorContext(ctx, "failed to write SSE error", "error", err)
			}
			break
		}

		for _, frame := range proxy.FormatMessagesStreamFrames(chunk) {
			if err := proxy.WriteSSEChunk(w, frame); err != nil {
				slog.WarnContext(ctx, "failed to write SSE frame, client gone",
					"request_id", requestID,
					"frame_count", frameCount,
					"error", err,
				)
				return
			}
			frameCount++
		}
	}

	if err := proxy.WriteSSEDone(w); err != nil {
		slog.ErrorContext(ctx, "failed to write SSE done marker",
			"request_id", requestID,
			"error", err,
		)
	}

	deps.observeRequest(r, dialectAnthropic, modelLabel(msgReq.Model), true, startTime, backend.TokenUsage{}, streamErr)

	slog.InfoContext(ctx, "streaming messages request finished",
		"request_id", requestID,
		"model", msgReq.Model,
		"frames_sent", frameCount,
		"total_latency_ms", time.Since(startTime).Milliseconds(),
	)
}

// MessagesHandler serves the Anthropic-dialect /v1/messages endpoint.
type MessagesHandler struct {
	deps *Deps
}

// NewMessagesHandler creates a messages handler.
func NewMessagesHandler(deps *Deps) *MessagesHandler {
	return &MessagesHandler{deps: deps}
}

// ServeHTTP implements http.Handler.
func (h *MessagesHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handleMessagesRequest(w, r, h.deps)
}
