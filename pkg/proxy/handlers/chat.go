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

const dialectOpenAI = "openai"

// modelLabel returns a stable metrics label for the requested model.
func modelLabel(model string) string {
	if model == "" {
		return "default"
	}
	return model
}

// handleChatRequest handles an OpenAI-dialect chat completion request.
func handleChatRequest(w http.ResponseWriter, r *http.Request, deps *Deps) {
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

	chatReq, err := proxy.ParseChatCompletionRequest(r)
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

	if chatReq.Stream {
		handleChatStream(w, r, deps, chatReq)
		return
	}

	slog.InfoContext(ctx, "processing chat completion request",
		"request_id", requestID,
		"model", chatReq.Model,
		"messages", len(chatReq.Messages),
	)

	completionReq := proxy.ToCompletionRequest(chatReq, deps.InputFormat)

	resp, err := deps.Executor.Execute(ctx, completionReq)
	if err != nil {
		slog.ErrorContext(ctx, "backend execution failed",
			"request_id", requestID,
			"model", chatReq.Model,
			"error", err,
		)
		deps.observeRequest(r, dialectOpenAI, modelLabel(chatReq.Model), false, startTime, backend.TokenUsage{}, err)

		errResp := proxy.HandleError(err)
		if err := proxy.WriteErrorResponse(w, errResp); err != nil {
			slog.ErrorContext(ctx, "failed to write error response", "error", err)
		}
		return
	}

	openaiResp := proxy.FormatChatCompletionResponse(resp, chatReq.Model)

	deps.observeRequest(r, dialectOpenAI, modelLabel(chatReq.Model), false, startTime, resp.Usage, nil)

	slog.InfoContext(ctx, "chat completion successful",
		"request_id", requestID,
		"model", chatReq.Model,
		"stop_reason", resp.StopReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"total_tokens", resp.Usage.TotalTokens,
		"total_latency_ms", time.Since(startTime).Milliseconds(),
	)

	if err := proxy.WriteJSONResponse(w, http.StatusOK, openaiResp); err != nil {
		slog.ErrorContext(ctx, "failed to write response",
			"request_id", requestID,
			"error", err,
		)
	}
}

// handleChatStream handles a streaming OpenAI-dialect chat completion
// request. Once streaming starts, errors travel as SSE error frames;
// the [DONE] sentinel is written exactly once in every case.
func handleChatStream(w http.ResponseWriter, r *http.Request, deps *Deps, chatReq *types.ChatCompletionRequest) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)
	startTime := time.Now()

	slog.InfoContext(ctx, "processing streaming chat completion request",
		"request_id", requestID,
		"model", chatReq.Model,
		"messages", len(chatReq.Messages),
	)

	completionReq := proxy.ToCompletionRequest(chatReq, deps.InputFormat)

	chunks, err := deps.Executor.ExecuteStream(ctx, completionReq)
	if err != nil {
		// Spawn failed before any bytes went out, so a plain HTTP
		// error is still possible.
		slog.ErrorContext(ctx, "backend stream start failed",
			"request_id", requestID,
			"model", chatReq.Model,
			"error", err,
		)
		deps.observeRequest(r, dialectOpenAI, modelLabel(chatReq.Model), true, startTime, backend.TokenUsage{}, err)

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

	responseID := fmt.Sprintf("chatcmpl-%s", requestID)
	chunkCount := 0
	var streamErr error

	for chunk := range chunks {
		if chunk.Error != nil {
			streamErr = chunk.Error
			slog.ErrorContext(ctx, "error in stream",
				"request_id", requestID,
				"chunk_count", chunkCount,
				"error", chunk.Error,
			)

			errResp := proxy.HandleError(chunk.Error)
			if err := proxy.WriteSSEError(w, errResp); err != nil {
				slog.ErrorContext(ctx, "failed to write SSE error", "error", err)
			}
			break
		}

		openaiChunk := proxy.FormatStreamChunk(chunk, chatReq.Model, responseID)
		if err := proxy.WriteSSEChunk(w, openaiChunk); err != nil {
			slog.WarnContext(ctx, "failed to write SSE chunk, client gone",
				"request_id", requestID,
				"chunk_count", chunkCount,
				"error", err,
			)
			return
		}
		chunkCount++
	}

	if err := proxy.WriteSSEDone(w); err != nil {
		slog.ErrorContext(ctx, "failed to write SSE done marker",
			"request_id", requestID,
			"error", err,
		)
	}

	deps.observeRequest(r, dialectOpenAI, modelLabel(chatReq.Model), true, startTime, backend.TokenUsage{}, streamErr)

	slog.InfoContext(ctx, "streaming chat completion finished",
		"request_id", requestID,
		"model", chatReq.Model,
		"chunks_sent", chunkCount,
		"total_latency_ms", time.Since(startTime).Milliseconds(),
	)
}

// ChatHandler serves the OpenAI-dialect /v1/chat/completions endpoint.
type ChatHandler struct {
	deps *Deps
}

// NewChatHandler creates a chat completions handler.
func NewChatHandler(deps *Deps) *ChatHandler {
	return &ChatHandler{deps: deps}
}

// ServeHTTP implements http.Handler.
func (h *ChatHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	handleChatRequest(w, r, h.deps)
}
