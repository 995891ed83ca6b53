package handlers

import (
	"encoding/json"
	"net/http"
	"time"
)

// HealthHandler handles liveness probes. It answers as long as the
// process is serving requests, regardless of backend availability.
type HealthHandler struct{}

// NewHealthHandler creates a liveness handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// ServeHTTP implements http.Handler.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().Unix(),
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(response)
}

// ReadyHandler handles readiness probes. The service is ready when the
// backend executable can be resolved.
type ReadyHandler struct {
	Executor Executor
}

// NewReadyHandler creates a readiness handler.
func NewReadyHandler(executor Executor) *ReadyHandler {
	return &ReadyHandler{Executor: executor}
}

// ServeHTTP implements http.Handler.
func (h *ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := "ready"
	statusCode := http.StatusOK
	var backendErr interface{}

	if err := h.Executor.Ready(); err != nil {
		status = "not_ready"
		statusCode = http.StatusServiceUnavailable
		backendErr = err.Error()
	}

	response := map[string]interface{}{
		"status":    status,
		"timestamp": time.Now().Unix(),
	}
	if backendErr != nil {
		response["error"] = backendErr
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(response)
}
