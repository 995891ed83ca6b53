//go:build integration

package test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"mercator-hq/callisto/pkg/backend"
	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/server"
	"mercator-hq/callisto/pkg/telemetry/metrics"
	"mercator-hq/callisto/pkg/usage"
)

// fakeBackendScript emulates the backend CLI: it consumes stdin and
// emits either a terminal JSON object or stream-json lines depending on
// the requested output format.
const fakeBackendScript = `#!/bin/sh
mode=json
prev=""
for arg in "$@"; do
  if [ "$prev" = "--output-format" ]; then mode="$arg"; fi
  prev="$arg"
done
cat >/dev/null
if [ "$mode" = "stream-json" ]; then
  printf '%s\n' '{"type":"system","subtype":"init"}'
  printf '%s\n' '{"type":"assistant","message":{"content":[{"type":"text","text":"str"}]}}'
  printf '%s\n' '{"type":"assistant","message":{"content":[{"type":"text","text":"eam"}],"stop_reason":"stop"}}'
else
  printf '%s\n' '{"result":"integration says hi","stop_reason":"stop","usage":{"input_tokens":3,"output_tokens":4}}'
fi
`

const failingBackendScript = `#!/bin/sh
cat >/dev/null
echo "model exploded" >&2
exit 2
`

func writeScript(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o755); err != nil {
		t.Fatalf("failed to write backend script: %v", err)
	}
	return path
}

func newIntegrationServer(t *testing.T, backendPath string) (*httptest.Server, usage.Store) {
	t.Helper()

	cfg := config.Default()
	cfg.Backend.Path = backendPath
	cfg.Backend.Timeout = 10 * time.Second
	cfg.Usage.Enabled = true
	cfg.Usage.Backend = "memory"
	cfg.Telemetry.Metrics.Enabled = true

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	runner := backend.NewRunner(backend.Options{
		Path:         cfg.Backend.Path,
		DefaultModel: "fake-model",
		Timeout:      cfg.Backend.Timeout,
		Logger:       logger,
	})
	store := usage.NewMemoryStore()
	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)

	srv := server.NewServer(cfg, runner, store, collector, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return ts, store
}

func TestProxyIntegration(t *testing.T) {
	script := writeScript(t, "fake-backend", fakeBackendScript)
	ts, store := newIntegrationServer(t, script)

	t.Run("buffered chat completion", func(t *testing.T) {
		body := `{"model":"fake-model","messages":[{"role":"user","content":"hi"}]}`
		resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, raw)
		}

		var decoded struct {
			ID      string `json:"id"`
			Choices []struct {
				Message struct {
					Content string `json:"content"`
				} `json:"message"`
				FinishReason string `json:"finish_reason"`
			} `json:"choices"`
			Usage struct {
				TotalTokens int `json:"total_tokens"`
			} `json:"usage"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(decoded.Choices) != 1 {
			t.Fatalf("expected one choice, got %d", len(decoded.Choices))
		}
		if decoded.Choices[0].Message.Content != "integration says hi" {
			t.Errorf("unexpected content %q", decoded.Choices[0].Message.Content)
		}
		if decoded.Choices[0].FinishReason != "stop" {
			t.Errorf("expected finish_reason stop, got %q", decoded.Choices[0].FinishReason)
		}
		if decoded.Usage.TotalTokens != 7 {
			t.Errorf("expected 7 total tokens, got %d", decoded.Usage.TotalTokens)
		}
	})

	t.Run("buffered messages", func(t *testing.T) {
		body := `{"model":"fake-model","max_tokens":50,"messages":[{"role":"user","content":"hi"}]}`
		resp, err := http.Post(ts.URL+"/v1/messages", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, raw)
		}

		var decoded struct {
			Content []struct {
				Text string `json:"text"`
			} `json:"content"`
			StopReason string `json:"stop_reason"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(decoded.Content) != 1 || decoded.Content[0].Text != "integration says hi" {
			t.Errorf("unexpected content %+v", decoded.Content)
		}
		if decoded.StopReason != "end_turn" {
			t.Errorf("expected stop_reason end_turn, got %q", decoded.StopReason)
		}
	})

	t.Run("streaming chat completion", func(t *testing.T) {
		body := `{"model":"fake-model","stream":true,"messages":[{"role":"user","content":"hi"}]}`
		resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			raw, _ := io.ReadAll(resp.Body)
			t.Fatalf("expected status 200, got %d: %s", resp.StatusCode, raw)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
			t.Errorf("expected text/event-stream, got %q", ct)
		}

		var deltas []string
		sawDone := false
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			payload := strings.TrimPrefix(line, "data: ")
			if payload == "[DONE]" {
				sawDone = true
				continue
			}

			var chunk struct {
				Choices []struct {
					Delta struct {
						Content string `json:"content"`
					} `json:"delta"`
				} `json:"choices"`
			}
			if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
				t.Fatalf("invalid SSE payload %q: %v", payload, err)
			}
			if len(chunk.Choices) == 1 {
				deltas = append(deltas, chunk.Choices[0].Delta.Content)
			}
		}

		if got := strings.Join(deltas, ""); got != "stream" {
			t.Errorf("expected concatenated deltas %q, got %q", "stream", got)
		}
		if !sawDone {
			t.Error("expected [DONE] sentinel")
		}
	})

	t.Run("usage records written", func(t *testing.T) {
		// Records are written after the response; give the async write
		// a moment.
		deadline := time.Now().Add(time.Second)
		for {
			count, err := store.Count(context.Background())
			if err != nil {
				t.Fatalf("count failed: %v", err)
			}
			if count >= 3 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatalf("expected at least 3 usage records, got %d", count)
			}
			time.Sleep(10 * time.Millisecond)
		}
	})

	t.Run("metrics scrape", func(t *testing.T) {
		resp, err := http.Get(ts.URL + "/metrics")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		defer resp.Body.Close()

		raw, _ := io.ReadAll(resp.Body)
		if !bytes.Contains(raw, []byte("callisto_proxy_requests_total")) {
			t.Error("expected request counter in metrics output")
		}
	})
}

func TestProxyIntegrationBackendFailure(t *testing.T) {
	script := writeScript(t, "failing-backend", failingBackendScript)
	ts, _ := newIntegrationServer(t, script)

	body := `{"model":"fake-model","messages":[{"role":"user","content":"hi"}]}`
	resp, err := http.Post(ts.URL+"/v1/chat/completions", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected status 502, got %d", resp.StatusCode)
	}

	raw, _ := io.ReadAll(resp.Body)
	if !bytes.Contains(raw, []byte("model exploded")) {
		t.Errorf("expected backend stderr in error body, got %s", raw)
	}
}
