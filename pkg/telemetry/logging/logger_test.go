package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"mercator-hq/callisto/pkg/config"
)

func TestNew(t *testing.T) {
	t.Run("json format", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&config.LoggingConfig{Level: "info", Format: "json"}, &buf)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		logger.Info("hello", "dialect", "openai")

		var entry map[string]interface{}
		if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
			t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
		}
		if entry["msg"] != "hello" {
			t.Errorf("expected msg hello, got %v", entry["msg"])
		}
		if entry["dialect"] != "openai" {
			t.Errorf("expected dialect attribute, got %v", entry["dialect"])
		}
	})

	t.Run("text format", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&config.LoggingConfig{Level: "info", Format: "text"}, &buf)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		logger.Info("hello")

		if !strings.Contains(buf.String(), "msg=hello") {
			t.Errorf("expected text output, got %q", buf.String())
		}
	})

	t.Run("level filtering", func(t *testing.T) {
		var buf bytes.Buffer
		logger, err := New(&config.LoggingConfig{Level: "warn", Format: "json"}, &buf)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}

		logger.Info("suppressed")
		if buf.Len() != 0 {
			t.Errorf("info should be suppressed at warn level, got %q", buf.String())
		}

		logger.Warn("visible")
		if buf.Len() == 0 {
			t.Error("warn should be emitted at warn level")
		}
	})

	t.Run("invalid level", func(t *testing.T) {
		if _, err := New(&config.LoggingConfig{Level: "trace", Format: "json"}, nil); err == nil {
			t.Error("expected error for invalid level")
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		if _, err := New(&config.LoggingConfig{Level: "info", Format: "xml"}, nil); err == nil {
			t.Error("expected error for invalid format")
		}
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
	}

	for _, tt := range tests {
		got, err := parseLevel(tt.input)
		if err != nil {
			t.Errorf("parseLevel(%q) failed: %v", tt.input, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}
