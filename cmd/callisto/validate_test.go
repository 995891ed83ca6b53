package main

import (
	"os"
	"path/filepath"
	"testing"
)

func withConfigFile(t *testing.T, content string) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	prev := cfgFile
	cfgFile = path
	t.Cleanup(func() { cfgFile = prev })
}

func TestValidateConfig(t *testing.T) {
	t.Run("valid file", func(t *testing.T) {
		withConfigFile(t, `
server:
  listen_address: "127.0.0.1:9090"
backend:
  path: "claude"
`)
		if err := validateConfig(validateCmd, nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("invalid file", func(t *testing.T) {
		withConfigFile(t, `
backend:
  input_format: "bogus"
`)
		if err := validateConfig(validateCmd, nil); err == nil {
			t.Error("expected error for invalid input format")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		prev := cfgFile
		cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
		t.Cleanup(func() { cfgFile = prev })

		if err := validateConfig(validateCmd, nil); err == nil {
			t.Error("expected error for missing file")
		}
	})

	t.Run("no file uses defaults", func(t *testing.T) {
		prev := cfgFile
		cfgFile = ""
		t.Cleanup(func() { cfgFile = prev })

		if err := validateConfig(validateCmd, nil); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}
