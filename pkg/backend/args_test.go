package backend

import (
	"reflect"
	"strings"
	"testing"
)

func TestBuildArgs(t *testing.T) {
	t.Run("buffered defaults", func(t *testing.T) {
		args := BuildArgs("", 0, nil, InputFormatText, OutputFormatJSON)

		expected := []string{
			"--print",
			"--dangerously-skip-permissions",
			"--output-format", "json",
		}
		if !reflect.DeepEqual(args, expected) {
			t.Errorf("expected %v, got %v", expected, args)
		}
	})

	t.Run("stream output adds verbose", func(t *testing.T) {
		args := BuildArgs("", 0, nil, InputFormatText, OutputFormatStreamJSON)

		if !containsArg(args, "--verbose") {
			t.Errorf("expected --verbose in %v", args)
		}
		if idx := indexArg(args, "--output-format"); idx < 0 || args[idx+1] != "stream-json" {
			t.Errorf("expected --output-format stream-json in %v", args)
		}
	})

	t.Run("stream-json input format", func(t *testing.T) {
		args := BuildArgs("", 0, nil, InputFormatStreamJSON, OutputFormatJSON)

		if idx := indexArg(args, "--input-format"); idx < 0 || args[idx+1] != "stream-json" {
			t.Errorf("expected --input-format stream-json in %v", args)
		}
	})

	t.Run("text input omits input-format flag", func(t *testing.T) {
		args := BuildArgs("", 0, nil, InputFormatText, OutputFormatJSON)

		if containsArg(args, "--input-format") {
			t.Errorf("unexpected --input-format in %v", args)
		}
	})

	t.Run("model flag", func(t *testing.T) {
		args := BuildArgs("claude-sonnet-4", 0, nil, InputFormatText, OutputFormatJSON)

		if idx := indexArg(args, "--model"); idx < 0 || args[idx+1] != "claude-sonnet-4" {
			t.Errorf("expected --model claude-sonnet-4 in %v", args)
		}
	})

	t.Run("settings blob with max tokens", func(t *testing.T) {
		args := BuildArgs("", 256, nil, InputFormatText, OutputFormatJSON)

		idx := indexArg(args, "--settings")
		if idx < 0 {
			t.Fatalf("expected --settings in %v", args)
		}
		if args[idx+1] != `{"max_tokens":256}` {
			t.Errorf("expected max_tokens blob, got %q", args[idx+1])
		}
	})

	t.Run("settings blob with temperature", func(t *testing.T) {
		temp := 0.7
		args := BuildArgs("", 0, &temp, InputFormatText, OutputFormatJSON)

		idx := indexArg(args, "--settings")
		if idx < 0 {
			t.Fatalf("expected --settings in %v", args)
		}
		if !strings.Contains(args[idx+1], `"temperature":0.7`) {
			t.Errorf("expected temperature in blob, got %q", args[idx+1])
		}
	})

	t.Run("zero temperature is preserved", func(t *testing.T) {
		temp := 0.0
		args := BuildArgs("", 0, &temp, InputFormatText, OutputFormatJSON)

		idx := indexArg(args, "--settings")
		if idx < 0 {
			t.Fatalf("expected --settings in %v", args)
		}
		if !strings.Contains(args[idx+1], `"temperature":0`) {
			t.Errorf("expected zero temperature in blob, got %q", args[idx+1])
		}
	})

	t.Run("no settings flag when nothing set", func(t *testing.T) {
		args := BuildArgs("m", 0, nil, InputFormatText, OutputFormatJSON)

		if containsArg(args, "--settings") {
			t.Errorf("unexpected --settings in %v", args)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		temp := 0.5
		a := BuildArgs("m", 100, &temp, InputFormatStreamJSON, OutputFormatStreamJSON)
		b := BuildArgs("m", 100, &temp, InputFormatStreamJSON, OutputFormatStreamJSON)

		if !reflect.DeepEqual(a, b) {
			t.Errorf("identical inputs produced %v and %v", a, b)
		}
	})
}

func containsArg(args []string, flag string) bool {
	return indexArg(args, flag) >= 0
}

func indexArg(args []string, flag string) int {
	for i, a := range args {
		if a == flag {
			return i
		}
	}
	return -1
}
