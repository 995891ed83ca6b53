package backend

import "encoding/json"

// settingsBlob is the JSON payload passed via the backend's --settings
// flag. Both fields ride in one blob; the flag is omitted entirely when
// neither is set so the backend never sees an empty settings object.
type settingsBlob struct {
	MaxTokens   int      `json:"max_tokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// BuildArgs constructs the backend CLI argument vector for one invocation.
// The result is deterministic given (model, maxTokens, temperature,
// inputFormat, outputFormat).
//
// The backend only emits per-line JSON in stream-json output mode when
// --verbose is also passed; that flag is therefore tied to the output
// format rather than to any logging preference.
func BuildArgs(model string, maxTokens int, temperature *float64, inputFormat, outputFormat string) []string {
	args := []string{
		"--print",
		"--dangerously-skip-permissions",
		"--output-format", outputFormat,
	}

	if outputFormat == OutputFormatStreamJSON {
		args = append(args, "--verbose")
	}

	if inputFormat == InputFormatStreamJSON {
		args = append(args, "--input-format", InputFormatStreamJSON)
	}

	if model != "" {
		args = append(args, "--model", model)
	}

	if maxTokens > 0 || temperature != nil {
		blob := settingsBlob{
			MaxTokens:   maxTokens,
			Temperature: temperature,
		}
		// Marshal of a plain struct cannot fail.
		data, _ := json.Marshal(blob)
		args = append(args, "--settings", string(data))
	}

	return args
}
