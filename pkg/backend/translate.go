package backend

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Backend wire types

// inputLine is one line of the backend's stream-json input protocol.
// User turns are tagged distinctly from every other role; the original
// role is preserved inside the message for round-tripping.
type inputLine struct {
	Type    string       `json:"type"`
	Message inputMessage `json:"message"`
}

// inputMessage carries the role and content of one turn.
type inputMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// resultEnvelope is the backend's terminal JSON object for a buffered
// run. The backend is loosely typed about where the answer lives, so
// every candidate field is modeled and extraction is priority-ordered.
type resultEnvelope struct {
	Type       string          `json:"type,omitempty"`
	Subtype    string          `json:"subtype,omitempty"`
	Result     *string         `json:"result,omitempty"`
	Content    json.RawMessage `json:"content,omitempty"`
	Text       *string         `json:"text,omitempty"`
	Message    *nestedMessage  `json:"message,omitempty"`
	StopReason string          `json:"stop_reason,omitempty"`
	Usage      *usagePayload   `json:"usage,omitempty"`
}

// nestedMessage is the message wrapper some backend versions emit.
type nestedMessage struct {
	Content json.RawMessage `json:"content,omitempty"`
}

// usagePayload is the backend's token accounting.
type usagePayload struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// contentBlock is one element of a typed content list. Only text-typed
// blocks contribute to extracted content.
type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Text-mode role labels. These are plain-text headers, not structured
// fields; text mode is lossy by design.
const (
	systemLabel    = "System: "
	assistantLabel = "Assistant: "
)

// BuildInput serializes a request's turns into the backend's stdin
// payload for the given input format.
//
// In text mode, system and assistant turns are prefixed with role labels
// and user turns are emitted verbatim, all joined with blank lines. In
// stream-json mode each turn becomes one JSON object per line.
//
// An empty turn sequence returns a ValidationError. The router rejects
// this earlier; the check here is a defensive invariant.
func BuildInput(req *CompletionRequest, inputFormat string) (string, error) {
	if len(req.Turns) == 0 {
		return "", &ValidationError{
			Field:   "turns",
			Message: "turn sequence must not be empty",
		}
	}

	if inputFormat == InputFormatStreamJSON {
		return buildStreamJSONInput(req.Turns)
	}
	return buildTextInput(req.Turns), nil
}

// buildTextInput concatenates turns into a single labeled text blob.
func buildTextInput(turns []Turn) string {
	parts := make([]string, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case RoleSystem:
			parts = append(parts, systemLabel+t.Content)
		case RoleAssistant:
			parts = append(parts, assistantLabel+t.Content)
		default:
			parts = append(parts, t.Content)
		}
	}
	return strings.Join(parts, "\n\n")
}

// buildStreamJSONInput emits one JSON object per turn, one per line.
func buildStreamJSONInput(turns []Turn) (string, error) {
	var b strings.Builder
	for i, t := range turns {
		kind := "system"
		if t.Role == RoleUser {
			kind = "user"
		}
		line := inputLine{
			Type:    kind,
			Message: inputMessage{Role: t.Role, Content: t.Content},
		}
		data, err := json.Marshal(line)
		if err != nil {
			return "", fmt.Errorf("marshal turn %d: %w", i, err)
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String(), nil
}

// ParseInput decodes a stream-json input payload back into turns.
// It is the reading half of the line-protocol round trip; text-mode
// payloads have no reader because the labels are not structured.
func ParseInput(payload string) ([]Turn, error) {
	var turns []Turn
	for i, raw := range strings.Split(payload, "\n") {
		if raw == "" {
			continue
		}
		var line inputLine
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return nil, fmt.Errorf("parse input line %d: %w", i, err)
		}
		turns = append(turns, Turn{Role: line.Message.Role, Content: line.Message.Content})
	}
	return turns, nil
}

// ParseResult normalizes the backend's terminal output for a buffered
// run into the canonical CompletionResponse.
//
// The output is one JSON value: usually the result envelope, but a bare
// JSON string is accepted as the content itself. Missing optional fields
// default silently (empty content, zero token counts, "stop" reason);
// absence of extractable content is not an error.
//
// created stamps the response, typically the invocation start time.
// Taking it as an argument keeps parsing a pure function of its inputs;
// the same raw output always yields the same response.
func ParseResult(raw []byte, model, requestID string, created time.Time) (*CompletionResponse, error) {
	trimmed := strings.TrimSpace(string(raw))

	// Bare string fallback.
	var s string
	if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
		return &CompletionResponse{
			ID:         requestID,
			Model:      model,
			Content:    s,
			StopReason: StopReasonStop,
			Created:    created.Unix(),
		}, nil
	}

	var env resultEnvelope
	if err := json.Unmarshal([]byte(trimmed), &env); err != nil {
		return nil, &ParseError{
			Raw:   truncateRaw(trimmed),
			Cause: err,
		}
	}

	resp := &CompletionResponse{
		ID:         requestID,
		Model:      model,
		Content:    extractContent(&env),
		StopReason: env.StopReason,
		Created:    created.Unix(),
	}
	if resp.StopReason == "" {
		resp.StopReason = StopReasonStop
	}
	if env.Usage != nil {
		resp.Usage = TokenUsage{
			PromptTokens:     env.Usage.InputTokens,
			CompletionTokens: env.Usage.OutputTokens,
			TotalTokens:      env.Usage.InputTokens + env.Usage.OutputTokens,
		}
	}
	return resp, nil
}

// extractContent resolves the envelope's answer text using a fixed
// priority order: result, then content, then text, then the nested
// message content. The order is a contract, not an implementation detail.
func extractContent(env *resultEnvelope) string {
	if env.Result != nil {
		return *env.Result
	}
	if len(env.Content) > 0 {
		if text, ok := contentText(env.Content); ok {
			return text
		}
	}
	if env.Text != nil {
		return *env.Text
	}
	if env.Message != nil && len(env.Message.Content) > 0 {
		if text, ok := contentText(env.Message.Content); ok {
			return text
		}
	}
	return ""
}

// contentText decodes a content field that is either a plain string or
// a list of typed blocks, concatenating only text-typed blocks.
func contentText(raw json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, true
	}

	var blocks []contentBlock
	if err := json.Unmarshal(raw, &blocks); err == nil {
		var b strings.Builder
		for _, blk := range blocks {
			if blk.Type == "text" {
				b.WriteString(blk.Text)
			}
		}
		return b.String(), true
	}

	return "", false
}
