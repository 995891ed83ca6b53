package backend

import "encoding/json"

// EventKind tags one decoded line of the backend's stream-json output.
type EventKind int

const (
	// EventAssistant is an assistant message carrying content deltas.
	EventAssistant EventKind = iota

	// EventSystem is a system or control event (init, tool traffic).
	// Observed for diagnostics, never forwarded downstream.
	EventSystem

	// EventOther is a recognized JSON line of some other type.
	EventOther

	// EventUnrecognized is a line that failed to parse as JSON.
	EventUnrecognized
)

// Event is one decoded line of backend output. Events are transient;
// they exist only while the stream is being translated.
type Event struct {
	// Kind tags the variant.
	Kind EventKind

	// Content is the concatenation of the event's text-typed content
	// blocks (assistant events only).
	Content string

	// StopReason mirrors the backend's stop reason when present.
	StopReason string

	// Subtype is the control event subtype (system events only).
	Subtype string

	// Raw is the original line, kept for diagnostics on
	// unrecognized events.
	Raw string
}

// outputLine is the wire shape of one stream-json output line.
type outputLine struct {
	Type    string        `json:"type"`
	Subtype string        `json:"subtype,omitempty"`
	Message *eventMessage `json:"message,omitempty"`
}

// eventMessage is the message payload of an assistant event.
type eventMessage struct {
	Content    json.RawMessage `json:"content,omitempty"`
	StopReason string          `json:"stop_reason,omitempty"`
}

// ParseEvent decodes one complete output line. Lines that are not valid
// JSON yield an unrecognized event rather than an error; a malformed
// line never aborts the stream.
func ParseEvent(line []byte) Event {
	var out outputLine
	if err := json.Unmarshal(line, &out); err != nil {
		return Event{Kind: EventUnrecognized, Raw: string(line)}
	}

	switch out.Type {
	case "assistant":
		ev := Event{Kind: EventAssistant}
		if out.Message != nil {
			if text, ok := contentText(out.Message.Content); ok {
				ev.Content = text
			}
			ev.StopReason = out.Message.StopReason
		}
		return ev
	case "system", "control":
		return Event{Kind: EventSystem, Subtype: out.Subtype}
	default:
		return Event{Kind: EventOther, Raw: string(line)}
	}
}
