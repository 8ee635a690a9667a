package protocol

import (
	"encoding/json"
	"fmt"
)

// InboundKind classifies a parsed inbound payload.
type InboundKind string

const (
	// InboundIgnorable marks payloads to drop without reaction: non-JSON
	// bytes, unknown event keys, malformed bodies of known kinds.
	InboundIgnorable     InboundKind = "ignorable"
	InboundTextOutput    InboundKind = "textOutput"
	InboundAudioOutput   InboundKind = "audioOutput"
	InboundToolUse       InboundKind = "toolUse"
	InboundContentStart  InboundKind = "contentStart"
	InboundContentEnd    InboundKind = "contentEnd"
	InboundCompletionEnd InboundKind = "completionEnd"
	InboundException     InboundKind = "exception"
)

// Named protocol exceptions the gateway may raise.
const (
	ExceptionInternalServer = "internalServerException"
	ExceptionModelStream    = "modelStreamErrorException"
	ExceptionValidation     = "validationException"
	ExceptionThrottling     = "throttlingException"
	ExceptionModelTimeout   = "modelTimeoutException"
)

// Inbound is one classified inbound event; the field matching Kind is set.
type Inbound struct {
	Kind InboundKind

	TextOutput    *TextOutput
	AudioOutput   *AudioOutput
	ToolUse       *ToolUse
	ContentStart  *ContentBoundary
	ContentEnd    *ContentBoundary
	CompletionEnd *CompletionEnd
	Exception     *ProtocolException
}

// TextOutput is streamed transcript or response text.
type TextOutput struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// AudioOutput carries one base64-encoded assistant speech chunk.
type AudioOutput struct {
	Content string `json:"content"`
}

// ToolUse is a model-issued tool invocation. Exactly which of Content,
// Input, or Parameters carries the arguments varies; use Arguments to
// normalize.
type ToolUse struct {
	ToolName   string          `json:"toolName"`
	ToolUseID  string          `json:"toolUseId"`
	Content    json.RawMessage `json:"content"`
	Input      json.RawMessage `json:"input"`
	Parameters json.RawMessage `json:"parameters"`
}

// RouteArguments are the normalized routing-tool parameters.
type RouteArguments struct {
	AgentName string `json:"agentName"`
	Query     string `json:"query"`
}

// Arguments normalizes the free-form tool parameters: a string content field
// is treated as embedded JSON; otherwise input or parameters is used
// directly.
func (t *ToolUse) Arguments() (RouteArguments, error) {
	var args RouteArguments

	raw := t.argumentsPayload()
	if len(raw) == 0 {
		return args, fmt.Errorf("tool use %q carries no parameters", t.ToolUseID)
	}
	if err := json.Unmarshal(raw, &args); err != nil {
		return args, fmt.Errorf("failed to decode tool use parameters: %w", err)
	}
	return args, nil
}

// RawArguments returns the parameter payload as received, for observers.
func (t *ToolUse) RawArguments() string {
	return string(t.argumentsPayload())
}

func (t *ToolUse) argumentsPayload() json.RawMessage {
	if len(t.Content) > 0 {
		var embedded string
		if err := json.Unmarshal(t.Content, &embedded); err == nil {
			return json.RawMessage(embedded)
		}
	}
	if len(t.Input) > 0 {
		return t.Input
	}
	if len(t.Parameters) > 0 {
		return t.Parameters
	}
	return nil
}

// ContentBoundary is an inbound content-start or content-end. The remote
// side names the block with either contentName or contentId; ContentID holds
// whichever was present.
type ContentBoundary struct {
	Type       string
	ContentID  string
	StopReason string
}

func (b *ContentBoundary) UnmarshalJSON(data []byte) error {
	var raw struct {
		Type        string `json:"type"`
		ContentName string `json:"contentName"`
		ContentID   string `json:"contentId"`
		StopReason  string `json:"stopReason"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	b.Type = raw.Type
	b.ContentID = raw.ContentName
	if b.ContentID == "" {
		b.ContentID = raw.ContentID
	}
	b.StopReason = raw.StopReason
	return nil
}

// CompletionEnd marks the remote side finishing the exchange.
type CompletionEnd struct{}

// ProtocolException is a named remote exception. Exceptions are reported to
// observers; they do not terminate the session by themselves.
type ProtocolException struct {
	Name    string `json:"-"`
	Message string `json:"message"`
}

func (e *ProtocolException) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// ParseInbound decodes and classifies one inbound transport frame. Non-JSON
// payloads, unknown kinds, and malformed bodies of known kinds classify as
// ignorable instead of failing; only a malformed payload under a recognized
// exception key yields an error, so the caller can report what the gateway
// tried to say.
func ParseInbound(raw []byte) (Inbound, error) {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(raw, &outer); err != nil {
		return Inbound{Kind: InboundIgnorable}, nil
	}

	body := outer
	if event, ok := outer["event"]; ok {
		if err := json.Unmarshal(event, &body); err != nil {
			return Inbound{Kind: InboundIgnorable}, nil
		}
	}

	for name, payload := range body {
		switch name {
		case "textOutput":
			out := &TextOutput{}
			if err := json.Unmarshal(payload, out); err != nil {
				return Inbound{Kind: InboundIgnorable}, nil
			}
			return Inbound{Kind: InboundTextOutput, TextOutput: out}, nil

		case "audioOutput":
			out := &AudioOutput{}
			if err := json.Unmarshal(payload, out); err != nil {
				return Inbound{Kind: InboundIgnorable}, nil
			}
			return Inbound{Kind: InboundAudioOutput, AudioOutput: out}, nil

		case "toolUse":
			out := &ToolUse{}
			if err := json.Unmarshal(payload, out); err != nil {
				return Inbound{Kind: InboundIgnorable}, nil
			}
			return Inbound{Kind: InboundToolUse, ToolUse: out}, nil

		case "contentStart":
			out := &ContentBoundary{}
			if err := json.Unmarshal(payload, out); err != nil {
				return Inbound{Kind: InboundIgnorable}, nil
			}
			return Inbound{Kind: InboundContentStart, ContentStart: out}, nil

		case "contentEnd":
			out := &ContentBoundary{}
			if err := json.Unmarshal(payload, out); err != nil {
				return Inbound{Kind: InboundIgnorable}, nil
			}
			return Inbound{Kind: InboundContentEnd, ContentEnd: out}, nil

		case "completionEnd":
			return Inbound{Kind: InboundCompletionEnd, CompletionEnd: &CompletionEnd{}}, nil

		case ExceptionInternalServer, ExceptionModelStream, ExceptionValidation,
			ExceptionThrottling, ExceptionModelTimeout:
			exception := &ProtocolException{Name: name}
			if err := json.Unmarshal(payload, exception); err != nil {
				return Inbound{}, fmt.Errorf("failed to decode %s payload: %w", name, err)
			}
			return Inbound{Kind: InboundException, Exception: exception}, nil
		}
	}

	return Inbound{Kind: InboundIgnorable}, nil
}
