package voicesession

import (
	"encoding/json"
	"testing"

	"github.com/adastralabs/vox-core/core/events"
	"github.com/adastralabs/vox-core/core/protocol"
)

type routerHarness struct {
	router    *toolRouter
	envelopes []protocol.Envelope
	events    []events.Event
}

func newRouterHarness() *routerHarness {
	h := &routerHarness{}
	h.router = newToolRouter("prompt-1",
		func(envelope protocol.Envelope) { h.envelopes = append(h.envelopes, envelope) },
		func(event events.Event) { h.events = append(h.events, event) },
	)
	return h
}

func routeToolUse(id string, target string) *protocol.ToolUse {
	return &protocol.ToolUse{
		ToolName:  protocol.RoutingToolName,
		ToolUseID: id,
		Input:     json.RawMessage(`{"agentName":"` + target + `","query":"current cpm"}`),
	}
}

func TestToolUseAnnouncementDefersResult(t *testing.T) {
	h := newRouterHarness()

	h.router.HandleToolUse(routeToolUse("tool-1", "Pricing"))

	if len(h.envelopes) != 0 {
		t.Fatalf("expected no envelopes before the tool block closes, got %d", len(h.envelopes))
	}
	if len(h.events) != 1 {
		t.Fatalf("expected one event, got %d", len(h.events))
	}
	started, ok := h.events[0].(events.ToolCallStarted)
	if !ok {
		t.Fatalf("expected ToolCallStarted, got %T", h.events[0])
	}
	if started.ID != "tool-1" || started.Name != protocol.RoutingToolName {
		t.Errorf("expected announcement for tool-1/%s, got %s/%s", protocol.RoutingToolName, started.ID, started.Name)
	}
}

func TestToolUseResolvesOnStopReason(t *testing.T) {
	testCases := []struct {
		name       string
		stopReason string
	}{
		{name: "upper snake case", stopReason: "TOOL_USE"},
		{name: "lower snake case", stopReason: "tool_use"},
		{name: "spaced", stopReason: "tool use"},
		{name: "hyphenated", stopReason: "Tool-Use"},
		{name: "compact", stopReason: "tooluse"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			h := newRouterHarness()
			h.router.HandleToolUse(routeToolUse("tool-1", "Pricing"))

			if resolved := h.router.HandleContentEnd(&protocol.ContentBoundary{StopReason: testCase.stopReason}); !resolved {
				t.Fatalf("expected stop reason %q to resolve the invocation", testCase.stopReason)
			}
			if len(h.envelopes) != 3 {
				t.Fatalf("expected result triple, got %d envelopes", len(h.envelopes))
			}
		})
	}
}

func TestToolUseResolvesOnContentIDMatch(t *testing.T) {
	h := newRouterHarness()
	h.router.NoteContentStart(&protocol.ContentBoundary{ContentID: "block-7"})
	h.router.HandleToolUse(routeToolUse("tool-1", "Creative"))

	if resolved := h.router.HandleContentEnd(&protocol.ContentBoundary{ContentID: "block-9"}); resolved {
		t.Fatal("expected a different block's close to be ignored")
	}
	if resolved := h.router.HandleContentEnd(&protocol.ContentBoundary{ContentID: "block-7"}); !resolved {
		t.Fatal("expected the recorded block's close to resolve the invocation")
	}
}

func TestToolUseIgnoresEmptyContentIDMatch(t *testing.T) {
	h := newRouterHarness()
	h.router.HandleToolUse(routeToolUse("tool-1", "Pricing"))

	if resolved := h.router.HandleContentEnd(&protocol.ContentBoundary{}); resolved {
		t.Fatal("expected an empty identifier to never match")
	}
	if len(h.envelopes) != 0 {
		t.Fatalf("expected no envelopes, got %d", len(h.envelopes))
	}
}

func TestToolUseResultTriple(t *testing.T) {
	h := newRouterHarness()
	h.router.HandleToolUse(routeToolUse("tool-42", "Pricing"))
	h.router.HandleContentEnd(&protocol.ContentBoundary{StopReason: "TOOL_USE"})

	if len(h.envelopes) != 3 {
		t.Fatalf("expected 3 envelopes, got %d", len(h.envelopes))
	}

	start := h.envelopes[0].Event.ContentStart
	if start == nil {
		t.Fatal("expected first envelope to be a contentStart")
	}
	if start.ToolResultInputConfiguration == nil || start.ToolResultInputConfiguration.ToolUseID != "tool-42" {
		t.Fatalf("expected tool result block to answer tool-42, got %+v", start.ToolResultInputConfiguration)
	}

	text := h.envelopes[1].Event.TextInput
	if text == nil {
		t.Fatal("expected second envelope to be a textInput")
	}
	var payload struct {
		Status    string `json:"status"`
		AgentName string `json:"agentName"`
	}
	if err := json.Unmarshal([]byte(text.Content), &payload); err != nil {
		t.Fatalf("expected result payload to be JSON, got %q", text.Content)
	}
	if payload.Status != "routed" || payload.AgentName != "Pricing" {
		t.Errorf("expected routed/Pricing payload, got %+v", payload)
	}

	end := h.envelopes[2].Event.ContentEnd
	if end == nil {
		t.Fatal("expected third envelope to be a contentEnd")
	}
	if start.ContentName == "" || start.ContentName != text.ContentName || text.ContentName != end.ContentName {
		t.Errorf("expected the triple to share one content name, got %q/%q/%q",
			start.ContentName, text.ContentName, end.ContentName)
	}

	completed, ok := h.events[len(h.events)-1].(events.ToolCallCompleted)
	if !ok {
		t.Fatalf("expected ToolCallCompleted, got %T", h.events[len(h.events)-1])
	}
	if completed.Target != "Pricing" {
		t.Errorf("expected completion to name the target, got %q", completed.Target)
	}
}

func TestToolUseWithUnusableParametersStillAnswers(t *testing.T) {
	h := newRouterHarness()
	h.router.HandleToolUse(&protocol.ToolUse{
		ToolName:  protocol.RoutingToolName,
		ToolUseID: "tool-1",
		Input:     json.RawMessage(`"not an object"`),
	})
	h.router.HandleContentEnd(&protocol.ContentBoundary{StopReason: "tool_use"})

	if len(h.envelopes) != 3 {
		t.Fatalf("expected the block to be answered despite bad parameters, got %d envelopes", len(h.envelopes))
	}
	var payload struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal([]byte(h.envelopes[1].Event.TextInput.Content), &payload); err != nil {
		t.Fatalf("expected error payload to be JSON: %v", err)
	}
	if payload.Status != "error" || payload.Message == "" {
		t.Errorf("expected error payload with message, got %+v", payload)
	}

	failed, ok := h.events[len(h.events)-1].(events.ToolCallFailed)
	if !ok {
		t.Fatalf("expected ToolCallFailed, got %T", h.events[len(h.events)-1])
	}
	if failed.ID != "tool-1" || failed.Error == "" {
		t.Errorf("expected failure for tool-1 with a reason, got %+v", failed)
	}
}

func TestToolUseOverwriteKeepsLatest(t *testing.T) {
	h := newRouterHarness()
	h.router.HandleToolUse(routeToolUse("tool-1", "Pricing"))
	h.router.HandleToolUse(routeToolUse("tool-2", "Creative"))
	h.router.HandleContentEnd(&protocol.ContentBoundary{StopReason: "TOOL_USE"})

	if len(h.envelopes) != 3 {
		t.Fatalf("expected one result triple, got %d envelopes", len(h.envelopes))
	}
	if id := h.envelopes[0].Event.ContentStart.ToolResultInputConfiguration.ToolUseID; id != "tool-2" {
		t.Fatalf("expected the latest invocation to win, got result for %q", id)
	}
}

func TestToolUseResolvesOnlyOnce(t *testing.T) {
	h := newRouterHarness()
	h.router.HandleToolUse(routeToolUse("tool-1", "Pricing"))
	h.router.HandleContentEnd(&protocol.ContentBoundary{StopReason: "TOOL_USE"})

	if resolved := h.router.HandleContentEnd(&protocol.ContentBoundary{StopReason: "TOOL_USE"}); resolved {
		t.Fatal("expected a resolved invocation to not resolve again")
	}
	if len(h.envelopes) != 3 {
		t.Fatalf("expected exactly one result triple, got %d envelopes", len(h.envelopes))
	}
}
