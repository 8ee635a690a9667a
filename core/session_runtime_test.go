package voicesession

import (
	"context"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/adastralabs/vox-core/core/events"
	"github.com/adastralabs/vox-core/core/gateway"
)

func TestInactivityTimeoutDrainsSession(t *testing.T) {
	conn := newScriptedConnection()
	device := &scriptedCaptureDevice{}
	e, err := New(
		WithDialer(dialerFor(conn)),
		WithAudioCapture(device),
		WithInactivityTimeout(60*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("expected engine to build, got %v", err)
	}
	defer e.Close()
	recorder := recordEvents(e)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	if !waitUntil(t, 2*time.Second, func() bool { return e.State() == StateClosed }) {
		t.Fatalf("expected the idle session to close itself, state is %q", e.State())
	}

	if count := recorder.countKind(events.KindInactivityTimeout); count != 1 {
		t.Fatalf("expected exactly one inactivity timeout event, got %d", count)
	}
	kinds := conn.sentKinds()
	if len(kinds) == 0 || kinds[len(kinds)-1] != "sessionEnd" {
		t.Fatalf("expected the timeout to flush the closing events, got %v", kinds)
	}
	if device.releases.Load() != 1 {
		t.Errorf("expected exactly one device release, got %d", device.releases.Load())
	}
	if recorder.countKind(events.KindSessionError) != 0 {
		t.Error("expected a timeout to close without errors")
	}
}

func TestKeepAliveDefersInactivityTimeout(t *testing.T) {
	conn := newScriptedConnection()
	e, err := New(
		WithDialer(dialerFor(conn)),
		WithAudioCapture(&scriptedCaptureDevice{}),
		WithInactivityTimeout(200*time.Millisecond),
	)
	if err != nil {
		t.Fatalf("expected engine to build, got %v", err)
	}
	defer e.Close()
	recorder := recordEvents(e)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	for i := 0; i < 4; i++ {
		time.Sleep(80 * time.Millisecond)
		e.KeepAlive()
	}

	if !e.IsActive() {
		t.Fatal("expected keep-alives to hold the session open past the idle window")
	}
	if count := recorder.countKind(events.KindInactivityTimeout); count != 0 {
		t.Fatalf("expected no timeout while keep-alives arrive, got %d", count)
	}

	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
}

func TestCapturedFramesDeferInactivityTimeout(t *testing.T) {
	conn := newScriptedConnection()
	device := &scriptedCaptureDevice{}
	e, err := New(
		WithDialer(dialerFor(conn)),
		WithAudioCapture(device),
		WithInactivityTimeout(200*time.Millisecond),
		WithFrameSize(2),
	)
	if err != nil {
		t.Fatalf("expected engine to build, got %v", err)
	}
	defer e.Close()

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	for i := 0; i < 4; i++ {
		time.Sleep(80 * time.Millisecond)
		device.push([]float32{0.1, 0.2})
	}

	if !e.IsActive() {
		t.Fatal("expected captured frames to hold the session open past the idle window")
	}

	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("expected stop to succeed, got %v", err)
	}
}

func TestToolUseRoundTripOverTheWire(t *testing.T) {
	conn := newScriptedConnection()
	e, err := New(WithDialer(dialerFor(conn)), WithAudioCapture(&scriptedCaptureDevice{}))
	if err != nil {
		t.Fatalf("expected engine to build, got %v", err)
	}
	defer e.Close()
	recorder := recordEvents(e)

	if err := e.Start(context.Background(), WithRouteTargets(demoTargets()...)); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	conn.deliver(`{"event":{"toolUse":{"toolName":"routeToAgent","toolUseId":"tool-9","content":"{\"agentName\":\"Pricing\",\"query\":\"average cpm this week\"}"}}}`)
	conn.deliver(`{"event":{"contentEnd":{"contentName":"block-1","stopReason":"TOOL_USE"}}}`)

	var resultIndex int
	if !waitUntil(t, 2*time.Second, func() bool {
		for i, envelope := range conn.sentEnvelopes() {
			if start := envelope.Event.ContentStart; start != nil &&
				start.ToolResultInputConfiguration != nil &&
				start.ToolResultInputConfiguration.ToolUseID == "tool-9" {
				resultIndex = i
				return true
			}
		}
		return false
	}) {
		t.Fatal("expected a tool result block answering tool-9")
	}

	envelopes := conn.sentEnvelopes()
	if len(envelopes) < resultIndex+3 {
		t.Fatalf("expected the full result triple on the wire, got %v", conn.sentKinds())
	}
	text := envelopes[resultIndex+1].Event.TextInput
	if text == nil || text.Content != `{"status":"routed","agentName":"Pricing"}` {
		t.Fatalf("expected the routed status payload, got %+v", text)
	}
	if envelopes[resultIndex+2].Event.ContentEnd == nil {
		t.Fatal("expected the result block to be closed")
	}

	if !waitUntil(t, 2*time.Second, func() bool { return recorder.countKind(events.KindToolCallCompleted) == 1 }) {
		t.Fatal("expected a tool call completed event")
	}
	completed := recorder.firstOfKind(events.KindToolCallCompleted).(events.ToolCallCompleted)
	if completed.ID != "tool-9" || completed.Target != "Pricing" {
		t.Errorf("expected completion for tool-9 routed to Pricing, got %+v", completed)
	}
	if recorder.countKind(events.KindToolCallStarted) != 1 {
		t.Error("expected the invocation to be announced")
	}
}

func TestToolUseResolvedByMatchingContentBlock(t *testing.T) {
	conn := newScriptedConnection()
	e, err := New(WithDialer(dialerFor(conn)), WithAudioCapture(&scriptedCaptureDevice{}))
	if err != nil {
		t.Fatalf("expected engine to build, got %v", err)
	}
	defer e.Close()

	if err := e.Start(context.Background(), WithRouteTargets(demoTargets()...)); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	conn.deliver(`{"event":{"contentStart":{"contentName":"block-3","type":"TOOL"}}}`)
	conn.deliver(`{"event":{"toolUse":{"toolName":"routeToAgent","toolUseId":"tool-3","input":{"agentName":"Creative","query":"banner copy"}}}}`)
	conn.deliver(`{"event":{"contentEnd":{"contentName":"block-3"}}}`)

	if !waitUntil(t, 2*time.Second, func() bool {
		for _, envelope := range conn.sentEnvelopes() {
			if start := envelope.Event.ContentStart; start != nil &&
				start.ToolResultInputConfiguration != nil &&
				start.ToolResultInputConfiguration.ToolUseID == "tool-3" {
				return true
			}
		}
		return false
	}) {
		t.Fatal("expected the matching block close to resolve the invocation")
	}
}

func TestInboundEventsSurfaceToObservers(t *testing.T) {
	conn := newScriptedConnection()
	e, err := New(WithDialer(dialerFor(conn)), WithAudioCapture(&scriptedCaptureDevice{}))
	if err != nil {
		t.Fatalf("expected engine to build, got %v", err)
	}
	defer e.Close()
	recorder := recordEvents(e)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	speech := base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03, 0x04})
	conn.deliver(`{"event":{"textOutput":{"content":"Hello there","role":"ASSISTANT"}}}`)
	conn.deliver(fmt.Sprintf(`{"event":{"audioOutput":{"content":"%s"}}}`, speech))
	conn.deliver(`{"event":{"completionEnd":{}}}`)
	conn.deliver(`{"event":{"validationException":{"message":"prompt too long"}}}`)
	conn.deliver(`not even json`)

	if !waitUntil(t, 2*time.Second, func() bool {
		return recorder.countKind(events.KindTranscriptSegment) == 1 &&
			recorder.countKind(events.KindAssistantSpeechFrame) == 1 &&
			recorder.countKind(events.KindTurnCompleted) == 1 &&
			recorder.countKind(events.KindSessionError) == 1
	}) {
		t.Fatalf("expected transcript, speech, turn, and error events, got %v", recorder.snapshot())
	}

	transcript := recorder.firstOfKind(events.KindTranscriptSegment).(events.TranscriptSegment)
	if transcript.Role != "ASSISTANT" || transcript.Text != "Hello there" {
		t.Errorf("expected the assistant transcript segment, got %+v", transcript)
	}

	frame := recorder.firstOfKind(events.KindAssistantSpeechFrame).(events.AssistantSpeechFrame)
	if len(frame.Audio) != 4 || frame.Audio[0] != 0x01 {
		t.Errorf("expected the decoded speech frame, got %v", frame.Audio)
	}

	sessionErr := recorder.firstOfKind(events.KindSessionError).(events.SessionError)
	if sessionErr.Code != "validationException" || sessionErr.Fatal {
		t.Errorf("expected a non-fatal validation exception, got %+v", sessionErr)
	}

	if !e.IsActive() {
		t.Error("expected the session to survive a protocol exception")
	}
}

func TestTransportFailureMapsAuthorizationExpiry(t *testing.T) {
	conn := newScriptedConnection()
	device := &scriptedCaptureDevice{}
	e, err := New(WithDialer(dialerFor(conn)), WithAudioCapture(device))
	if err != nil {
		t.Fatalf("expected engine to build, got %v", err)
	}
	defer e.Close()
	recorder := recordEvents(e)

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}

	conn.failReceive(fmt.Errorf("gateway closed the stream: %w", gateway.ErrAuthorizationExpired))

	if !waitUntil(t, 2*time.Second, func() bool { return e.State() == StateErrored }) {
		t.Fatalf("expected state errored, got %q", e.State())
	}
	if !waitUntil(t, 2*time.Second, func() bool { return recorder.countKind(events.KindSessionError) == 1 }) {
		t.Fatal("expected a fatal session error event")
	}

	sessionErr := recorder.firstOfKind(events.KindSessionError).(events.SessionError)
	if sessionErr.Code != "authorizationExpired" || !sessionErr.Fatal {
		t.Errorf("expected a fatal authorization expiry, got %+v", sessionErr)
	}
	if device.releases.Load() != 1 {
		t.Errorf("expected the device to be released despite the failure, got %d", device.releases.Load())
	}
	if recorder.countKind(events.KindSessionEnded) != 1 {
		t.Error("expected the session ended marker after the failure")
	}
}

func TestStopDuringFailureStillCloses(t *testing.T) {
	conn := newScriptedConnection()
	e, err := New(WithDialer(dialerFor(conn)), WithAudioCapture(&scriptedCaptureDevice{}))
	if err != nil {
		t.Fatalf("expected engine to build, got %v", err)
	}
	defer e.Close()

	if err := e.Start(context.Background()); err != nil {
		t.Fatalf("expected start to succeed, got %v", err)
	}
	if !waitUntil(t, 2*time.Second, func() bool { return len(conn.sentKinds()) >= 6 }) {
		t.Fatalf("expected the preamble to flush, got %v", conn.sentKinds())
	}

	// The drain begins, then the transport dies before the closing events
	// flush. The session must still end in closed, reporting the failure.
	conn.failSends(fmt.Errorf("write on closed connection"))
	if err := e.Stop(context.Background()); err != nil {
		t.Fatalf("expected stop to return once cleanup finished, got %v", err)
	}

	if e.State() != StateClosed {
		t.Fatalf("expected a failed drain to still end closed, got %q", e.State())
	}
}
