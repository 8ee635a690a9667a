package voicesession

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jinzhu/copier"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/adastralabs/vox-core/core/audio"
	"github.com/adastralabs/vox-core/core/events"
	"github.com/adastralabs/vox-core/core/gateway"
	"github.com/adastralabs/vox-core/core/protocol"
)

var (
	// ErrSessionActive reports a start attempt while a session is live.
	ErrSessionActive = errors.New("a voice session is already active")
	// ErrEngineClosed reports use of an engine after Close.
	ErrEngineClosed = errors.New("engine is closed")
	// ErrNoDialer reports an engine built without a gateway dialer.
	ErrNoDialer = errors.New("no gateway dialer configured")
	// ErrNoAudioCapture reports an engine built without a capture client.
	ErrNoAudioCapture = errors.New("no audio capture client configured")
)

// engineCloseTimeout bounds how long Close waits for an active session's
// drain to flush before forcing cleanup.
const engineCloseTimeout = 5 * time.Second

// Engine is the voice session facade. It owns at most one live session at a
// time and fans that session's events out to the subscriber stream. Engines
// are reusable: once a session reaches a terminal state a new one can start.
type Engine struct {
	dialer gateway.Dialer
	device AudioCapture

	voice             string
	inference         protocol.InferenceConfiguration
	frameSize         int
	inactivityTimeout time.Duration
	eventBuffer       int

	stream *eventStream
	emit   eventEmitter

	mu      sync.Mutex
	session *session
	closed  bool

	closeOnce sync.Once
	closeErr  error
}

// New builds an engine. A gateway dialer and an audio capture client are
// required; everything else has working defaults.
func New(opts ...Option) (*Engine, error) {
	e := &Engine{
		voice:             protocol.DefaultVoice,
		inference:         protocol.DefaultInferenceConfiguration(),
		frameSize:         audio.DefaultFrameSize,
		inactivityTimeout: DefaultInactivityTimeout,
		eventBuffer:       defaultEventBuffer,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.dialer == nil {
		return nil, ErrNoDialer
	}
	if e.device == nil {
		return nil, ErrNoAudioCapture
	}
	if enc := e.device.EncodingInfo(); enc.SampleRate != audio.InputSampleRate || enc.Format != audio.EncodingFloat32 {
		return nil, fmt.Errorf("capture device must deliver %s at %d Hz, got %s at %d Hz",
			audio.EncodingFloat32.Name(), audio.InputSampleRate, enc.Format.Name(), enc.SampleRate)
	}

	e.stream = newEventStream(e.eventBuffer)
	e.emit = e.stream.Emitter()
	return e, nil
}

// Events is the engine's observer stream. It completes when the engine
// closes; a reader that falls behind loses events instead of stalling the
// session.
func (e *Engine) Events() <-chan events.Event {
	return e.stream.Events()
}

// IsActive reports whether a session is live (starting, active, or draining).
func (e *Engine) IsActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session != nil && !e.session.isDone()
}

// State reports the lifecycle state of the current or most recent session.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return StateIdle
	}
	return e.session.State()
}

// KeepAlive extends the inactivity deadline without sending audio.
func (e *Engine) KeepAlive() {
	e.mu.Lock()
	s := e.session
	e.mu.Unlock()

	if s != nil {
		s.keepAlive()
	}
}

// Start brings up a new voice session: it checks the gateway and the capture
// device, dials, enqueues the protocol preamble, and begins streaming
// microphone frames. ctx governs setup only; the session itself lives until
// Stop, Close, the inactivity deadline, or a transport failure ends it.
func (e *Engine) Start(ctx context.Context, opts ...SessionOption) error {
	ctx, span := tracer.Start(ctx, "start voice session")
	defer span.End()

	options := sessionOptions{systemPrompt: DefaultSystemPrompt}
	for _, opt := range opts {
		opt(&options)
	}

	if err := e.start(ctx, options); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

func (e *Engine) start(ctx context.Context, options sessionOptions) error {
	var wireTargets []protocol.RouteTarget
	if options.targets != nil {
		copier.Copy(&wireTargets, options.targets)
	}
	tools, err := protocol.NewToolUseConfiguration(wireTargets)
	if err != nil {
		return fmt.Errorf("failed to build routing tool: %w", err)
	}

	s := newSession(e.emit, e.device, e.frameSize, e.inactivityTimeout)

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.session != nil && !e.session.isDone() {
		e.mu.Unlock()
		return ErrSessionActive
	}
	previous := e.session
	e.session = s
	e.mu.Unlock()

	// Readiness and device failures surface before any session state
	// exists, so they roll the slot back instead of recording a failure.
	restore := func() {
		e.mu.Lock()
		if e.session == s {
			e.session = previous
		}
		e.mu.Unlock()
	}

	if err := e.dialer.EnsureReady(ctx); err != nil {
		restore()
		return fmt.Errorf("gateway is not ready: %w", err)
	}
	if err := s.capture.Open(ctx); err != nil {
		restore()
		return err
	}

	if !s.transition(StateStarting) {
		s.finalize(nil)
		return nil
	}

	conn, err := e.dialer.Dial(ctx)
	if err != nil {
		err = fmt.Errorf("failed to dial gateway: %w", err)
		s.finalize(err)
		return err
	}
	s.conn = conn

	s.queue.Enqueue(protocol.NewSessionStart(e.inference))
	s.queue.Enqueue(protocol.NewPromptStart(s.promptName, e.voice, tools))
	s.queue.Enqueue(protocol.NewSystemContentStart(s.promptName, s.systemContentName))
	s.queue.Enqueue(protocol.NewTextInput(s.promptName, s.systemContentName, options.systemPrompt))
	s.queue.Enqueue(protocol.NewContentEnd(s.promptName, s.systemContentName))
	s.queue.Enqueue(protocol.NewAudioContentStart(s.promptName, s.audioContentName))

	pumpCtx, cancel := context.WithCancel(context.Background())
	s.cancelPumps = cancel
	go s.sendPump(pumpCtx)
	go s.readLoop(pumpCtx)

	if !s.transition(StateActive) {
		// A stop raced the setup; the pumps will flush the drain events
		// and close the session.
		return nil
	}
	if err := s.capture.Start(pumpCtx); err != nil {
		s.finalize(err)
		return err
	}
	s.armTimer()

	span := trace.SpanFromContext(ctx)
	span.SetAttributes(
		attribute.String("session.prompt_name", s.promptName),
		attribute.Int("session.route_targets", len(options.targets)),
	)

	logger.Info("Voice session started",
		"prompt_name", s.promptName,
		"voice", e.voice,
		"route_targets", len(options.targets),
	)
	return nil
}

// Stop drains the active session: capture halts, the closing events flush in
// order, and the connection shuts down. It blocks until cleanup finishes or
// ctx ends. Stopping an engine with no live session is a no-op.
func (e *Engine) Stop(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "stop voice session")
	defer span.End()

	e.mu.Lock()
	s := e.session
	e.mu.Unlock()

	if s == nil || s.isDone() {
		return nil
	}

	if err := s.stop(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("failed to stop session: %w", err)
	}
	return nil
}

// Close stops any live session and completes the event stream. The engine is
// not reusable afterwards.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		s := e.session
		e.mu.Unlock()

		if s != nil && !s.isDone() {
			ctx, cancel := context.WithTimeout(context.Background(), engineCloseTimeout)
			defer cancel()
			if err := s.stop(ctx); err != nil {
				e.closeErr = fmt.Errorf("failed to stop session during close: %w", err)
				s.finalize(e.closeErr)
			}
		}
		e.stream.Complete()
	})
	return e.closeErr
}
