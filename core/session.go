package voicesession

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/adastralabs/vox-core/core/audio"
	"github.com/adastralabs/vox-core/core/events"
	"github.com/adastralabs/vox-core/core/gateway"
	"github.com/adastralabs/vox-core/core/protocol"
)

// session owns one voice interaction end to end: the outbound queue, the
// gateway connection, the capture pipeline, the tool router, the inactivity
// deadline, and the lifecycle state. The engine builds it, wires it to its
// pumps, and lets it run until done closes.
type session struct {
	promptName        string
	systemContentName string
	audioContentName  string

	queue   *eventQueue
	router  *toolRouter
	capture *capturePipeline
	conn    gateway.Connection
	emit    eventEmitter

	inactivityWindow time.Duration

	mu           sync.Mutex
	state        State
	timer        *time.Timer
	lastActivity time.Time

	drainOnce    sync.Once
	finalizeOnce sync.Once
	cancelPumps  context.CancelFunc
	done         chan struct{}
}

func newSession(emit eventEmitter, device AudioCapture, frameSize int, inactivityWindow time.Duration) *session {
	if emit == nil {
		emit = noopEventEmitter
	}

	s := &session{
		promptName:        uuid.NewString(),
		systemContentName: uuid.NewString(),
		audioContentName:  uuid.NewString(),
		queue:             newEventQueue(),
		emit:              emit,
		inactivityWindow:  inactivityWindow,
		state:             StateIdle,
		done:              make(chan struct{}),
	}
	s.router = newToolRouter(s.promptName, s.queue.Enqueue, emit)
	s.capture = newCapturePipeline(device, frameSize, s.onFrame)
	return s
}

func (s *session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *session) isDone() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

// transition moves the lifecycle forward and reports whether it applied.
// Terminal states are owned by finalize; a draining session only leaves
// through it.
func (s *session) transition(to State) bool {
	s.mu.Lock()
	from := s.state
	if from.terminal() || from == to || from == StateDraining {
		s.mu.Unlock()
		return false
	}
	s.state = to
	s.mu.Unlock()

	logger.Debug("Session state changed", "from", from, "to", to)
	s.emit(events.NewStateChanged(string(from), string(to)))
	return true
}

func (s *session) armTimer() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	s.timer = time.AfterFunc(s.inactivityWindow, s.onInactivityDeadline)
}

// extendDeadline pushes the inactivity deadline out. Every captured frame
// and every explicit keep-alive lands here.
func (s *session) extendDeadline() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	timer := s.timer
	s.mu.Unlock()

	if timer != nil {
		timer.Reset(s.inactivityWindow)
	}
}

func (s *session) stopTimer() {
	s.mu.Lock()
	timer := s.timer
	s.timer = nil
	s.mu.Unlock()

	if timer != nil {
		timer.Stop()
	}
}

func (s *session) onInactivityDeadline() {
	if s.State() != StateActive {
		return
	}

	s.mu.Lock()
	idle := time.Since(s.lastActivity)
	s.mu.Unlock()

	logger.Info("Session idle past deadline, draining", "idle", idle)
	s.emit(events.NewInactivityTimeout(idle))
	s.drain()
}

func (s *session) keepAlive() {
	if s.State() != StateActive {
		return
	}
	s.extendDeadline()
}

// onFrame runs on the device callback goroutine for every assembled capture
// frame: quantize, enqueue for the wire, surface to observers, and extend
// the inactivity deadline.
func (s *session) onFrame(frame []float32) {
	if s.State() != StateActive {
		return
	}

	pcm := audio.QuantizePCM(frame)
	s.queue.Enqueue(protocol.NewAudioInput(s.promptName, s.audioContentName, base64.StdEncoding.EncodeToString(pcm)))
	s.emit(events.NewUserAudioFrame(pcm))
	s.extendDeadline()
}

// drain is the single shutdown path: stop producing audio first, then close
// the audio block, the prompt, and the session in order, and finish the
// outbound stream. Stop requests, the inactivity deadline, and engine close
// all converge here; only the first caller does the work.
func (s *session) drain() {
	s.drainOnce.Do(func() {
		if !s.transition(StateDraining) {
			return
		}
		s.stopTimer()
		if err := s.capture.Stop(); err != nil {
			logger.Warn("Failed to stop audio capture", "error", err)
		}

		s.queue.Enqueue(protocol.NewContentEnd(s.promptName, s.audioContentName))
		s.queue.Enqueue(protocol.NewPromptEnd(s.promptName))
		s.queue.Enqueue(protocol.NewSessionEnd())
		s.queue.Finish()
	})
}

// stop drains the session and waits for cleanup to finish.
func (s *session) stop(ctx context.Context) error {
	s.drain()
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sendPump pulls outbound envelopes in enqueue order and writes them to the
// gateway. It finalizes the session when the stream drains or the transport
// fails.
func (s *session) sendPump(ctx context.Context) {
	err := panicSafeNamedWorker("send pump", func(ctx context.Context) error {
		for {
			envelope, err := s.queue.Next(ctx)
			if errors.Is(err, io.EOF) {
				return nil
			}
			if err != nil {
				return err
			}
			if err := s.conn.Send(ctx, envelope); err != nil {
				return fmt.Errorf("failed to send %s: %w", envelope.Kind(), err)
			}
		}
	})(ctx)
	s.finalize(err)
}

// readLoop delivers inbound transport frames until the connection completes.
func (s *session) readLoop(ctx context.Context) {
	err := panicSafeNamedWorker("read loop", func(ctx context.Context) error {
		return s.conn.Receive(ctx, s.handleInbound)
	})(ctx)
	s.finalize(err)
}

// finalize runs the one-time cleanup shared by every termination path. A nil
// cause is an orderly completion; anything else is reported as a fatal
// session error. A failure lands in the errored state only when it cut a
// starting or active session short; failures during a deliberate drain still
// close.
func (s *session) finalize(cause error) {
	s.finalizeOnce.Do(func() {
		s.stopTimer()
		if err := s.capture.Stop(); err != nil {
			logger.Warn("Failed to stop audio capture", "error", err)
		}
		s.queue.Finish()
		if s.conn != nil {
			if err := s.conn.Close(); err != nil {
				logger.Debug("Failed to close gateway connection", "error", err)
			}
		}
		if err := s.capture.Release(); err != nil {
			logger.Warn("Failed to release audio capture device", "error", err)
		}
		if s.cancelPumps != nil {
			s.cancelPumps()
		}

		s.mu.Lock()
		from := s.state
		final := StateClosed
		if cause != nil && from != StateDraining {
			final = StateErrored
		}
		s.state = final
		s.mu.Unlock()

		if cause != nil {
			logger.Error("Session ended abnormally", "error", cause, "state", final)
			code, message := classifySessionFailure(cause)
			s.emit(events.NewSessionError(code, message, true))
		}
		if from != final {
			s.emit(events.NewStateChanged(string(from), string(final)))
		}
		s.emit(events.NewSessionEnded())
		close(s.done)
	})
}

func classifySessionFailure(cause error) (code, message string) {
	if errors.Is(cause, gateway.ErrAuthorizationExpired) {
		return "authorizationExpired", "gateway authorization expired, start a new session with fresh credentials"
	}
	return "connectionFailure", cause.Error()
}
