package voicesession

import (
	"time"

	"github.com/jinzhu/copier"

	"github.com/adastralabs/vox-core/core/gateway"
	"github.com/adastralabs/vox-core/core/protocol"
)

// DefaultInactivityTimeout is how long a session may go without captured
// audio or an explicit keep-alive before it drains itself.
const DefaultInactivityTimeout = 30 * time.Second

// DefaultSystemPrompt primes the assistant for the advertising workspace it
// fronts. Sessions can replace it with [WithSystemPrompt].
const DefaultSystemPrompt = "You are a voice assistant embedded in an advertising workspace. " +
	"Keep answers short and conversational. When a request belongs to a specialist agent, " +
	"route it there instead of answering yourself."

const defaultEventBuffer = 256

// RouteTarget is one agent the routing tool may dispatch a query to. Targets
// missing a name or description are excluded from the tool specification.
type RouteTarget struct {
	Name        string
	Description string
}

type Option func(*Engine)

// WithDialer sets the gateway connection factory. Required.
func WithDialer(dialer gateway.Dialer) Option {
	return func(e *Engine) { e.dialer = dialer }
}

// WithAudioCapture sets the microphone client. Required.
func WithAudioCapture(device AudioCapture) Option {
	return func(e *Engine) { e.device = device }
}

// WithVoice selects the assistant voice declared at prompt start.
func WithVoice(voice string) Option {
	return func(e *Engine) {
		if voice != "" {
			e.voice = voice
		}
	}
}

// WithInactivityTimeout replaces the default inactivity window.
func WithInactivityTimeout(window time.Duration) Option {
	return func(e *Engine) {
		if window > 0 {
			e.inactivityTimeout = window
		}
	}
}

// WithFrameSize sets how many samples each outbound audio frame carries.
func WithFrameSize(samples int) Option {
	return func(e *Engine) {
		if samples > 0 {
			e.frameSize = samples
		}
	}
}

// WithInferenceConfiguration replaces the generation parameters declared at
// session start.
func WithInferenceConfiguration(inference protocol.InferenceConfiguration) Option {
	return func(e *Engine) { e.inference = inference }
}

// WithEventBuffer sets the capacity of the subscriber event channel.
func WithEventBuffer(size int) Option {
	return func(e *Engine) {
		if size > 0 {
			e.eventBuffer = size
		}
	}
}

type sessionOptions struct {
	systemPrompt string
	targets      []RouteTarget
}

type SessionOption func(*sessionOptions)

// WithSystemPrompt replaces the default system instructions for one session.
func WithSystemPrompt(instructions string) SessionOption {
	return func(o *sessionOptions) {
		if instructions != "" {
			o.systemPrompt = instructions
		}
	}
}

// WithRouteTargets sets the agents the routing tool may dispatch to. The
// slice is deep-copied; the caller keeps ownership of its own copy.
func WithRouteTargets(targets ...RouteTarget) SessionOption {
	return func(o *sessionOptions) {
		o.targets = nil
		copier.Copy(&o.targets, targets)
	}
}
