package voicesession

import (
	"sync"

	"github.com/adastralabs/vox-core/core/events"
)

type eventEmitter func(events.Event)

func noopEventEmitter(events.Event) {}

// eventStream owns the subscriber channel behind [Engine.Events]. Emitting
// never blocks session goroutines: when the subscriber falls behind, the
// event is dropped. Complete closes the channel exactly once; later emits
// are dropped silently.
type eventStream struct {
	mu     sync.Mutex
	events chan events.Event
	closed bool
}

func newEventStream(buffer int) *eventStream {
	return &eventStream{events: make(chan events.Event, buffer)}
}

func (s *eventStream) Events() <-chan events.Event {
	return s.events
}

// Emitter binds the stream to the callback shape the session works with.
func (s *eventStream) Emitter() eventEmitter {
	return s.emit
}

func (s *eventStream) emit(event events.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.events <- event:
	default:
		logger.Warn("Dropping session event, subscriber is not keeping up", "kind", event.Kind())
	}
}

func (s *eventStream) Complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.events)
}
