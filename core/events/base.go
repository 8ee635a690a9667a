package events

import "time"

// Kind identifies an event type within a receiver-facing namespace,
// e.g. "session.state_changed".
type Kind string

func (k Kind) String() string { return string(k) }

// Event is implemented by every session event.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
}

// Base carries the fields shared by all events. Embed it and construct it
// with [NewBase].
type Base struct {
	kind      Kind
	timestamp time.Time
}

func NewBase(kind Kind) Base {
	return Base{kind: kind, timestamp: time.Now()}
}

func (b Base) Kind() Kind {
	return b.kind
}

func (b Base) Timestamp() time.Time {
	return b.timestamp
}
