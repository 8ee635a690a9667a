package events

import "time"

const (
	// KindStateChanged identifies session lifecycle state transitions.
	KindStateChanged Kind = "session.state_changed"
	// KindInactivityTimeout identifies the inactivity deadline firing.
	KindInactivityTimeout Kind = "session.inactivity_timeout"
	// KindSessionError identifies protocol- and transport-level failures.
	KindSessionError Kind = "session.error"
	// KindSessionEnded identifies the final completion marker; no further
	// events follow it for the session that emitted it.
	KindSessionEnded Kind = "session.ended"
)

// StateChanged marks one lifecycle transition.
type StateChanged struct {
	Base
	From string
	To   string
}

// NewStateChanged creates a state transition event.
func NewStateChanged(from, to string) StateChanged {
	return StateChanged{Base: NewBase(KindStateChanged), From: from, To: to}
}

// InactivityTimeout marks the inactivity deadline firing. It is
// informational; the session drains gracefully right after.
type InactivityTimeout struct {
	Base
	Idle time.Duration
}

// NewInactivityTimeout creates an inactivity timeout event.
func NewInactivityTimeout(idle time.Duration) InactivityTimeout {
	return InactivityTimeout{Base: NewBase(KindInactivityTimeout), Idle: idle}
}

// SessionError reports a remote exception or a transport failure. Fatal is
// set only when the failure tears the session down.
type SessionError struct {
	Base
	Code    string
	Message string
	Fatal   bool
}

// NewSessionError creates a session error event.
func NewSessionError(code, message string, fatal bool) SessionError {
	return SessionError{Base: NewBase(KindSessionError), Code: code, Message: message, Fatal: fatal}
}

// SessionEnded marks the end of the session's event stream.
type SessionEnded struct{ Base }

// NewSessionEnded creates the final completion marker event.
func NewSessionEnded() SessionEnded {
	return SessionEnded{Base: NewBase(KindSessionEnded)}
}
