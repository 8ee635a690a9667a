package voicesession

// State is the lifecycle phase of a voice session. Transitions are owned by
// the session itself; observers watch them through session state events.
type State string

const (
	// StateIdle means no session work has begun.
	StateIdle State = "idle"
	// StateStarting covers connection setup and the protocol preamble.
	StateStarting State = "starting"
	// StateActive means audio is streaming in both directions.
	StateActive State = "active"
	// StateDraining means shutdown has begun and the closing events are
	// flushing to the gateway.
	StateDraining State = "draining"
	// StateClosed is the terminal state of an orderly shutdown.
	StateClosed State = "closed"
	// StateErrored is the terminal state of a transport or gateway failure.
	StateErrored State = "errored"
)

func (s State) String() string { return string(s) }

// terminal reports whether no transition may leave the state.
func (s State) terminal() bool {
	return s == StateClosed || s == StateErrored
}
