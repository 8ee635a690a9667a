package events

const (
	// KindTurnCompleted identifies the remote completion marker for the
	// current exchange.
	KindTurnCompleted Kind = "turn_state.completed"
)

// TurnCompleted marks the remote side reporting the exchange complete.
type TurnCompleted struct{ Base }

// NewTurnCompleted creates a turn completed event.
func NewTurnCompleted() TurnCompleted {
	return TurnCompleted{Base: NewBase(KindTurnCompleted)}
}
