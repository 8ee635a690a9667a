package events

const (
	// KindToolCallStarted identifies a model-issued tool invocation that was
	// announced but not yet answered.
	KindToolCallStarted Kind = "tool_call.started"
	// KindToolCallCompleted identifies a tool invocation whose result block
	// was sent back.
	KindToolCallCompleted Kind = "tool_call.completed"
	// KindToolCallFailed identifies a tool invocation whose parameters could
	// not be understood.
	KindToolCallFailed Kind = "tool_call.failed"
)

// ToolCallStarted marks the arrival of a tool-use request. Arguments holds
// the raw parameter payload as received.
type ToolCallStarted struct {
	Base
	ID        string
	Name      string
	Arguments string
}

// NewToolCallStarted creates a tool call started event.
func NewToolCallStarted(id, name, arguments string) ToolCallStarted {
	return ToolCallStarted{Base: NewBase(KindToolCallStarted), ID: id, Name: name, Arguments: arguments}
}

// ToolCallCompleted marks a routed tool invocation; Target is the agent the
// query was routed to.
type ToolCallCompleted struct {
	Base
	ID     string
	Name   string
	Target string
}

// NewToolCallCompleted creates a tool call completed event.
func NewToolCallCompleted(id, name, target string) ToolCallCompleted {
	return ToolCallCompleted{Base: NewBase(KindToolCallCompleted), ID: id, Name: name, Target: target}
}

// ToolCallFailed marks a tool invocation with unusable parameters. The block
// is still answered on the wire so the remote side is not left waiting.
type ToolCallFailed struct {
	Base
	ID    string
	Name  string
	Error string
}

// NewToolCallFailed creates a tool call failed event.
func NewToolCallFailed(id, name, err string) ToolCallFailed {
	return ToolCallFailed{Base: NewBase(KindToolCallFailed), ID: id, Name: name, Error: err}
}
