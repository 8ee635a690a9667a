package voicesession

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"github.com/adastralabs/vox-core/core/events"
	"github.com/adastralabs/vox-core/core/protocol"
)

// stopReasonIsToolUse matches the gateway's tool-use stop reason under any
// casing or separator convention (TOOL_USE, tool-use, "Tool use").
func stopReasonIsToolUse(stopReason string) bool {
	cleaned := strings.NewReplacer("_", "", "-", "", " ", "").Replace(strings.ToLower(stopReason))
	return cleaned == "tooluse"
}

// pendingToolUse is one announced tool invocation awaiting the close of its
// content block. At most one exists at a time; a newer invocation replaces
// an unresolved one.
type pendingToolUse struct {
	toolUseID string
	toolName  string
	target    string
	query     string

	// contentID names the inbound block that was open when the invocation
	// arrived. It resolves the invocation when no stop reason does. Empty
	// when no block was open; an empty id never matches.
	contentID string

	// failure holds the parameter decode error. The block is still answered
	// with an error status so the gateway is never left waiting on a result.
	failure string
}

// resultPayload is the status object sent back inside the tool-result block.
func (p *pendingToolUse) resultPayload() string {
	if p.failure != "" {
		raw, _ := json.Marshal(struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		}{Status: "error", Message: p.failure})
		return string(raw)
	}
	raw, _ := json.Marshal(struct {
		Status    string `json:"status"`
		AgentName string `json:"agentName"`
	}{Status: "routed", AgentName: p.target})
	return string(raw)
}

// toolRouter correlates model-issued tool invocations with the result blocks
// sent back on the wire. It is driven entirely by the session's inbound
// loop; methods are not safe for concurrent use.
type toolRouter struct {
	promptName string
	enqueue    func(protocol.Envelope)
	emit       eventEmitter

	pending       *pendingToolUse
	openContentID string
}

func newToolRouter(promptName string, enqueue func(protocol.Envelope), emit eventEmitter) *toolRouter {
	return &toolRouter{
		promptName: promptName,
		enqueue:    enqueue,
		emit:       emit,
	}
}

// NoteContentStart records the most recently opened inbound content block so
// a later invocation can be tied to its closing event.
func (r *toolRouter) NoteContentStart(boundary *protocol.ContentBoundary) {
	r.openContentID = boundary.ContentID
}

// HandleToolUse announces an invocation. The wire result is deferred until
// the tool content block formally closes; observers hear about the call
// immediately.
func (r *toolRouter) HandleToolUse(toolUse *protocol.ToolUse) {
	if r.pending != nil {
		logger.Warn("Replacing unresolved tool invocation",
			"pending_tool_use_id", r.pending.toolUseID,
			"tool_use_id", toolUse.ToolUseID,
		)
	}

	pending := &pendingToolUse{
		toolUseID: toolUse.ToolUseID,
		toolName:  toolUse.ToolName,
		contentID: r.openContentID,
	}
	if arguments, err := toolUse.Arguments(); err != nil {
		pending.failure = err.Error()
	} else {
		pending.target = arguments.AgentName
		pending.query = arguments.Query
	}
	r.pending = pending

	r.emit(events.NewToolCallStarted(toolUse.ToolUseID, toolUse.ToolName, toolUse.RawArguments()))
}

// HandleContentEnd resolves the pending invocation when the closing event
// targets the tool block: either its stop reason says tool use or its
// identifier matches the block recorded at announcement. The result triple
// (contentStart, textInput, contentEnd) is enqueued under a fresh content
// name and the pending slot is cleared. Reports whether it resolved.
func (r *toolRouter) HandleContentEnd(boundary *protocol.ContentBoundary) bool {
	pending := r.pending
	if pending == nil {
		return false
	}

	matchesBlock := pending.contentID != "" && boundary.ContentID == pending.contentID
	if !stopReasonIsToolUse(boundary.StopReason) && !matchesBlock {
		return false
	}

	contentName := uuid.NewString()
	r.enqueue(protocol.NewToolResultContentStart(r.promptName, contentName, pending.toolUseID))
	r.enqueue(protocol.NewTextInput(r.promptName, contentName, pending.resultPayload()))
	r.enqueue(protocol.NewContentEnd(r.promptName, contentName))
	r.pending = nil

	if pending.failure != "" {
		r.emit(events.NewToolCallFailed(pending.toolUseID, pending.toolName, pending.failure))
	} else {
		r.emit(events.NewToolCallCompleted(pending.toolUseID, pending.toolName, pending.target))
	}
	return true
}
