package voicesession

import (
	"github.com/adastralabs/vox-core/core/audio"
	"github.com/adastralabs/vox-core/core/events"
	"github.com/adastralabs/vox-core/core/protocol"
)

// handleInbound classifies one raw transport frame and routes it: text and
// audio to observers, tool traffic to the router, named exceptions to the
// error stream. Payloads that cannot be understood are dropped; nothing an
// individual frame carries terminates the session.
func (s *session) handleInbound(payload []byte) {
	inbound, err := protocol.ParseInbound(payload)
	if err != nil {
		logger.Warn("Failed to decode gateway exception", "error", err)
		s.emit(events.NewSessionError("malformedException", err.Error(), false))
		return
	}

	switch inbound.Kind {
	case protocol.InboundTextOutput:
		s.emit(events.NewTranscriptSegment(inbound.TextOutput.Role, inbound.TextOutput.Content))

	case protocol.InboundAudioOutput:
		pcm, err := audio.DecodeBase64PCM(inbound.AudioOutput.Content)
		if err != nil {
			logger.Debug("Dropping undecodable assistant audio", "error", err)
			return
		}
		s.emit(events.NewAssistantSpeechFrame(pcm))

	case protocol.InboundToolUse:
		s.router.HandleToolUse(inbound.ToolUse)

	case protocol.InboundContentStart:
		s.router.NoteContentStart(inbound.ContentStart)

	case protocol.InboundContentEnd:
		s.router.HandleContentEnd(inbound.ContentEnd)

	case protocol.InboundCompletionEnd:
		s.emit(events.NewTurnCompleted())

	case protocol.InboundException:
		logger.Warn("Gateway exception", "name", inbound.Exception.Name, "message", inbound.Exception.Message)
		s.emit(events.NewSessionError(inbound.Exception.Name, inbound.Exception.Message, false))

	default:
		logger.Debug("Ignoring unrecognized gateway payload", "size", len(payload))
	}
}
