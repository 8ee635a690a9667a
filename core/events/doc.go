// Package events defines the typed session event contract.
//
// Event kinds are grouped by receiver-facing namespaces:
//
//   - session.*
//   - transcript.*
//   - user_input.*
//   - assistant_speech.*
//   - tool_call.*
//   - turn_state.*
//
// Semantics used across the package:
//
//   - Frame: binary audio frame/chunk payload.
//   - Segment: text piece emitted in stream order.
//   - Ended: lifecycle boundary; nothing follows it for that session.
//
// session events
//
//   - StateChanged (session.state_changed): lifecycle transition with the
//     previous and the new state.
//   - InactivityTimeout (session.inactivity_timeout): the inactivity deadline
//     fired; informational, emitted exactly once before the session drains.
//   - SessionError (session.error): remote protocol exception or transport
//     failure; Fatal marks failures that tear the session down.
//   - SessionEnded (session.ended): final completion marker.
//
// transcript events
//
//   - TranscriptSegment (transcript.segment): streamed transcript text with
//     the speaker's wire role.
//
// user_input events
//
//   - UserAudioFrame (user_input.audio_frame): quantized microphone frame as
//     handed to the transport.
//
// assistant_speech events
//
//   - AssistantSpeechFrame (assistant_speech.frame): decoded assistant speech
//     frame.
//
// tool_call events
//
//   - ToolCallStarted (tool_call.started): tool-use request announced.
//   - ToolCallCompleted (tool_call.completed): result block sent; carries the
//     routed target.
//   - ToolCallFailed (tool_call.failed): parameters unusable; the block is
//     still answered with an error status.
//
// turn_state events
//
//   - TurnCompleted (turn_state.completed): remote completion marker for the
//     current exchange.
package events
