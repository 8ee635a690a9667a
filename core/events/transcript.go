package events

const (
	// KindTranscriptSegment identifies streamed transcript text, user and
	// assistant alike.
	KindTranscriptSegment Kind = "transcript.segment"
)

// TranscriptSegment carries one streamed piece of transcript text. Role is
// the wire role of the speaker ("USER" or "ASSISTANT").
type TranscriptSegment struct {
	Base
	Role string
	Text string
}

func (t TranscriptSegment) String() string { return t.Role + ": " + t.Text }

// NewTranscriptSegment creates a transcript segment event.
func NewTranscriptSegment(role, text string) TranscriptSegment {
	return TranscriptSegment{Base: NewBase(KindTranscriptSegment), Role: role, Text: text}
}
