package events

const (
	// KindUserAudioFrame identifies an encoded microphone frame handed to the
	// transport.
	KindUserAudioFrame Kind = "user_input.audio_frame"
	// KindAssistantSpeechFrame identifies a decoded assistant speech frame.
	KindAssistantSpeechFrame Kind = "assistant_speech.frame"
)

// UserAudioFrame carries one quantized user input frame (16 kHz signed
// 16-bit little-endian mono).
type UserAudioFrame struct {
	Base
	Audio []byte
}

// NewUserAudioFrame creates a user input audio frame event.
func NewUserAudioFrame(audio []byte) UserAudioFrame {
	return UserAudioFrame{Base: NewBase(KindUserAudioFrame), Audio: audio}
}

// AssistantSpeechFrame carries one decoded assistant speech frame (24 kHz
// signed 16-bit little-endian mono).
type AssistantSpeechFrame struct {
	Base
	Audio []byte
}

// NewAssistantSpeechFrame creates an assistant speech frame event.
func NewAssistantSpeechFrame(audio []byte) AssistantSpeechFrame {
	return AssistantSpeechFrame{Base: NewBase(KindAssistantSpeechFrame), Audio: audio}
}
