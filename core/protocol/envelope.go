// Package protocol builds outbound event envelopes and parses inbound ones
// for the duplex speech gateway. Pure construction and classification, no
// I/O: the session layer owns ordering and delivery.
package protocol

import "github.com/adastralabs/vox-core/core/audio"

// Roles carried by content blocks and transcripts.
const (
	RoleSystem    = "SYSTEM"
	RoleUser      = "USER"
	RoleAssistant = "ASSISTANT"
	RoleTool      = "TOOL"
)

// Content block types.
const (
	ContentTypeText       = "TEXT"
	ContentTypeAudio      = "AUDIO"
	ContentTypeToolResult = "TOOL_RESULT"
)

const (
	mediaTypeText  = "text/plain"
	mediaTypeAudio = "audio/lpcm"

	audioTypeSpeech = "SPEECH"
	encodingBase64  = "base64"
	sampleSizeBits  = 16
	channelCount    = 1
)

// DefaultVoice is the assistant voice used when none is configured.
const DefaultVoice = "matthew"

// Envelope is one outbound protocol message, serialized as
// {"event":{"<kind>":{...}}}. Exactly one body field is set; envelopes are
// immutable once built and their enqueue order is significant.
type Envelope struct {
	Event EventBody `json:"event"`
}

// EventBody is the tagged union of outbound event kinds.
type EventBody struct {
	SessionStart *SessionStartBody `json:"sessionStart,omitempty"`
	PromptStart  *PromptStartBody  `json:"promptStart,omitempty"`
	ContentStart *ContentStartBody `json:"contentStart,omitempty"`
	TextInput    *TextInputBody    `json:"textInput,omitempty"`
	AudioInput   *AudioInputBody   `json:"audioInput,omitempty"`
	ContentEnd   *ContentEndBody   `json:"contentEnd,omitempty"`
	PromptEnd    *PromptEndBody    `json:"promptEnd,omitempty"`
	SessionEnd   *SessionEndBody   `json:"sessionEnd,omitempty"`
}

// Kind names the single event this envelope carries.
func (e Envelope) Kind() string {
	switch {
	case e.Event.SessionStart != nil:
		return "sessionStart"
	case e.Event.PromptStart != nil:
		return "promptStart"
	case e.Event.ContentStart != nil:
		return "contentStart"
	case e.Event.TextInput != nil:
		return "textInput"
	case e.Event.AudioInput != nil:
		return "audioInput"
	case e.Event.ContentEnd != nil:
		return "contentEnd"
	case e.Event.PromptEnd != nil:
		return "promptEnd"
	case e.Event.SessionEnd != nil:
		return "sessionEnd"
	}
	return ""
}

// InferenceConfiguration carries the fixed generation parameters declared at
// session start.
type InferenceConfiguration struct {
	MaxTokens   int     `json:"maxTokens"`
	TopP        float64 `json:"topP"`
	Temperature float64 `json:"temperature"`
}

func DefaultInferenceConfiguration() InferenceConfiguration {
	return InferenceConfiguration{MaxTokens: 1024, TopP: 0.9, Temperature: 0.7}
}

type SessionStartBody struct {
	InferenceConfiguration InferenceConfiguration `json:"inferenceConfiguration"`
}

type PromptStartBody struct {
	PromptName               string                   `json:"promptName"`
	TextOutputConfiguration  TextOutputConfiguration  `json:"textOutputConfiguration"`
	AudioOutputConfiguration AudioOutputConfiguration `json:"audioOutputConfiguration"`
	ToolUseConfiguration     *ToolUseConfiguration    `json:"toolUseConfiguration,omitempty"`
}

type TextOutputConfiguration struct {
	MediaType string `json:"mediaType"`
}

type AudioOutputConfiguration struct {
	MediaType       string `json:"mediaType"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	SampleSizeBits  int    `json:"sampleSizeBits"`
	ChannelCount    int    `json:"channelCount"`
	VoiceID         string `json:"voiceId"`
	Encoding        string `json:"encoding"`
	AudioType       string `json:"audioType"`
}

type ContentStartBody struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
	Type        string `json:"type"`
	Interactive bool   `json:"interactive"`
	Role        string `json:"role"`

	TextInputConfiguration       *TextInputConfiguration       `json:"textInputConfiguration,omitempty"`
	AudioInputConfiguration      *AudioInputConfiguration      `json:"audioInputConfiguration,omitempty"`
	ToolResultInputConfiguration *ToolResultInputConfiguration `json:"toolResultInputConfiguration,omitempty"`
}

type TextInputConfiguration struct {
	MediaType string `json:"mediaType"`
}

type AudioInputConfiguration struct {
	MediaType       string `json:"mediaType"`
	SampleRateHertz int    `json:"sampleRateHertz"`
	SampleSizeBits  int    `json:"sampleSizeBits"`
	ChannelCount    int    `json:"channelCount"`
	AudioType       string `json:"audioType"`
	Encoding        string `json:"encoding"`
}

type ToolResultInputConfiguration struct {
	ToolUseID              string                 `json:"toolUseId"`
	Type                   string                 `json:"type"`
	TextInputConfiguration TextInputConfiguration `json:"textInputConfiguration"`
}

type TextInputBody struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
	Content     string `json:"content"`
}

type AudioInputBody struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
	Content     string `json:"content"`
}

type ContentEndBody struct {
	PromptName  string `json:"promptName"`
	ContentName string `json:"contentName"`
}

type PromptEndBody struct {
	PromptName string `json:"promptName"`
}

type SessionEndBody struct{}

// NewSessionStart declares the session and its inference parameters.
func NewSessionStart(inference InferenceConfiguration) Envelope {
	return Envelope{Event: EventBody{SessionStart: &SessionStartBody{
		InferenceConfiguration: inference,
	}}}
}

// NewPromptStart declares the prompt's expected output media and, when tools
// is non-nil, the tool specification.
func NewPromptStart(promptName, voice string, tools *ToolUseConfiguration) Envelope {
	if voice == "" {
		voice = DefaultVoice
	}
	return Envelope{Event: EventBody{PromptStart: &PromptStartBody{
		PromptName:              promptName,
		TextOutputConfiguration: TextOutputConfiguration{MediaType: mediaTypeText},
		AudioOutputConfiguration: AudioOutputConfiguration{
			MediaType:       mediaTypeAudio,
			SampleRateHertz: audio.OutputSampleRate,
			SampleSizeBits:  sampleSizeBits,
			ChannelCount:    channelCount,
			VoiceID:         voice,
			Encoding:        encodingBase64,
			AudioType:       audioTypeSpeech,
		},
		ToolUseConfiguration: tools,
	}}}
}

// NewSystemContentStart opens the system-instructions text block.
func NewSystemContentStart(promptName, contentName string) Envelope {
	return Envelope{Event: EventBody{ContentStart: &ContentStartBody{
		PromptName:             promptName,
		ContentName:            contentName,
		Type:                   ContentTypeText,
		Interactive:            true,
		Role:                   RoleSystem,
		TextInputConfiguration: &TextInputConfiguration{MediaType: mediaTypeText},
	}}}
}

// NewTextInput carries text into an open text or tool-result block.
func NewTextInput(promptName, contentName, content string) Envelope {
	return Envelope{Event: EventBody{TextInput: &TextInputBody{
		PromptName:  promptName,
		ContentName: contentName,
		Content:     content,
	}}}
}

// NewAudioContentStart opens the user audio block and declares the input
// encoding.
func NewAudioContentStart(promptName, contentName string) Envelope {
	return Envelope{Event: EventBody{ContentStart: &ContentStartBody{
		PromptName:  promptName,
		ContentName: contentName,
		Type:        ContentTypeAudio,
		Interactive: true,
		Role:        RoleUser,
		AudioInputConfiguration: &AudioInputConfiguration{
			MediaType:       mediaTypeAudio,
			SampleRateHertz: audio.InputSampleRate,
			SampleSizeBits:  sampleSizeBits,
			ChannelCount:    channelCount,
			AudioType:       audioTypeSpeech,
			Encoding:        encodingBase64,
		},
	}}}
}

// NewAudioInput carries one base64-encoded captured frame.
func NewAudioInput(promptName, contentName, payload string) Envelope {
	return Envelope{Event: EventBody{AudioInput: &AudioInputBody{
		PromptName:  promptName,
		ContentName: contentName,
		Content:     payload,
	}}}
}

// NewToolResultContentStart opens a tool-result block answering the given
// tool-use identifier.
func NewToolResultContentStart(promptName, contentName, toolUseID string) Envelope {
	return Envelope{Event: EventBody{ContentStart: &ContentStartBody{
		PromptName:  promptName,
		ContentName: contentName,
		Type:        ContentTypeToolResult,
		Interactive: false,
		Role:        RoleTool,
		ToolResultInputConfiguration: &ToolResultInputConfiguration{
			ToolUseID:              toolUseID,
			Type:                   ContentTypeText,
			TextInputConfiguration: TextInputConfiguration{MediaType: mediaTypeText},
		},
	}}}
}

// NewContentEnd closes an open content block.
func NewContentEnd(promptName, contentName string) Envelope {
	return Envelope{Event: EventBody{ContentEnd: &ContentEndBody{
		PromptName:  promptName,
		ContentName: contentName,
	}}}
}

// NewPromptEnd closes the prompt.
func NewPromptEnd(promptName string) Envelope {
	return Envelope{Event: EventBody{PromptEnd: &PromptEndBody{PromptName: promptName}}}
}

// NewSessionEnd closes the session; the last envelope on the wire.
func NewSessionEnd() Envelope {
	return Envelope{Event: EventBody{SessionEnd: &SessionEndBody{}}}
}
