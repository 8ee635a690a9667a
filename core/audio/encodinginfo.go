package audio

import "time"

const (
	// InputSampleRate is the fixed microphone capture rate.
	InputSampleRate = 16000
	// OutputSampleRate is the fixed assistant speech rate.
	OutputSampleRate = 24000
)

// InputEncoding describes the capture side: devices deliver float32 samples
// in [-1, 1] which the encoder quantizes to linear16 for the wire.
func InputEncoding() EncodingInfo {
	return EncodingInfo{SampleRate: InputSampleRate, Format: EncodingFloat32}
}

// WireInputEncoding describes user audio as it crosses the wire.
func WireInputEncoding() EncodingInfo {
	return EncodingInfo{SampleRate: InputSampleRate, Format: EncodingLinear16}
}

// OutputEncoding describes assistant speech as received and played back.
func OutputEncoding() EncodingInfo {
	return EncodingInfo{SampleRate: OutputSampleRate, Format: EncodingLinear16}
}

type EncodingInfo struct {
	SampleRate int
	Format     encodingFormat
}

func (e EncodingInfo) IsZero() bool {
	return e.SampleRate == 0 || e.Format.Name() == ""
}

func (e EncodingInfo) SilenceValue() byte {
	switch e.Format {
	case EncodingLinear16, EncodingFloat32:
		return 0
	}

	return 0
}

// BytesPerSecond is the raw throughput of a mono stream in this encoding.
func (e EncodingInfo) BytesPerSecond() int {
	return e.SampleRate * e.Format.ByteSize()
}

// Duration converts a raw mono byte length into play time.
func (e EncodingInfo) Duration(byteLen int) time.Duration {
	perSecond := e.BytesPerSecond()
	if perSecond <= 0 {
		return 0
	}
	return time.Duration(float64(byteLen) / float64(perSecond) * float64(time.Second))
}

type encodingFormat string

func (e encodingFormat) Name() string {
	return string(e)
}

func (e encodingFormat) ByteSize() int {
	switch e {
	case EncodingLinear16:
		return 2
	case EncodingFloat32:
		return 4
	}
	return -1
}

const (
	EncodingLinear16 encodingFormat = "linear16"
	EncodingFloat32  encodingFormat = "float32"
)
