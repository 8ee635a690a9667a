package audio

import (
	"encoding/base64"
	"encoding/binary"
)

// DefaultFrameSize is the number of samples per outbound frame, sized to
// keep capture-to-transport latency low (128 ms at 16 kHz).
const DefaultFrameSize = 2048

// QuantizePCM converts float samples in [-1, 1] to signed 16-bit
// little-endian PCM. Out-of-range samples are clamped. The negative and
// positive halves scale by their own maxima so neither end can overflow.
func QuantizePCM(samples []float32) []byte {
	out := make([]byte, 2*len(samples))
	for i, sample := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(quantizeSample(sample)))
	}
	return out
}

func quantizeSample(sample float32) int16 {
	switch {
	case sample <= -1:
		return -32768
	case sample >= 1:
		return 32767
	case sample < 0:
		return int16(sample * 32768)
	default:
		return int16(sample * 32767)
	}
}

// EncodeFrame quantizes one frame and base64-encodes it for transport as a
// text payload.
func EncodeFrame(samples []float32) string {
	return base64.StdEncoding.EncodeToString(QuantizePCM(samples))
}

// DecodeBase64PCM reverses the transport encoding, returning raw linear16
// bytes.
func DecodeBase64PCM(payload string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(payload)
}

// FrameAssembler regroups device-period sample slices into fixed-size
// frames. Only full frames are emitted; a trailing partial frame is dropped
// when the stream stops.
type FrameAssembler struct {
	frameSize int
	pending   []float32
}

func NewFrameAssembler(frameSize int) *FrameAssembler {
	if frameSize <= 0 {
		frameSize = DefaultFrameSize
	}
	return &FrameAssembler{frameSize: frameSize, pending: make([]float32, 0, frameSize)}
}

// Push appends samples and emits every frame they complete. Emitted frames
// are fresh copies, valid beyond the call.
func (a *FrameAssembler) Push(samples []float32, emit func(frame []float32)) {
	a.pending = append(a.pending, samples...)
	for len(a.pending) >= a.frameSize {
		frame := make([]float32, a.frameSize)
		copy(frame, a.pending)
		a.pending = a.pending[:copy(a.pending, a.pending[a.frameSize:])]
		emit(frame)
	}
}

// Pending reports how many samples await the next full frame.
func (a *FrameAssembler) Pending() int {
	return len(a.pending)
}
