package voicesession

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/adastralabs/vox-core/core/audio"
)

// ErrAudioDeviceUnavailable reports that the capture device could not be
// acquired: missing hardware, denied permission, or an exclusive hold by
// another process.
var ErrAudioDeviceUnavailable = errors.New("audio capture device unavailable")

// AudioCapture is the microphone contract the engine consumes. Open acquires
// the device and surfaces capability problems before any streaming starts.
// Stream delivers raw sample slices on the device's own goroutine until
// StopStream. Release returns the device so a later Open can acquire it
// again.
type AudioCapture interface {
	EncodingInfo() audio.EncodingInfo
	Open(ctx context.Context) error
	Stream(ctx context.Context, onSamples func(samples []float32)) error
	StopStream() error
	Release() error
}

// capturePipeline drives one session's microphone leg: it opens the device,
// regroups the callback's arbitrarily sized sample slices into fixed frames,
// and hands each complete frame to the session. Trailing samples short of a
// frame are dropped on stop.
type capturePipeline struct {
	device    AudioCapture
	assembler *audio.FrameAssembler
	onFrame   func(frame []float32)

	opened    atomic.Bool
	streaming atomic.Bool
}

func newCapturePipeline(device AudioCapture, frameSize int, onFrame func(frame []float32)) *capturePipeline {
	if onFrame == nil {
		onFrame = func([]float32) {}
	}
	return &capturePipeline{
		device:    device,
		assembler: audio.NewFrameAssembler(frameSize),
		onFrame:   onFrame,
	}
}

// Open acquires the device; failures wrap [ErrAudioDeviceUnavailable].
func (p *capturePipeline) Open(ctx context.Context) error {
	if err := p.device.Open(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrAudioDeviceUnavailable, err)
	}
	p.opened.Store(true)
	return nil
}

// Start begins streaming; the device callback may fire immediately.
func (p *capturePipeline) Start(ctx context.Context) error {
	if !p.streaming.CompareAndSwap(false, true) {
		return nil
	}
	if err := p.device.Stream(ctx, p.onSamples); err != nil {
		p.streaming.Store(false)
		return fmt.Errorf("failed to start audio capture: %w", err)
	}
	return nil
}

// onSamples runs on the device callback goroutine.
func (p *capturePipeline) onSamples(samples []float32) {
	if !p.streaming.Load() {
		return
	}
	p.assembler.Push(samples, p.onFrame)
}

// Stop halts streaming without releasing the device. Safe to call more than
// once; only the first call reaches the device.
func (p *capturePipeline) Stop() error {
	if !p.streaming.CompareAndSwap(true, false) {
		return nil
	}
	if err := p.device.StopStream(); err != nil {
		return fmt.Errorf("failed to stop audio capture: %w", err)
	}
	return nil
}

// Release stops streaming and returns the device. Only the first call
// reaches the device; Open can acquire it again afterwards.
func (p *capturePipeline) Release() error {
	if !p.opened.CompareAndSwap(true, false) {
		return nil
	}
	_ = p.Stop()
	if err := p.device.Release(); err != nil {
		return fmt.Errorf("failed to release capture device: %w", err)
	}
	return nil
}
