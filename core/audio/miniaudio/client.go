package miniaudio

import (
	"context"
	"fmt"

	"github.com/gen2brain/malgo"

	"github.com/adastralabs/vox-core/core/audio"
)

// Client owns the miniaudio context plus one capture and one playback
// device. Capture delivers float32 samples at the fixed input rate; playback
// consumes linear16 at the fixed output rate.
type Client struct {
	// audioContext is only saved to be able to uninitialize it, it is an
	// ownership thing
	audioContext *malgo.AllocatedContext

	capture  captureClient
	playback playbackClient
}

func NewClient() (*Client, error) {
	audioCtx, err := malgo.InitContext(
		nil,
		malgo.ContextConfig{},
		func(message string) {},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize audio context: %w", err)
	}

	return &Client{audioContext: audioCtx}, nil
}

// EncodingInfo describes the capture side: float32 mono at the input rate.
func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.InputEncoding()
}

// Open acquires the capture device. Permission denial and missing hardware
// surface here, before any streaming starts.
func (c *Client) Open(_ context.Context) error {
	if err := c.capture.Init(c.audioContext); err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}
	return nil
}

// Stream begins delivering captured sample slices to onSamples from the
// device callback. It returns once the device is started.
func (c *Client) Stream(_ context.Context, onSamples func(samples []float32)) error {
	return c.capture.Start(onSamples)
}

// StopStream stops the capture device without releasing it.
func (c *Client) StopStream() error {
	return c.capture.Stop()
}

// Release stops and releases the capture device so a later Open can
// acquire it again. Playback and the audio context stay up.
func (c *Client) Release() error {
	return c.capture.Uninit()
}

// StartPlayback lazily acquires and starts the playback device.
func (c *Client) StartPlayback(_ context.Context) error {
	if err := c.playback.Init(c.audioContext); err != nil {
		return fmt.Errorf("failed to open playback device: %w", err)
	}
	if err := c.playback.Start(); err != nil {
		return fmt.Errorf("failed to start playback device: %w", err)
	}
	return nil
}

// Play queues linear16 audio for the playback device.
func (c *Client) Play(audio []byte) error {
	return c.playback.Enqueue(audio)
}

// ClearPlayback drops any queued but unplayed audio.
func (c *Client) ClearPlayback() {
	c.playback.Clear()
}

// Close releases both devices and the context. Safe after a failed Open.
func (c *Client) Close() error {
	_ = c.capture.Uninit()
	_ = c.playback.Uninit()
	err := c.audioContext.Uninit()
	c.audioContext.Free()
	return err
}
