package portaudio

import (
	"context"
	"fmt"
	"sync"

	"github.com/gordonklaus/portaudio"

	"github.com/adastralabs/vox-core/core/audio"
)

const defaultBufferSize = 512

// Client captures microphone audio through the default portaudio device as
// float32 mono at the fixed input rate. Alternative to the miniaudio client
// on hosts where portaudio is the better-supported backend.
type Client struct {
	bufferSize int
	stream     *portaudio.Stream
	in         []float32

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewClient(bufferSize int) (*Client, error) {
	if bufferSize <= 0 {
		bufferSize = defaultBufferSize
	}

	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize portaudio: %w", err)
	}

	return &Client{bufferSize: bufferSize}, nil
}

func (c *Client) EncodingInfo() audio.EncodingInfo {
	return audio.InputEncoding()
}

// Open acquires the default capture stream. Missing devices and permission
// denials surface here.
func (c *Client) Open(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.stream != nil {
		return nil
	}

	in := make([]float32, c.bufferSize)
	stream, err := portaudio.OpenDefaultStream(1, 0, audio.InputSampleRate, c.bufferSize, in)
	if err != nil {
		return fmt.Errorf("failed to open default capture stream: %w", err)
	}

	c.in = in
	c.stream = stream
	return nil
}

// Stream starts the capture read loop, delivering fresh sample slices to
// onSamples until the context is cancelled or StopStream is called.
func (c *Client) Stream(ctx context.Context, onSamples func(samples []float32)) error {
	c.mu.Lock()
	if c.stream == nil {
		c.mu.Unlock()
		return fmt.Errorf("capture stream not opened")
	}
	if c.done != nil {
		c.mu.Unlock()
		return nil
	}
	if err := c.stream.Start(); err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to start capture stream: %w", err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.cancel = cancel
	c.done = done
	stream, in := c.stream, c.in
	c.mu.Unlock()

	go func() {
		defer close(done)
		for {
			select {
			case <-streamCtx.Done():
				return
			default:
			}

			if err := stream.Read(); err != nil {
				// Overflows drop one period; the loop keeps going.
				continue
			}

			samples := make([]float32, len(in))
			copy(samples, in)
			onSamples(samples)
		}
	}()

	return nil
}

// StopStream stops the read loop and the device without releasing it.
func (c *Client) StopStream() error {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return nil
	}
	if err := c.stream.Stop(); err != nil {
		return fmt.Errorf("failed to stop capture stream: %w", err)
	}
	return nil
}

// Release stops and closes the capture stream so a later Open can
// acquire it again. Portaudio itself stays initialized.
func (c *Client) Release() error {
	_ = c.StopStream()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stream == nil {
		return nil
	}
	err := c.stream.Close()
	c.stream = nil
	c.in = nil
	if err != nil {
		return fmt.Errorf("failed to close capture stream: %w", err)
	}
	return nil
}

// Close releases the stream and terminates portaudio.
func (c *Client) Close() error {
	err := c.Release()

	if terminateErr := portaudio.Terminate(); err == nil {
		err = terminateErr
	}
	return err
}
