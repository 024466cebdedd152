// Package audio records microphone input for EchoGuide.
//
// Recording is callback-driven: the PortAudio stream callback pushes blocks
// into a bounded channel and the consumer drains it with a timeout, so a
// stalled device can never block an interaction indefinitely.
package audio

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"time"

	"github.com/gordonklaus/portaudio"
)

// Audio format constants shared with the speech recognizer.
const (
	// SampleRate is the capture sample rate in Hz.
	SampleRate = 16000
	// BlockSize is the number of samples delivered per callback.
	BlockSize = 8000
	// queueDepth bounds the callback-to-consumer channel.
	queueDepth = 16
)

// Recorder captures mono 16 kHz int16 PCM from the default input device.
// PortAudio must be initialized (Init) before the first Record call.
type Recorder struct{}

// NewRecorder creates a Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Init initializes the PortAudio runtime. Call once from the composition root.
func (r *Recorder) Init() error {
	return portaudio.Initialize()
}

// Terminate releases the PortAudio runtime.
func (r *Recorder) Terminate() {
	if err := portaudio.Terminate(); err != nil {
		slog.Warn("Recorder.Terminate: portaudio terminate failed", "error", err)
	}
}

// Record captures audio for the given duration and returns little-endian
// int16 PCM bytes. If the device stops delivering blocks, the read times out
// after duration plus one second, a warning is logged, and whatever was
// collected so far is returned.
func (r *Recorder) Record(ctx context.Context, duration time.Duration) ([]byte, error) {
	slog.Debug("Recorder.Record: listening", "duration", duration)

	blocks := make(chan []int16, queueDepth)
	stream, err := portaudio.OpenDefaultStream(1, 0, float64(SampleRate), BlockSize, func(in []int16) {
		block := make([]int16, len(in))
		copy(block, in)
		select {
		case blocks <- block:
		default:
			// Consumer fell behind; dropping is better than blocking the
			// audio callback.
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open input stream: %w", err)
	}
	defer stream.Close()

	if err := stream.Start(); err != nil {
		return nil, fmt.Errorf("failed to start input stream: %w", err)
	}
	defer stream.Stop()

	wantBlocks := int(duration.Seconds() * SampleRate / BlockSize)
	if wantBlocks < 1 {
		wantBlocks = 1
	}
	readTimeout := duration + time.Second

	var samples []int16
	timeout := time.NewTimer(readTimeout)
	defer timeout.Stop()

	for i := 0; i < wantBlocks; i++ {
		select {
		case block := <-blocks:
			samples = append(samples, block...)
		case <-timeout.C:
			slog.Warn("Recorder.Record: not enough audio data received within timeout",
				"collected_blocks", i, "want_blocks", wantBlocks)
			return pcmBytes(samples), nil
		case <-ctx.Done():
			return pcmBytes(samples), ctx.Err()
		}
	}

	slog.Debug("Recorder.Record: finished", "samples", len(samples))
	return pcmBytes(samples), nil
}

// pcmBytes converts int16 samples to little-endian bytes.
func pcmBytes(samples []int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(s))
	}
	return out
}
