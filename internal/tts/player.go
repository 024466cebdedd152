package tts

import (
	"fmt"
	"io"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/mp3"
	"github.com/faiface/beep/speaker"
	"github.com/faiface/beep/wav"
)

// Player plays decoded audio on the default output device.
type Player interface {
	Play(format string, r io.ReadCloser) error
}

// BeepPlayer implements Player for mp3 and wav streams.
type BeepPlayer struct{}

// NewPlayer creates a BeepPlayer.
func NewPlayer() *BeepPlayer {
	return &BeepPlayer{}
}

// Play decodes the stream and blocks until playback finishes.
func (p *BeepPlayer) Play(format string, r io.ReadCloser) error {
	var (
		streamer beep.StreamSeekCloser
		f        beep.Format
		err      error
	)
	switch format {
	case "mp3":
		streamer, f, err = mp3.Decode(r)
	case "wav":
		streamer, f, err = wav.Decode(r)
	default:
		return fmt.Errorf("unsupported playback format %q", format)
	}
	if err != nil {
		return fmt.Errorf("failed to decode %s stream: %w", format, err)
	}
	defer streamer.Close()

	if err := speaker.Init(f.SampleRate, f.SampleRate.N(time.Second/10)); err != nil {
		return fmt.Errorf("failed to init speaker: %w", err)
	}

	done := make(chan struct{})
	speaker.Play(beep.Seq(streamer, beep.Callback(func() { close(done) })))
	<-done
	return nil
}
