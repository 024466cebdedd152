package tts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

// GoogleEngine synthesizes speech with Google Cloud Text-to-Speech and plays
// the resulting MP3. The client is created once at the composition root;
// credentials come from GOOGLE_APPLICATION_CREDENTIALS.
type GoogleEngine struct {
	client *texttospeech.Client
	player Player
}

// NewGoogleEngine creates a GoogleEngine around an authenticated client.
func NewGoogleEngine(ctx context.Context, player Player) (*GoogleEngine, error) {
	client, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}
	return &GoogleEngine{client: client, player: player}, nil
}

// Speak synthesizes the text with the language's configured voice and plays it.
func (g *GoogleEngine) Speak(ctx context.Context, text, languageCode string, setting models.LanguageSetting) error {
	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: languageCode,
			Name:         setting.TTSVoice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_MP3,
		},
	}

	started := time.Now()
	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return fmt.Errorf("speech synthesis failed: %w", err)
	}
	slog.Debug("GoogleEngine.Speak: synthesis completed", "took", time.Since(started), "language", languageCode)

	return g.player.Play("mp3", io.NopCloser(bytes.NewReader(resp.GetAudioContent())))
}

// Close releases the underlying client.
func (g *GoogleEngine) Close() error {
	return g.client.Close()
}
