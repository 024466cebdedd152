// Package stt performs offline speech-to-text for EchoGuide using Vosk.
//
// Recognition models are selected per stored language preference. Models are
// expensive to load, so the transcriber keeps an explicit per-language cache
// owned by the instance constructed at the composition root.
package stt

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	vosk "github.com/alphacep/vosk-api/go"

	"github.com/BTreeMap/EchoGuide/internal/audio"
	"github.com/BTreeMap/EchoGuide/internal/models"
)

// Transcriber converts recorded PCM audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// LanguageSource provides the active language preference. The store
// implementation satisfies this.
type LanguageSource interface {
	LoadLanguage() (*models.LanguagePreference, error)
}

// VoskTranscriber recognizes speech with per-language Vosk models.
type VoskTranscriber struct {
	languages LanguageSource
	modelsDir string

	mu     sync.Mutex
	models map[string]*vosk.VoskModel
}

// NewVoskTranscriber creates a transcriber loading models from modelsDir.
func NewVoskTranscriber(languages LanguageSource, modelsDir string) *VoskTranscriber {
	vosk.SetLogLevel(-1)
	return &VoskTranscriber{
		languages: languages,
		modelsDir: modelsDir,
		models:    make(map[string]*vosk.VoskModel),
	}
}

// Transcribe converts the PCM audio to text using the model for the stored
// language (falling back to the default language when none is stored).
// A missing model directory or recognition failure yields an empty
// transcription, not an error; the flow treats silence as recoverable.
func (t *VoskTranscriber) Transcribe(ctx context.Context, pcm []byte) (string, error) {
	if len(pcm) == 0 {
		return "", nil
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	code := t.activeLanguage()
	setting, err := models.SettingsFor(code)
	if err != nil {
		slog.Warn("VoskTranscriber.Transcribe: unknown stored language, using default", "language", code)
		setting, _ = models.SettingsFor(models.DefaultLanguageCode)
	}

	modelPath := filepath.Join(t.modelsDir, setting.ModelPath)
	if _, err := os.Stat(modelPath); err != nil {
		slog.Warn("VoskTranscriber.Transcribe: model not found, returning empty transcription",
			"language", code, "path", modelPath)
		return "", nil
	}

	model, err := t.modelFor(modelPath)
	if err != nil {
		slog.Error("VoskTranscriber.Transcribe: failed to load model", "error", err, "path", modelPath)
		return "", nil
	}

	rec, err := vosk.NewRecognizer(model, float64(audio.SampleRate))
	if err != nil {
		slog.Error("VoskTranscriber.Transcribe: failed to create recognizer", "error", err)
		return "", nil
	}
	defer rec.Free()

	rec.AcceptWaveform(pcm)
	text, err := parseResult(rec.FinalResult())
	if err != nil {
		slog.Error("VoskTranscriber.Transcribe: failed to parse result", "error", err)
		return "", nil
	}
	slog.Debug("VoskTranscriber.Transcribe: transcribed", "language", code, "text", text)
	return text, nil
}

// Close frees all cached models.
func (t *VoskTranscriber) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for path, m := range t.models {
		m.Free()
		delete(t.models, path)
	}
}

// activeLanguage resolves the stored language code, defaulting when unset.
func (t *VoskTranscriber) activeLanguage() string {
	pref, err := t.languages.LoadLanguage()
	if err != nil {
		slog.Warn("VoskTranscriber: failed to load language preference", "error", err)
		return models.DefaultLanguageCode
	}
	if pref == nil || pref.Language == "" {
		return models.DefaultLanguageCode
	}
	return pref.Language
}

// modelFor returns the cached model for the path, loading it on first use.
func (t *VoskTranscriber) modelFor(path string) (*vosk.VoskModel, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if m, ok := t.models[path]; ok {
		return m, nil
	}
	m, err := vosk.NewModel(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load vosk model: %w", err)
	}
	t.models[path] = m
	slog.Info("VoskTranscriber: model loaded and cached", "path", path)
	return m, nil
}

// parseResult extracts the text field from a Vosk result JSON document.
func parseResult(result string) (string, error) {
	var out struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(result), &out); err != nil {
		return "", fmt.Errorf("invalid recognizer result: %w", err)
	}
	return strings.TrimSpace(out.Text), nil
}
