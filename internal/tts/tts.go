// Package tts speaks text aloud for EchoGuide.
//
// Two engines are supported: a lightweight offline engine (espeak-ng) for
// English and Google Cloud Text-to-Speech for other languages. The Factory
// picks the engine per the stored language preference on every utterance.
package tts

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

// Speaker speaks a text string aloud. The Factory is the Speaker the rest of
// the application consumes.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Engine synthesizes and plays text for a specific language.
type Engine interface {
	Speak(ctx context.Context, text, languageCode string, setting models.LanguageSetting) error
}

// LanguageSource provides the active language preference. The store
// implementation satisfies this.
type LanguageSource interface {
	LoadLanguage() (*models.LanguagePreference, error)
}

// Factory selects the speech engine matching the stored language preference.
type Factory struct {
	languages LanguageSource
	engines   map[string]Engine
}

// NewFactory creates a Factory over the given engine set, keyed by engine
// name (models.TTSEngineEspeak, models.TTSEngineGoogle).
func NewFactory(languages LanguageSource, engines map[string]Engine) *Factory {
	return &Factory{languages: languages, engines: engines}
}

// Speak resolves the stored language to an engine and speaks the text.
func (f *Factory) Speak(ctx context.Context, text string) error {
	if text == "" {
		return nil
	}

	code := models.DefaultLanguageCode
	pref, err := f.languages.LoadLanguage()
	if err != nil {
		slog.Warn("Factory.Speak: failed to load language preference, using default", "error", err)
	} else if pref != nil && pref.Language != "" {
		code = pref.Language
	}

	setting, err := models.SettingsFor(code)
	if err != nil {
		slog.Warn("Factory.Speak: unknown stored language, using default", "language", code)
		code = models.DefaultLanguageCode
		setting, _ = models.SettingsFor(code)
	}

	engine, ok := f.engines[setting.TTSEngine]
	if !ok {
		return fmt.Errorf("no speech engine registered for %q", setting.TTSEngine)
	}
	slog.Debug("Factory.Speak: speaking", "engine", setting.TTSEngine, "chars", len(text))
	return engine.Speak(ctx, text, code, setting)
}
