package models

import (
	"errors"
	"testing"
)

func TestSettingsForSupportedLanguages(t *testing.T) {
	for code, want := range LanguageSettings {
		got, err := SettingsFor(code)
		if err != nil {
			t.Errorf("%s: unexpected error: %v", code, err)
			continue
		}
		if got != want {
			t.Errorf("%s: settings mismatch", code)
		}
	}
}

func TestSettingsForUnsupportedLanguage(t *testing.T) {
	if _, err := SettingsFor("xx-XX"); !errors.Is(err, ErrUnsupportedLanguage) {
		t.Errorf("expected ErrUnsupportedLanguage, got %v", err)
	}
}

func TestLanguageTableConsistency(t *testing.T) {
	if !IsValidLanguageCode(DefaultLanguageCode) {
		t.Fatalf("default language %s must be in the table", DefaultLanguageCode)
	}
	for code, setting := range LanguageSettings {
		if setting.ModelPath == "" || setting.ModelZipName == "" || setting.ModelURL == "" {
			t.Errorf("%s: incomplete model reference", code)
		}
		switch setting.TTSEngine {
		case TTSEngineEspeak:
		case TTSEngineGoogle:
			if setting.TTSVoice == "" {
				t.Errorf("%s: Google engine requires a voice name", code)
			}
		default:
			t.Errorf("%s: unknown TTS engine %q", code, setting.TTSEngine)
		}
	}
}
