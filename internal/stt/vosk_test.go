package stt

import (
	"testing"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

type fakeLanguageSource struct {
	pref *models.LanguagePreference
	err  error
}

func (f *fakeLanguageSource) LoadLanguage() (*models.LanguagePreference, error) {
	return f.pref, f.err
}

func TestParseResult(t *testing.T) {
	text, err := parseResult(`{"text": " what is in front of me "}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "what is in front of me" {
		t.Errorf("expected trimmed text, got %q", text)
	}
}

func TestParseResultEmpty(t *testing.T) {
	text, err := parseResult(`{"text": ""}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if text != "" {
		t.Errorf("expected empty text, got %q", text)
	}
}

func TestParseResultInvalidJSON(t *testing.T) {
	if _, err := parseResult("not json"); err == nil {
		t.Error("expected error for invalid result, got nil")
	}
}

func TestActiveLanguageDefaults(t *testing.T) {
	cases := []struct {
		name   string
		source *fakeLanguageSource
		want   string
	}{
		{"unset", &fakeLanguageSource{}, models.DefaultLanguageCode},
		{"empty", &fakeLanguageSource{pref: &models.LanguagePreference{}}, models.DefaultLanguageCode},
		{"stored", &fakeLanguageSource{pref: &models.LanguagePreference{Language: "fr-FR"}}, "fr-FR"},
	}
	for _, c := range cases {
		tr := NewVoskTranscriber(c.source, t.TempDir())
		if got := tr.activeLanguage(); got != c.want {
			t.Errorf("%s: activeLanguage() = %q, want %q", c.name, got, c.want)
		}
	}
}
