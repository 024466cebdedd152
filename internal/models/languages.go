// Package models defines the core data structures for EchoGuide.
//
// This file holds the supported-language table: the mapping from a language
// code to its speech-recognition model reference and its speaking voice.
package models

// TTS engine identifiers used by LanguageSetting.TTSEngine.
const (
	// TTSEngineEspeak is the lightweight offline engine used for English.
	TTSEngineEspeak = "espeak"
	// TTSEngineGoogle is the Google Cloud Text-to-Speech engine used for
	// languages the offline engine does not cover well.
	TTSEngineGoogle = "google"
)

// DefaultLanguageCode is used when no language preference has been stored yet.
const DefaultLanguageCode = "en-US"

// LanguageSetting describes one supported interaction language.
type LanguageSetting struct {
	DisplayName  string // human-readable name
	ModelPath    string // directory (relative to the models dir) of the extracted Vosk model
	ModelZipName string // filename the downloaded ZIP is saved under
	ModelURL     string // URL to download the Vosk model ZIP from
	TTSEngine    string // TTSEngineEspeak or TTSEngineGoogle
	TTSVoice     string // voice name for the Google engine, unused for espeak
}

// LanguageSettings maps a language code to its configuration. The table is
// read-only at runtime; adding a language means adding an entry here.
var LanguageSettings = map[string]LanguageSetting{
	"ar-XA": {
		DisplayName:  "العربية (Standard Arabic)",
		ModelPath:    "vosk-model-ar-mgb2-0.4",
		ModelZipName: "vosk-model-ar-mgb2-0.4.zip",
		ModelURL:     "https://alphacephei.com/vosk/models/vosk-model-ar-mgb2-0.4.zip",
		TTSEngine:    TTSEngineGoogle,
		TTSVoice:     "ar-XA-Standard-A",
	},
	"en-US": {
		DisplayName:  "English (US)",
		ModelPath:    "vosk-model-small-en-us-0.15",
		ModelZipName: "vosk-model-small-en-us-0.15.zip",
		ModelURL:     "https://alphacephei.com/vosk/models/vosk-model-small-en-us-0.15.zip",
		TTSEngine:    TTSEngineEspeak,
	},
	"es-ES": {
		DisplayName:  "Spanish (Spain)",
		ModelPath:    "vosk-model-small-es-0.42",
		ModelZipName: "vosk-model-small-es-0.42.zip",
		ModelURL:     "https://alphacephei.com/vosk/models/vosk-model-small-es-0.42.zip",
		TTSEngine:    TTSEngineGoogle,
		TTSVoice:     "es-ES-Standard-A",
	},
	"fr-FR": {
		DisplayName:  "French (France)",
		ModelPath:    "vosk-model-small-fr-0.22",
		ModelZipName: "vosk-model-small-fr-0.22.zip",
		ModelURL:     "https://alphacephei.com/vosk/models/vosk-model-small-fr-0.22.zip",
		TTSEngine:    TTSEngineGoogle,
		TTSVoice:     "fr-FR-Standard-A",
	},
	"de-DE": {
		DisplayName:  "German (Germany)",
		ModelPath:    "vosk-model-small-de-0.15",
		ModelZipName: "vosk-model-small-de-0.15.zip",
		ModelURL:     "https://alphacephei.com/vosk/models/vosk-model-small-de-0.15.zip",
		TTSEngine:    TTSEngineGoogle,
		TTSVoice:     "de-DE-Standard-A",
	},
}

// IsValidLanguageCode checks if the given language code is supported.
func IsValidLanguageCode(code string) bool {
	_, ok := LanguageSettings[code]
	return ok
}

// SettingsFor returns the configuration for a language code, failing
// explicitly when the code is not in the supported table.
func SettingsFor(code string) (LanguageSetting, error) {
	s, ok := LanguageSettings[code]
	if !ok {
		return LanguageSetting{}, ErrUnsupportedLanguage
	}
	return s, nil
}
