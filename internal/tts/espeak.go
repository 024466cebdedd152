package tts

/*
#cgo LDFLAGS: -lespeak-ng
#include <stdlib.h>
#include <espeak-ng/speak_lib.h>

int
espeak_say(const char *text, const char *lang)
{
	if (!text)
	{ return -1; }

	espeak_Initialize(AUDIO_OUTPUT_SYNCH_PLAYBACK, 500, NULL, 0);
	espeak_VOICE specs = { 0 };
	specs.languages = lang;
	espeak_SetVoiceByProperties(&specs);

	espeak_Synth(text, 500, 0, 0, 0, espeakCHARS_AUTO, NULL, NULL);
	espeak_Synchronize();
	espeak_Terminate();

	return 0;
}
*/
import "C"

import (
	"context"
	"fmt"
	"strings"
	"unsafe"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

// EspeakEngine speaks through espeak-ng, the offline engine used for English.
type EspeakEngine struct{}

// NewEspeakEngine creates an EspeakEngine.
func NewEspeakEngine() *EspeakEngine {
	return &EspeakEngine{}
}

// Speak synthesizes and plays the text synchronously.
func (e *EspeakEngine) Speak(ctx context.Context, text, languageCode string, _ models.LanguageSetting) error {
	if text == "" {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	// espeak-ng wants a bare language tag ("en"), not a locale ("en-US").
	lang := languageCode
	if i := strings.IndexByte(lang, '-'); i > 0 {
		lang = lang[:i]
	}

	ctext := C.CString(text)
	defer C.free(unsafe.Pointer(ctext))
	clang := C.CString(lang)
	defer C.free(unsafe.Pointer(clang))

	if rc := C.espeak_say(ctext, clang); rc != 0 {
		return fmt.Errorf("espeak_say failed: %d", int(rc))
	}
	return nil
}
