package flow

import (
	"context"
	"errors"
	"image"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/BTreeMap/EchoGuide/internal/models"
	"github.com/BTreeMap/EchoGuide/internal/store"
)

type fakeCamera struct {
	startErr   error
	captureErr error
	starts     int
	stops      int
	captures   int
}

func (f *fakeCamera) Start() error {
	f.starts++
	return f.startErr
}

func (f *fakeCamera) Capture() (image.Image, error) {
	f.captures++
	if f.captureErr != nil {
		return nil, f.captureErr
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

func (f *fakeCamera) Stop() { f.stops++ }

type fakeSpeaker struct {
	lines []string
}

func (f *fakeSpeaker) Speak(_ context.Context, text string) error {
	f.lines = append(f.lines, text)
	return nil
}

func (f *fakeSpeaker) saidContaining(sub string) bool {
	for _, l := range f.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

type fakeRecorder struct {
	calls int
}

func (f *fakeRecorder) Record(_ context.Context, _ time.Duration) ([]byte, error) {
	f.calls++
	return []byte{0, 0}, nil
}

// scriptTranscriber replays a fixed sequence of transcriptions, one per
// recording. Past the end it transcribes silence.
type scriptTranscriber struct {
	script []string
	next   int
}

func (s *scriptTranscriber) Transcribe(_ context.Context, _ []byte) (string, error) {
	if s.next >= len(s.script) {
		return "", nil
	}
	t := s.script[s.next]
	s.next++
	return t, nil
}

type fakeVision struct {
	answer    string
	err       error
	questions []string
}

func (f *fakeVision) Describe(_ context.Context, _ image.Image, question string) (string, error) {
	f.questions = append(f.questions, question)
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

// fakeImages writes a real file on Save so the controller's existence check
// for previous-image recall sees it. With skipWrite set it still reports a
// path but leaves no file behind.
type fakeImages struct {
	dir       string
	saveErr   error
	skipWrite bool
	saves     int
}

func (f *fakeImages) Save(_ image.Image) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	f.saves++
	path := filepath.Join(f.dir, "last_capture.jpg")
	if f.skipWrite {
		return path, nil
	}
	if err := os.WriteFile(path, []byte("jpeg"), 0644); err != nil {
		return "", err
	}
	return path, nil
}

func (f *fakeImages) Load(path string) (image.Image, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return image.NewRGBA(image.Rect(0, 0, 2, 2)), nil
}

type testRig struct {
	controller *Controller
	camera     *fakeCamera
	speaker    *fakeSpeaker
	recorder   *fakeRecorder
	vision     *fakeVision
	images     *fakeImages
	store      *store.InMemoryStore
}

func newTestRig(t *testing.T, script ...string) *testRig {
	t.Helper()
	rig := &testRig{
		camera:   &fakeCamera{},
		speaker:  &fakeSpeaker{},
		recorder: &fakeRecorder{},
		vision:   &fakeVision{answer: "It is a red ball."},
		images:   &fakeImages{dir: t.TempDir()},
		store:    store.NewInMemoryStore(),
	}
	rig.controller = NewController(rig.camera, rig.speaker, rig.recorder,
		&scriptTranscriber{script: script}, rig.vision, rig.images, rig.store)
	return rig
}

func TestFollowUpNoEndsWithGoodbye(t *testing.T) {
	rig := newTestRig(t, "what is this", "no thanks")

	result, err := rig.controller.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rig.speaker.saidContaining("Okay, thank you. Goodbye!") {
		t.Error("expected goodbye to be spoken")
	}
	if result.Question != "what is this" {
		t.Errorf("expected final state to hold the question, got %q", result.Question)
	}
	if result.AIResponse != "It is a red ball." {
		t.Errorf("expected final state to hold the answer, got %q", result.AIResponse)
	}
	if rig.camera.stops != 1 {
		t.Errorf("expected camera stopped exactly once, got %d", rig.camera.stops)
	}
}

func TestFollowUpEnoughEndsWithGoodbye(t *testing.T) {
	rig := newTestRig(t, "what is this", "that is enough")

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rig.speaker.saidContaining("Okay, thank you. Goodbye!") {
		t.Error("expected goodbye to be spoken")
	}
}

func TestFollowUpUnclearEndsGracefully(t *testing.T) {
	rig := newTestRig(t, "what is this", "banana")

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rig.speaker.saidContaining("I didn't understand your response") {
		t.Error("expected the not-understood notice to be spoken")
	}
}

func TestNewChoiceTriggersFreshCapture(t *testing.T) {
	// "brand new feeling" matches the "new" keyword by substring.
	rig := newTestRig(t, "what is this", "yes", "brand new feeling", "and now", "no")

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rig.camera.captures != 2 {
		t.Errorf("expected a second capture after the new-picture choice, got %d", rig.camera.captures)
	}
	if rig.images.saves != 2 {
		t.Errorf("expected the fresh frame to be saved, got %d saves", rig.images.saves)
	}
}

func TestSameChoiceKeepsImage(t *testing.T) {
	rig := newTestRig(t, "what is this", "yes", "the same one", "anything else", "no")

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rig.camera.captures != 1 {
		t.Errorf("expected no recapture for the same-picture choice, got %d captures", rig.camera.captures)
	}
	if len(rig.vision.questions) != 2 {
		t.Errorf("expected two question turns, got %d", len(rig.vision.questions))
	}
}

func TestChoiceAttemptsExhausted(t *testing.T) {
	rig := newTestRig(t, "what is this", "yes", "blah", "blah", "blah")

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// One question recording, one follow-up, then exactly three choice
	// attempts. Nothing is recorded after the final failed attempt.
	if rig.recorder.calls != 5 {
		t.Errorf("expected 5 recordings, got %d", rig.recorder.calls)
	}
	last := rig.speaker.lines[len(rig.speaker.lines)-1]
	if !strings.Contains(last, "couldn't understand your choice after multiple attempts") {
		t.Errorf("expected the final apology last, got %q", last)
	}
}

func TestEmptyTranscriptionUsesFallbackQuestion(t *testing.T) {
	rig := newTestRig(t, "", "no")

	result, err := rig.controller.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rig.vision.questions) != 1 || rig.vision.questions[0] != "Describe this image please." {
		t.Errorf("expected the literal fallback question sent to the model, got %v", rig.vision.questions)
	}
	if result.Question != "Describe this image please." {
		t.Errorf("expected the fallback question persisted, got %q", result.Question)
	}
	if !rig.speaker.saidContaining("could not hear you clearly") {
		t.Error("expected the silence notice to be spoken")
	}
}

func TestVisionFailurePersistsApology(t *testing.T) {
	rig := newTestRig(t, "what is this", "no")
	rig.vision.err = errors.New("connection refused")

	result, err := rig.controller.Run(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.AIResponse != aiFailureResponse {
		t.Errorf("expected the fixed apology persisted, got %q", result.AIResponse)
	}
	if strings.Contains(result.AIResponse, "connection refused") {
		t.Error("raw error text must never reach the persisted response")
	}
}

func TestPreviousRecallMissingFileForcesNewCapture(t *testing.T) {
	rig := newTestRig(t, "first question", "yes", "the previous one", "second question", "no")
	// The saved path never materializes on disk, so the recall sees the
	// persisted turn but finds its image file gone.
	rig.images.skipWrite = true

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rig.speaker.saidContaining("the file is missing") {
		t.Error("expected the missing-file notice to be spoken")
	}
	if rig.camera.captures != 2 {
		t.Errorf("expected a fresh capture after the missing file, got %d", rig.camera.captures)
	}
}

func TestPreviousRecallRestoresStoredImage(t *testing.T) {
	rig := newTestRig(t, "first question", "yes", "previous", "", "no")

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rig.speaker.saidContaining("reloaded the picture") {
		t.Error("expected the reload confirmation to be spoken")
	}
	// The restored image is reused, never recaptured.
	if rig.camera.captures != 1 {
		t.Errorf("expected a single capture, got %d", rig.camera.captures)
	}
}

func TestPreviousRecallIsIdempotent(t *testing.T) {
	rig := newTestRig(t)
	if err := rig.store.SaveInteraction(models.InteractionState{
		Question:   "old question",
		AIResponse: "old answer",
	}); err != nil {
		t.Fatalf("failed to seed interaction: %v", err)
	}

	var img image.Image
	var path string
	rig.controller.recallPrevious(context.Background(), &img, &path)
	first := rig.speaker.lines[0]
	rig.speaker.lines = nil
	rig.controller.recallPrevious(context.Background(), &img, &path)
	second := rig.speaker.lines[0]

	if first != second {
		t.Errorf("expected identical recall both times, got %q then %q", first, second)
	}
	if !strings.Contains(first, "old question") || !strings.Contains(first, "old answer") {
		t.Errorf("expected the stored turn spoken back, got %q", first)
	}
}

func TestPreviousRecallNothingSaved(t *testing.T) {
	rig := newTestRig(t)

	var img image.Image
	var path string
	rig.controller.recallPrevious(context.Background(), &img, &path)

	if !rig.speaker.saidContaining("don't have a previous interaction saved") {
		t.Error("expected the nothing-saved notice to be spoken")
	}
	if img != nil || path != "" {
		t.Error("expected the current image and path to stay empty")
	}
}

func TestCameraStartFailureIsFatal(t *testing.T) {
	rig := newTestRig(t)
	rig.camera.startErr = errors.New("device busy")

	if _, err := rig.controller.Run(context.Background()); err == nil {
		t.Fatal("expected error on camera start failure, got nil")
	}
	if len(rig.speaker.lines) != 0 {
		t.Error("expected no speech before the camera failure surfaced")
	}
}

func TestCaptureFailureEndsGracefully(t *testing.T) {
	rig := newTestRig(t)
	rig.camera.captureErr = errors.New("no frame")

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("expected capture failure to be absorbed, got %v", err)
	}
	if !rig.speaker.saidContaining("couldn't capture an image") {
		t.Error("expected the capture apology to be spoken")
	}
	if rig.camera.stops != 1 {
		t.Errorf("expected camera stopped on exit, got %d stops", rig.camera.stops)
	}
}

func TestSaveFailureEndsGracefully(t *testing.T) {
	rig := newTestRig(t)
	rig.images.saveErr = errors.New("disk full")

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("expected save failure to be absorbed, got %v", err)
	}
	if !rig.speaker.saidContaining("Failed to save the captured image") {
		t.Error("expected the save apology to be spoken")
	}
}

func TestGreetingUsesStoredName(t *testing.T) {
	rig := newTestRig(t)
	rig.camera.captureErr = errors.New("no frame") // end quickly after the greeting
	if err := rig.store.SaveUserName("Alice"); err != nil {
		t.Fatalf("failed to seed name: %v", err)
	}

	if _, err := rig.controller.Run(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rig.speaker.saidContaining("Hi Alice!") {
		t.Errorf("expected greeting by name, spoken lines: %v", rig.speaker.lines)
	}
}
