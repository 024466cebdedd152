// Package flow runs the voice interaction loop.
//
// The Controller sequences one complete conversation: capture a camera frame,
// record and transcribe the user's question, query the vision model, speak
// the answer, persist the turn, and branch on the user's follow-up choice
// (new picture, same picture, or recall of the previous interaction).
package flow

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

// Default recording windows for the initial question and the short follow-up
// answers.
const (
	DefaultQuestionDuration = 7 * time.Second
	DefaultFollowUpDuration = 4 * time.Second
)

const maxChoiceAttempts = 3

// fallbackQuestion is substituted when the question recording transcribes to
// nothing.
const fallbackQuestion = "Describe this image please."

// aiFailureResponse is spoken and persisted when the vision model call fails.
const aiFailureResponse = "I'm having trouble connecting to the AI. Please try again later."

// emptyAnswerResponse is used when the vision model returns without an answer.
const emptyAnswerResponse = "Sorry, I did not receive a response from the AI model."

// Follow-up choice keyword sets, tested in this order. First match wins.
var (
	newKeywords      = []string{"new", "another", "fresh"}
	sameKeywords     = []string{"same", "similar"}
	previousKeywords = []string{"previous", "old", "last"}
)

// Camera produces still frames from the capture device.
type Camera interface {
	Start() error
	Capture() (image.Image, error)
	Stop()
}

// Speaker speaks a text string aloud.
type Speaker interface {
	Speak(ctx context.Context, text string) error
}

// Recorder records audio from the microphone for a fixed duration.
type Recorder interface {
	Record(ctx context.Context, duration time.Duration) ([]byte, error)
}

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, pcm []byte) (string, error)
}

// VisionModel answers a question about an image.
type VisionModel interface {
	Describe(ctx context.Context, img image.Image, question string) (string, error)
}

// ImageRepo saves and reloads the captured frame.
type ImageRepo interface {
	Save(img image.Image) (string, error)
	Load(path string) (image.Image, error)
}

// InteractionStore is the slice of the persistence layer the controller needs.
type InteractionStore interface {
	SaveInteraction(state models.InteractionState) error
	LoadInteraction() (*models.InteractionState, error)
	LoadUserName() (*models.UserName, error)
}

// Controller orchestrates one conversation per Run call. The image captured
// during a run and its saved path live only for that run; multi-turn memory
// across runs goes through the persisted interaction state.
type Controller struct {
	mu sync.Mutex

	camera      Camera
	speaker     Speaker
	recorder    Recorder
	transcriber Transcriber
	vision      VisionModel
	images      ImageRepo
	store       InteractionStore

	questionDuration time.Duration
	followUpDuration time.Duration
}

// Option configures optional Controller parameters.
type Option func(*Controller)

// WithQuestionDuration overrides the recording window for the user's question.
func WithQuestionDuration(d time.Duration) Option {
	return func(c *Controller) { c.questionDuration = d }
}

// WithFollowUpDuration overrides the recording window for follow-up answers.
func WithFollowUpDuration(d time.Duration) Option {
	return func(c *Controller) { c.followUpDuration = d }
}

// NewController creates a Controller over the given collaborators.
func NewController(camera Camera, speaker Speaker, recorder Recorder, transcriber Transcriber,
	vision VisionModel, images ImageRepo, store InteractionStore, opts ...Option) *Controller {
	c := &Controller{
		camera:           camera,
		speaker:          speaker,
		recorder:         recorder,
		transcriber:      transcriber,
		vision:           vision,
		images:           images,
		store:            store,
		questionDuration: DefaultQuestionDuration,
		followUpDuration: DefaultFollowUpDuration,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes one full conversation and returns the final persisted
// interaction state. A camera-start failure is the only error returned;
// everything else is absorbed into spoken apologies or fallback values.
// The camera is stopped on every exit path. Overlapping calls are
// serialized, the microphone and camera admit one conversation at a time.
func (c *Controller) Run(ctx context.Context) (models.InteractionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	slog.Info("Controller.Run: starting interaction flow")
	if err := c.camera.Start(); err != nil {
		return models.InteractionState{}, fmt.Errorf("failed to start camera: %w", err)
	}
	defer c.camera.Stop()

	c.greet(ctx)

	var (
		currentImage image.Image
		currentPath  string
	)

loop:
	for {
		if currentImage == nil {
			c.say(ctx, "Please look at the camera for a moment. I will take the photo after 3. 1 2 3")
			img, err := c.camera.Capture()
			if err != nil {
				slog.Error("Controller.Run: capture failed", "error", err)
				c.say(ctx, "Sorry, I couldn't capture an image. Please try again.")
				break
			}
			path, err := c.images.Save(img)
			if err != nil {
				slog.Error("Controller.Run: failed to save captured image", "error", err)
				c.say(ctx, "Failed to save the captured image. Please try again.")
				break
			}
			currentImage = img
			currentPath = path
		}

		c.say(ctx, "Now, please ask your question about the image.")
		question := c.listen(ctx, c.questionDuration)
		if question == "" {
			c.say(ctx, "Sorry, I could not hear you clearly. I will describe the image generally.")
			question = fallbackQuestion
		} else {
			c.say(ctx, "You said: "+question)
		}

		answer := c.answer(ctx, currentImage, question)
		c.say(ctx, answer)

		if err := c.store.SaveInteraction(models.InteractionState{
			Question:   question,
			AIResponse: answer,
			ImagePath:  currentPath,
		}); err != nil {
			slog.Error("Controller.Run: failed to persist interaction", "error", err)
		}

		c.say(ctx, "Do you have another question or anything else you want to ask? Please say yes or no.")
		followUp := strings.ToLower(c.listen(ctx, c.followUpDuration))

		switch {
		case strings.Contains(followUp, "yes"):
			if !c.disambiguate(ctx, &currentImage, &currentPath) {
				break loop
			}
		case strings.Contains(followUp, "no"), strings.Contains(followUp, "enough"):
			c.say(ctx, "Okay, thank you. Goodbye!")
			break loop
		default:
			c.say(ctx, "I didn't understand your response. I will end the interaction now.")
			c.say(ctx, "Thank you. Goodbye!")
			break loop
		}
	}

	final, err := c.store.LoadInteraction()
	if err != nil {
		return models.InteractionState{}, fmt.Errorf("failed to load final interaction state: %w", err)
	}
	if final == nil {
		return models.InteractionState{}, nil
	}
	slog.Info("Controller.Run: interaction flow finished")
	return *final, nil
}

func (c *Controller) greet(ctx context.Context) {
	user, err := c.store.LoadUserName()
	if err != nil {
		slog.Warn("Controller.greet: failed to load user name", "error", err)
	}
	if user != nil && user.Name != "" {
		c.say(ctx, fmt.Sprintf("Hi %s! How are you doing?", user.Name))
		return
	}
	c.say(ctx, "Hi there! How can I help you?")
}

// disambiguate resolves the new/same/previous choice with a bounded number of
// attempts. It reports whether a choice was understood; on false the
// conversation ends. currentImage and currentPath are cleared when the user
// asks for a new picture or when the previous image cannot be restored.
func (c *Controller) disambiguate(ctx context.Context, currentImage *image.Image, currentPath *string) bool {
	for attempt := 0; attempt < maxChoiceAttempts; attempt++ {
		if attempt == 0 {
			c.say(ctx, `Do you want to ask about a "new picture", "same picture", or recall "previous interaction"?`)
		} else {
			c.say(ctx, fmt.Sprintf("I still didn't understand. Please say clearly: 'new', 'same', or 'previous'. (Attempt %d of %d)", attempt+1, maxChoiceAttempts))
		}

		choice := strings.ToLower(c.listen(ctx, c.followUpDuration))
		slog.Debug("Controller.disambiguate: heard choice", "text", choice, "attempt", attempt+1)

		switch {
		case containsAny(choice, newKeywords):
			*currentImage, *currentPath = nil, ""
			c.say(ctx, "Alright, let's take another picture.")
			return true
		case containsAny(choice, sameKeywords):
			c.say(ctx, "Okay, you can ask another question about the current image.")
			return true
		case containsAny(choice, previousKeywords):
			c.recallPrevious(ctx, currentImage, currentPath)
			return true
		}
	}
	c.say(ctx, "I'm sorry, I couldn't understand your choice after multiple attempts. Ending the interaction. Goodbye!")
	return false
}

// recallPrevious speaks the stored question and answer back to the user and
// tries to restore the stored image as the current one. Any failure along the
// way clears the current image so the next loop iteration captures a fresh
// frame.
func (c *Controller) recallPrevious(ctx context.Context, currentImage *image.Image, currentPath *string) {
	last, err := c.store.LoadInteraction()
	if err != nil {
		slog.Error("Controller.recallPrevious: failed to load interaction", "error", err)
	}
	if last == nil || !last.HasTurn() {
		c.say(ctx, "I don't have a previous interaction saved. Let's take a new picture.")
		*currentImage, *currentPath = nil, ""
		return
	}

	c.say(ctx, fmt.Sprintf("Your last question was: '%s', and the AI replied: '%s'.", last.Question, last.AIResponse))

	if last.ImagePath == "" || !fileExists(last.ImagePath) {
		c.say(ctx, "I found the previous interaction details, but no valid picture was saved or the file is missing. Let's take a new one.")
		*currentImage, *currentPath = nil, ""
		return
	}

	img, err := c.images.Load(last.ImagePath)
	if err != nil {
		slog.Warn("Controller.recallPrevious: failed to reload previous image", "path", last.ImagePath, "error", err)
		c.say(ctx, "I found the previous interaction details, but couldn't load the old picture. Let's take a new one.")
		*currentImage, *currentPath = nil, ""
		return
	}

	*currentImage, *currentPath = img, last.ImagePath
	c.say(ctx, "I've reloaded the picture from our previous interaction. You can ask me about it now.")
}

// answer queries the vision model. Failures never surface to the user as
// errors, they become a fixed apology the turn is persisted with.
func (c *Controller) answer(ctx context.Context, img image.Image, question string) string {
	resp, err := c.vision.Describe(ctx, img, question)
	if err != nil {
		slog.Error("Controller.answer: vision query failed", "error", err)
		return aiFailureResponse
	}
	if resp == "" {
		return emptyAnswerResponse
	}
	return resp
}

// listen records for the given duration and transcribes. Recording or
// transcription failures are logged and come back as an empty transcription.
func (c *Controller) listen(ctx context.Context, duration time.Duration) string {
	pcm, err := c.recorder.Record(ctx, duration)
	if err != nil {
		slog.Warn("Controller.listen: recording failed", "error", err)
		return ""
	}
	text, err := c.transcriber.Transcribe(ctx, pcm)
	if err != nil {
		slog.Warn("Controller.listen: transcription failed", "error", err)
		return ""
	}
	return text
}

func (c *Controller) say(ctx context.Context, text string) {
	if err := c.speaker.Speak(ctx, text); err != nil {
		slog.Warn("Controller.say: speech output failed", "error", err)
	}
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
