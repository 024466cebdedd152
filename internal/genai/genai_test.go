package genai

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type fakeChat struct {
	params openai.ChatCompletionNewParams
	resp   *openai.ChatCompletion
	err    error
}

func (f *fakeChat) New(_ context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.params = params
	return f.resp, f.err
}

func testImage() image.Image {
	return image.NewRGBA(image.Rect(0, 0, 4, 4))
}

func TestDescribeReturnsAnswer(t *testing.T) {
	fake := &fakeChat{resp: &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: "  A red ball on grass.  "}},
		},
	}}
	c := &Client{chat: fake}

	answer, err := c.Describe(context.Background(), testImage(), "What is this?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if answer != "A red ball on grass." {
		t.Errorf("expected trimmed answer, got %q", answer)
	}
	if len(fake.params.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(fake.params.Messages))
	}
}

func TestDescribePropagatesError(t *testing.T) {
	fake := &fakeChat{err: errors.New("rate limited")}
	c := &Client{chat: fake}

	if _, err := c.Describe(context.Background(), testImage(), "What is this?"); err == nil {
		t.Error("expected error, got nil")
	} else if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected wrapped cause, got %v", err)
	}
}

func TestDescribeNoChoices(t *testing.T) {
	fake := &fakeChat{resp: &openai.ChatCompletion{}}
	c := &Client{chat: fake}

	if _, err := c.Describe(context.Background(), testImage(), "What is this?"); err == nil {
		t.Error("expected error for empty choice list, got nil")
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := NewClient(); err == nil {
		t.Error("expected error without API key, got nil")
	}
}
