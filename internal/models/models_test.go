package models

import (
	"errors"
	"strings"
	"testing"
)

func TestAddUserRequestValidate(t *testing.T) {
	cases := []struct {
		name    string
		req     AddUserRequest
		wantErr error
	}{
		{"valid", AddUserRequest{Name: "Alice", LanguageCode: "en-US"}, nil},
		{"empty name", AddUserRequest{Name: "", LanguageCode: "en-US"}, ErrEmptyName},
		{"whitespace name", AddUserRequest{Name: "   ", LanguageCode: "en-US"}, ErrEmptyName},
		{"name too long", AddUserRequest{Name: strings.Repeat("a", MaxUserNameLength+1), LanguageCode: "en-US"}, ErrNameTooLong},
		{"empty language", AddUserRequest{Name: "Alice", LanguageCode: ""}, ErrEmptyLanguageCode},
		{"unsupported language", AddUserRequest{Name: "Alice", LanguageCode: "xx-XX"}, ErrUnsupportedLanguage},
	}

	for _, c := range cases {
		err := c.req.Validate()
		if c.wantErr == nil {
			if err != nil {
				t.Errorf("%s: unexpected error: %v", c.name, err)
			}
			continue
		}
		if !errors.Is(err, c.wantErr) {
			t.Errorf("%s: expected %v, got %v", c.name, c.wantErr, err)
		}
	}
}

func TestInteractionStateHasTurn(t *testing.T) {
	if (InteractionState{}).HasTurn() {
		t.Error("empty state must not report a turn")
	}
	if (InteractionState{Question: "q"}).HasTurn() {
		t.Error("a question without a response is not a complete turn")
	}
	if !(InteractionState{Question: "q", AIResponse: "a"}).HasTurn() {
		t.Error("question and response together form a turn")
	}
}

func TestResultFromState(t *testing.T) {
	result := ResultFromState(InteractionState{
		Question:   "Q",
		AIResponse: "A",
		ImagePath:  "/p.jpg",
	})
	if result.LastQuestion != "Q" || result.LastAIResponse != "A" || result.LastImagePath != "/p.jpg" {
		t.Errorf("unexpected result: %+v", result)
	}
}
