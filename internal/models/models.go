// Package models defines the core data structures for EchoGuide.
//
// It includes the persisted single-row state records (last interaction,
// language preference, user name) and the JSON shapes exchanged over the API,
// which are shared across modules.
package models

import (
	"errors"
	"strings"
	"time"
)

// Validation constants for input validation
const (
	// MaxUserNameLength defines the maximum allowed length for a stored user name
	MaxUserNameLength = 100
)

// Error variables for better error handling and testability
var (
	ErrEmptyName           = errors.New("name cannot be empty")
	ErrNameTooLong         = errors.New("name exceeds maximum length")
	ErrEmptyLanguageCode   = errors.New("language_code cannot be empty")
	ErrUnsupportedLanguage = errors.New("unsupported language code")
)

// InteractionState holds the most recent completed question/answer turn.
// Exactly one logical instance exists; it is overwritten in place after each
// successful turn and read back for "previous interaction" recall.
type InteractionState struct {
	Question   string    `json:"question"`
	AIResponse string    `json:"ai_response"`
	ImagePath  string    `json:"image_path"`
	Timestamp  time.Time `json:"timestamp"`
}

// HasTurn reports whether the state contains a complete recorded turn.
func (s InteractionState) HasTurn() bool {
	return s.Question != "" && s.AIResponse != ""
}

// LanguagePreference is the user's selected interaction language.
type LanguagePreference struct {
	Language  string    `json:"language"`
	Timestamp time.Time `json:"timestamp"`
}

// UserName is the stored name used for greeting the user.
type UserName struct {
	Name      string    `json:"name"`
	Timestamp time.Time `json:"timestamp"`
}

// InteractionResult is the JSON body returned by POST /start_interaction.
type InteractionResult struct {
	LastQuestion   string `json:"last_question"`
	LastAIResponse string `json:"last_ai_response"`
	LastImagePath  string `json:"last_image_path"`
}

// ResultFromState converts a persisted interaction state into the API shape.
func ResultFromState(s InteractionState) InteractionResult {
	return InteractionResult{
		LastQuestion:   s.Question,
		LastAIResponse: s.AIResponse,
		LastImagePath:  s.ImagePath,
	}
}

// ErrorResponse is the JSON body returned on request failures.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Error constructs an ErrorResponse with the given message.
func Error(msg string) ErrorResponse {
	return ErrorResponse{Error: msg}
}

// StatusResponse is the JSON body returned by GET /.
type StatusResponse struct {
	Registered bool   `json:"registered"`
	Name       string `json:"name,omitempty"`
}

// AddUserRequest is the JSON body accepted by POST /add_user.
type AddUserRequest struct {
	Name         string `json:"name"`
	LanguageCode string `json:"language_code"`
}

// Validate checks the add-user request fields.
func (r AddUserRequest) Validate() error {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > MaxUserNameLength {
		return ErrNameTooLong
	}
	if strings.TrimSpace(r.LanguageCode) == "" {
		return ErrEmptyLanguageCode
	}
	if !IsValidLanguageCode(r.LanguageCode) {
		return ErrUnsupportedLanguage
	}
	return nil
}
