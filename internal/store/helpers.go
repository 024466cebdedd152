package store

import (
	"database/sql"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

// nilIfEmpty returns nil if s is empty, otherwise returns s.
// Used for nullable database columns.
func nilIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// scanInteraction scans an InteractionState from a single sql.Row.
func scanInteraction(row *sql.Row) (*models.InteractionState, error) {
	var question, response, imagePath sql.NullString
	var state models.InteractionState
	if err := row.Scan(&question, &response, &imagePath, &state.Timestamp); err != nil {
		return nil, err
	}
	state.Question = question.String
	state.AIResponse = response.String
	state.ImagePath = imagePath.String
	return &state, nil
}

// scanLanguage scans a LanguagePreference from a single sql.Row.
func scanLanguage(row *sql.Row) (*models.LanguagePreference, error) {
	var language sql.NullString
	var pref models.LanguagePreference
	if err := row.Scan(&language, &pref.Timestamp); err != nil {
		return nil, err
	}
	pref.Language = language.String
	return &pref, nil
}

// scanUserName scans a UserName from a single sql.Row.
func scanUserName(row *sql.Row) (*models.UserName, error) {
	var name sql.NullString
	var un models.UserName
	if err := row.Scan(&name, &un.Timestamp); err != nil {
		return nil, err
	}
	un.Name = name.String
	return &un, nil
}
