// Package store provides storage backends for EchoGuide.
//
// The application persists three independent single-row records (the last
// interaction, the language preference, and the user name), each keyed by a
// constant primary key of 1. Backends: in-memory, SQLite, and PostgreSQL.
package store

import (
	"strings"
	"sync"
	"time"

	"github.com/BTreeMap/EchoGuide/internal/models"
)

// Store is the persistence interface consumed by the rest of the application.
// Load methods return (nil, nil) when the record has not been set yet;
// absence is a first-class value, not an error.
type Store interface {
	SaveInteraction(state models.InteractionState) error
	LoadInteraction() (*models.InteractionState, error)
	SaveLanguage(language string) error
	LoadLanguage() (*models.LanguagePreference, error)
	SaveUserName(name string) error
	LoadUserName() (*models.UserName, error)
	Close() error
}

// Opts holds configuration options for store backends.
type Opts struct {
	DSN string // database connection string
}

// Option defines a configuration option for a store backend.
type Option func(*Opts)

// WithDSN sets the database connection string.
func WithDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType reports "postgres" for PostgreSQL-style DSNs and "sqlite"
// otherwise (a plain file path is treated as a SQLite database file).
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") || strings.Contains(dsn, "host=") {
		return "postgres"
	}
	return "sqlite"
}

// InMemoryStore is a simple in-memory store used in tests and ephemeral runs.
type InMemoryStore struct {
	mu          sync.Mutex
	interaction *models.InteractionState
	language    *models.LanguagePreference
	userName    *models.UserName
}

// NewInMemoryStore creates an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

// SaveInteraction overwrites the single interaction record.
func (s *InMemoryStore) SaveInteraction(state models.InteractionState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if state.Timestamp.IsZero() {
		state.Timestamp = time.Now()
	}
	s.interaction = &state
	return nil
}

// LoadInteraction returns the stored interaction, or (nil, nil) if unset.
func (s *InMemoryStore) LoadInteraction() (*models.InteractionState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.interaction == nil {
		return nil, nil
	}
	cp := *s.interaction
	return &cp, nil
}

// SaveLanguage overwrites the single language record.
func (s *InMemoryStore) SaveLanguage(language string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.language = &models.LanguagePreference{Language: language, Timestamp: time.Now()}
	return nil
}

// LoadLanguage returns the stored language, or (nil, nil) if unset.
func (s *InMemoryStore) LoadLanguage() (*models.LanguagePreference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.language == nil {
		return nil, nil
	}
	cp := *s.language
	return &cp, nil
}

// SaveUserName overwrites the single name record.
func (s *InMemoryStore) SaveUserName(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userName = &models.UserName{Name: name, Timestamp: time.Now()}
	return nil
}

// LoadUserName returns the stored name, or (nil, nil) if unset.
func (s *InMemoryStore) LoadUserName() (*models.UserName, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.userName == nil {
		return nil, nil
	}
	cp := *s.userName
	return &cp, nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
