// Package store provides storage backends for EchoGuide.
//
// This file implements the SQLite-backed store, the default backend when the
// DSN is a plain file path.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	_ "embed"

	"github.com/BTreeMap/EchoGuide/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// DefaultDirPermissions defines the default permissions for database directories
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore persists the three single-row state tables in a SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given DSN.
// The DSN should be a file path to the SQLite database file.
// If the directory doesn't exist, it will be created.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(dsn)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running SQLite migrations")
	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveInteraction stores or overwrites the single last-interaction row.
func (s *SQLiteStore) SaveInteraction(state models.InteractionState) error {
	ts := state.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO last_interaction_state (id, last_question, last_ai_response, last_image_path, timestamp)
		VALUES (1, ?, ?, ?, ?)`,
		nilIfEmpty(state.Question), nilIfEmpty(state.AIResponse), nilIfEmpty(state.ImagePath), ts)
	if err != nil {
		slog.Error("SQLiteStore SaveInteraction failed", "error", err)
		return fmt.Errorf("failed to save interaction state: %w", err)
	}
	slog.Debug("SQLiteStore SaveInteraction succeeded")
	return nil
}

// LoadInteraction retrieves the last-interaction row, or (nil, nil) when absent.
func (s *SQLiteStore) LoadInteraction() (*models.InteractionState, error) {
	row := s.db.QueryRow(`SELECT last_question, last_ai_response, last_image_path, timestamp FROM last_interaction_state WHERE id = 1`)
	state, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore LoadInteraction not found")
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LoadInteraction failed", "error", err)
		return nil, fmt.Errorf("failed to load interaction state: %w", err)
	}
	slog.Debug("SQLiteStore LoadInteraction succeeded")
	return state, nil
}

// SaveLanguage stores or overwrites the single language row.
func (s *SQLiteStore) SaveLanguage(language string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO language (id, language, timestamp) VALUES (1, ?, ?)`,
		nilIfEmpty(language), time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveLanguage failed", "error", err)
		return fmt.Errorf("failed to save language: %w", err)
	}
	slog.Debug("SQLiteStore SaveLanguage succeeded", "language", language)
	return nil
}

// LoadLanguage retrieves the language row, or (nil, nil) when absent.
func (s *SQLiteStore) LoadLanguage() (*models.LanguagePreference, error) {
	row := s.db.QueryRow(`SELECT language, timestamp FROM language WHERE id = 1`)
	pref, err := scanLanguage(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore LoadLanguage not found")
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LoadLanguage failed", "error", err)
		return nil, fmt.Errorf("failed to load language: %w", err)
	}
	return pref, nil
}

// SaveUserName stores or overwrites the single name row.
func (s *SQLiteStore) SaveUserName(name string) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO name (id, name, timestamp) VALUES (1, ?, ?)`,
		nilIfEmpty(name), time.Now())
	if err != nil {
		slog.Error("SQLiteStore SaveUserName failed", "error", err)
		return fmt.Errorf("failed to save user name: %w", err)
	}
	slog.Debug("SQLiteStore SaveUserName succeeded")
	return nil
}

// LoadUserName retrieves the name row, or (nil, nil) when absent.
func (s *SQLiteStore) LoadUserName() (*models.UserName, error) {
	row := s.db.QueryRow(`SELECT name, timestamp FROM name WHERE id = 1`)
	un, err := scanUserName(row)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore LoadUserName not found")
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore LoadUserName failed", "error", err)
		return nil, fmt.Errorf("failed to load user name: %w", err)
	}
	return un, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	err := s.db.Close()
	if err != nil {
		slog.Error("Failed to close SQLite database", "error", err)
	}
	return err
}
