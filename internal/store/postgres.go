// Package store provides storage backends for EchoGuide.
//
// This file implements the PostgreSQL-backed store, selected when the DSN
// looks like a PostgreSQL connection string.
package store

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/EchoGuide/internal/models"
	_ "github.com/lib/pq"
)

// Database connection pool configuration constants
const (
	// DefaultMaxOpenConns is the default maximum number of open connections to the database
	DefaultMaxOpenConns = 25
	// DefaultMaxIdleConns is the default maximum number of idle connections in the pool
	DefaultMaxIdleConns = 25
	// DefaultConnMaxLifetime is the default maximum amount of time a connection may be reused
	DefaultConnMaxLifetime = 5 * time.Minute
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore persists the three single-row state tables in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store based on provided options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("PostgresStore.NewPostgresStore: creating Postgres store", "DSN_set", cfg.DSN != "")

	dsn := cfg.DSN
	if dsn == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}

	db.SetMaxOpenConns(DefaultMaxOpenConns)
	db.SetMaxIdleConns(DefaultMaxIdleConns)
	db.SetConnMaxLifetime(DefaultConnMaxLifetime)

	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	slog.Debug("Running Postgres migrations")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// SaveInteraction stores or overwrites the single last-interaction row.
func (s *PostgresStore) SaveInteraction(state models.InteractionState) error {
	ts := state.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	_, err := s.db.Exec(`
		INSERT INTO last_interaction_state (id, last_question, last_ai_response, last_image_path, timestamp)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			last_question = EXCLUDED.last_question,
			last_ai_response = EXCLUDED.last_ai_response,
			last_image_path = EXCLUDED.last_image_path,
			timestamp = EXCLUDED.timestamp`,
		nilIfEmpty(state.Question), nilIfEmpty(state.AIResponse), nilIfEmpty(state.ImagePath), ts)
	if err != nil {
		slog.Error("PostgresStore SaveInteraction failed", "error", err)
		return fmt.Errorf("failed to save interaction state: %w", err)
	}
	slog.Debug("PostgresStore SaveInteraction succeeded")
	return nil
}

// LoadInteraction retrieves the last-interaction row, or (nil, nil) when absent.
func (s *PostgresStore) LoadInteraction() (*models.InteractionState, error) {
	row := s.db.QueryRow(`SELECT last_question, last_ai_response, last_image_path, timestamp FROM last_interaction_state WHERE id = 1`)
	state, err := scanInteraction(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore LoadInteraction not found")
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadInteraction failed", "error", err)
		return nil, fmt.Errorf("failed to load interaction state: %w", err)
	}
	return state, nil
}

// SaveLanguage stores or overwrites the single language row.
func (s *PostgresStore) SaveLanguage(language string) error {
	_, err := s.db.Exec(`
		INSERT INTO language (id, language, timestamp) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET language = EXCLUDED.language, timestamp = EXCLUDED.timestamp`,
		nilIfEmpty(language), time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveLanguage failed", "error", err)
		return fmt.Errorf("failed to save language: %w", err)
	}
	slog.Debug("PostgresStore SaveLanguage succeeded", "language", language)
	return nil
}

// LoadLanguage retrieves the language row, or (nil, nil) when absent.
func (s *PostgresStore) LoadLanguage() (*models.LanguagePreference, error) {
	row := s.db.QueryRow(`SELECT language, timestamp FROM language WHERE id = 1`)
	pref, err := scanLanguage(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore LoadLanguage not found")
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadLanguage failed", "error", err)
		return nil, fmt.Errorf("failed to load language: %w", err)
	}
	return pref, nil
}

// SaveUserName stores or overwrites the single name row.
func (s *PostgresStore) SaveUserName(name string) error {
	_, err := s.db.Exec(`
		INSERT INTO name (id, name, timestamp) VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, timestamp = EXCLUDED.timestamp`,
		nilIfEmpty(name), time.Now())
	if err != nil {
		slog.Error("PostgresStore SaveUserName failed", "error", err)
		return fmt.Errorf("failed to save user name: %w", err)
	}
	slog.Debug("PostgresStore SaveUserName succeeded")
	return nil
}

// LoadUserName retrieves the name row, or (nil, nil) when absent.
func (s *PostgresStore) LoadUserName() (*models.UserName, error) {
	row := s.db.QueryRow(`SELECT name, timestamp FROM name WHERE id = 1`)
	un, err := scanUserName(row)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore LoadUserName not found")
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore LoadUserName failed", "error", err)
		return nil, fmt.Errorf("failed to load user name: %w", err)
	}
	return un, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
