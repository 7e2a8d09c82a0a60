// Package store provides storage backends for AgentForm.
//
// This file implements an SQLite-backed store for submissions and receipts.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	"github.com/BTreeMap/AgentForm/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// Constants for SQLite store configuration
const (
	// DefaultDirPermissions defines the default permissions for database directories
	DefaultDirPermissions = 0755
)

//go:embed migrations_sqlite.sql
var sqliteMigrations string

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
	slog.Debug("SQLite database directory verified/created", "dir", dir)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}

	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		db.Close()
		return nil, err
	}
	slog.Debug("SQLite ping successful")

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) AddSubmission(sub models.Submission) error {
	answers, err := encodeAnswers(sub.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO submissions (id, questionnaire, answers_json, generated_prompt, created_at) VALUES (?, ?, ?, ?, ?)`,
		sub.ID, sub.Questionnaire, answers, nilIfEmpty(sub.GeneratedPrompt), sub.CreatedAt.UTC())
	if err != nil {
		slog.Error("SQLiteStore AddSubmission failed", "error", err, "id", sub.ID)
		return fmt.Errorf("failed to insert submission %s: %w", sub.ID, err)
	}
	slog.Debug("SQLiteStore AddSubmission succeeded", "id", sub.ID, "questionnaire", sub.Questionnaire, "answers", len(sub.Answers))
	return nil
}

func (s *SQLiteStore) GetSubmission(id string) (models.Submission, error) {
	row := s.db.QueryRow(`SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Submission{}, fmt.Errorf("submission %q: %w", id, models.ErrNotFound)
	}
	if err != nil {
		slog.Error("SQLiteStore GetSubmission failed", "error", err, "id", id)
		return models.Submission{}, fmt.Errorf("failed to load submission %s: %w", id, err)
	}
	return sub, nil
}

func (s *SQLiteStore) GetSubmissions() ([]models.Submission, error) {
	rows, err := s.db.Query(`SELECT ` + submissionColumns + ` FROM submissions ORDER BY seq`)
	if err != nil {
		slog.Error("SQLiteStore GetSubmissions query failed", "error", err)
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	subs, err := collectSubmissions(rows)
	if err != nil {
		slog.Error("SQLiteStore GetSubmissions failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore GetSubmissions succeeded", "count", len(subs))
	return subs, nil
}

func (s *SQLiteStore) AddReceipt(r models.GenerationReceipt) error {
	_, err := s.db.Exec(`INSERT INTO generation_receipts (id, framework, agent_name, status, fragments, bytes, started_at, finished_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Framework, r.AgentName, string(r.Status), r.Fragments, r.Bytes, r.StartedAt.UTC(), r.FinishedAt.UTC())
	if err != nil {
		slog.Error("SQLiteStore AddReceipt failed", "error", err, "id", r.ID)
		return fmt.Errorf("failed to insert receipt %s: %w", r.ID, err)
	}
	slog.Debug("SQLiteStore AddReceipt succeeded", "id", r.ID, "status", r.Status)
	return nil
}

func (s *SQLiteStore) GetReceipts() ([]models.GenerationReceipt, error) {
	rows, err := s.db.Query(`SELECT ` + receiptColumns + ` FROM generation_receipts ORDER BY seq`)
	if err != nil {
		slog.Error("SQLiteStore GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	receipts, err := collectReceipts(rows)
	if err != nil {
		slog.Error("SQLiteStore GetReceipts failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore GetReceipts succeeded", "count", len(receipts))
	return receipts, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}
