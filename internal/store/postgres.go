// Package store provides storage backends for AgentForm.
//
// This file implements a PostgreSQL-backed store for submissions and receipts.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "embed"

	"github.com/BTreeMap/AgentForm/internal/models"
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
		db.Close()
		return nil, err
	}
	slog.Debug("Postgres ping successful")
	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run migrations", "error", err)
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) AddSubmission(sub models.Submission) error {
	answers, err := encodeAnswers(sub.Answers)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO submissions (id, questionnaire, answers_json, generated_prompt, created_at) VALUES ($1, $2, $3, $4, $5)`,
		sub.ID, sub.Questionnaire, answers, nilIfEmpty(sub.GeneratedPrompt), sub.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore AddSubmission failed", "error", err, "id", sub.ID)
		return fmt.Errorf("failed to insert submission %s: %w", sub.ID, err)
	}
	slog.Debug("PostgresStore AddSubmission succeeded", "id", sub.ID, "questionnaire", sub.Questionnaire)
	return nil
}

func (s *PostgresStore) GetSubmission(id string) (models.Submission, error) {
	row := s.db.QueryRow(`SELECT `+submissionColumns+` FROM submissions WHERE id = $1`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Submission{}, fmt.Errorf("submission %q: %w", id, models.ErrNotFound)
	}
	if err != nil {
		slog.Error("PostgresStore GetSubmission failed", "error", err, "id", id)
		return models.Submission{}, fmt.Errorf("failed to load submission %s: %w", id, err)
	}
	return sub, nil
}

func (s *PostgresStore) GetSubmissions() ([]models.Submission, error) {
	rows, err := s.db.Query(`SELECT ` + submissionColumns + ` FROM submissions ORDER BY seq`)
	if err != nil {
		slog.Error("PostgresStore GetSubmissions query failed", "error", err)
		return nil, fmt.Errorf("failed to query submissions: %w", err)
	}
	subs, err := collectSubmissions(rows)
	if err != nil {
		slog.Error("PostgresStore GetSubmissions failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore GetSubmissions succeeded", "count", len(subs))
	return subs, nil
}

func (s *PostgresStore) AddReceipt(r models.GenerationReceipt) error {
	_, err := s.db.Exec(`INSERT INTO generation_receipts (id, framework, agent_name, status, fragments, bytes, started_at, finished_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.ID, r.Framework, r.AgentName, string(r.Status), r.Fragments, r.Bytes, r.StartedAt, r.FinishedAt)
	if err != nil {
		slog.Error("PostgresStore AddReceipt failed", "error", err, "id", r.ID)
		return fmt.Errorf("failed to insert receipt %s: %w", r.ID, err)
	}
	slog.Debug("PostgresStore AddReceipt succeeded", "id", r.ID, "status", r.Status)
	return nil
}

func (s *PostgresStore) GetReceipts() ([]models.GenerationReceipt, error) {
	rows, err := s.db.Query(`SELECT ` + receiptColumns + ` FROM generation_receipts ORDER BY seq`)
	if err != nil {
		slog.Error("PostgresStore GetReceipts query failed", "error", err)
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	receipts, err := collectReceipts(rows)
	if err != nil {
		slog.Error("PostgresStore GetReceipts failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore GetReceipts succeeded", "count", len(receipts))
	return receipts, nil
}

// Close closes the Postgres connection pool.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
