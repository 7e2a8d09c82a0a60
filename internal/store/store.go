// Package store provides storage backends for AgentForm.
//
// It keeps completed questionnaire submissions and generation receipts in
// memory, in SQLite or in PostgreSQL. Question-flow sessions themselves are
// never persisted.
package store

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/BTreeMap/AgentForm/internal/models"
)

// Store is implemented by every backend.
type Store interface {
	AddSubmission(s models.Submission) error
	GetSubmission(id string) (models.Submission, error)
	GetSubmissions() ([]models.Submission, error)
	AddReceipt(r models.GenerationReceipt) error
	GetReceipts() ([]models.GenerationReceipt, error)
	Close() error
}

// Opts holds store configuration.
type Opts struct {
	DSN string
}

// Option configures a store.
type Option func(*Opts)

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType returns the database/sql driver name for a DSN: "postgres" for
// URLs and key=value connection strings, "sqlite3" for anything else.
func DetectDSNType(dsn string) string {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return "postgres"
	}
	if strings.Contains(dsn, "host=") || strings.Contains(dsn, "user=") || strings.Contains(dsn, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// Open picks a backend from the configured DSN. An empty DSN yields an
// in-memory store.
func Open(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Debug("store.Open: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	switch DetectDSNType(cfg.DSN) {
	case "postgres":
		slog.Debug("store.Open: using PostgreSQL store")
		return NewPostgresStore(WithPostgresDSN(cfg.DSN))
	case "sqlite3":
		slog.Debug("store.Open: using SQLite store", "path", cfg.DSN)
		return NewSQLiteStore(WithSQLiteDSN(cfg.DSN))
	default:
		return nil, fmt.Errorf("unsupported DSN type for %q", cfg.DSN)
	}
}

// InMemoryStore is a simple in-memory store, safe for concurrent use.
type InMemoryStore struct {
	mu          sync.RWMutex
	submissions []models.Submission
	receipts    []models.GenerationReceipt
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) AddSubmission(sub models.Submission) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.Answers = slices.Clone(sub.Answers)
	s.submissions = append(s.submissions, sub)
	return nil
}

func (s *InMemoryStore) GetSubmission(id string) (models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sub := range s.submissions {
		if sub.ID == id {
			sub.Answers = slices.Clone(sub.Answers)
			return sub, nil
		}
	}
	return models.Submission{}, fmt.Errorf("submission %q: %w", id, models.ErrNotFound)
}

func (s *InMemoryStore) GetSubmissions() ([]models.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Submission, len(s.submissions))
	for i, sub := range s.submissions {
		sub.Answers = slices.Clone(sub.Answers)
		out[i] = sub
	}
	return out, nil
}

func (s *InMemoryStore) AddReceipt(r models.GenerationReceipt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.receipts = append(s.receipts, r)
	return nil
}

func (s *InMemoryStore) GetReceipts() ([]models.GenerationReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.receipts), nil
}

// Close is a no-op for the in-memory store.
func (s *InMemoryStore) Close() error {
	return nil
}
