// Package store provides storage backends for LifeTracker.
//
// It persists entity records, chat sessions, chat history, inbound message
// deduplication and the outgoing reminder queue in memory, in SQLite or in
// PostgreSQL.
package store

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/pruthviraj-b/lifetracker-sub001/internal/models"
)

// ErrNotFound is returned when a record lookup or update matches nothing.
var ErrNotFound = errors.New("not found")

// DefaultHistoryLimit caps ListMessages when the caller passes a non-positive limit.
const DefaultHistoryLimit = 50

// Opts holds configuration for store backends.
type Opts struct {
	DSN string      // database connection string
	IDs IDGenerator // outbox message IDs; UUIDs when nil
}

// IDGenerator supplies IDs for rows the store creates itself.
type IDGenerator interface {
	NewID() string
}

// Option defines a configuration option for store backends.
type Option func(*Opts)

// WithPostgresDSN sets the PostgreSQL connection string.
func WithPostgresDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// WithIDGenerator sets the generator used for outbox message IDs.
func WithIDGenerator(ids IDGenerator) Option {
	return func(o *Opts) {
		o.IDs = ids
	}
}

// WithSQLiteDSN sets the SQLite database file path.
func WithSQLiteDSN(dsn string) Option {
	return func(o *Opts) {
		o.DSN = dsn
	}
}

// DetectDSNType returns "postgres" for PostgreSQL URLs or keyword DSNs and "sqlite3" otherwise.
func DetectDSNType(dsn string) string {
	lower := strings.ToLower(strings.TrimSpace(dsn))
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") ||
		strings.Contains(lower, "host=") || strings.Contains(lower, "dbname=") {
		return "postgres"
	}
	return "sqlite3"
}

// Records persists entity records of every kind.
type Records interface {
	CreateRecord(ctx context.Context, r models.Record) error
	// UpdateRecord returns ErrNotFound when no record has r.ID.
	UpdateRecord(ctx context.Context, r models.Record) error
	DeleteRecord(ctx context.Context, kind models.Entity, id string) error
	// GetRecord returns ErrNotFound when the record does not exist.
	GetRecord(ctx context.Context, kind models.Entity, id string) (*models.Record, error)
	// ListRecords returns a user's records of one kind, oldest first.
	ListRecords(ctx context.Context, kind models.Entity, userID string) ([]models.Record, error)
	// ListRecordsByKind returns every user's records of one kind, oldest first.
	ListRecordsByKind(ctx context.Context, kind models.Entity) ([]models.Record, error)
}

// Sessions persists conversational memory keyed by session ID.
type Sessions interface {
	// GetSession returns nil without error when the session does not exist.
	GetSession(ctx context.Context, sessionID string) (*models.SessionState, error)
	SaveSession(ctx context.Context, st models.SessionState) error
	DeleteSession(ctx context.Context, sessionID string) error
}

// History persists the chat transcript of each session.
type History interface {
	AppendMessages(ctx context.Context, sessionID string, msgs []models.ChatMessage) error
	// ListMessages returns up to limit of the most recent messages, oldest first.
	ListMessages(ctx context.Context, sessionID string, limit int) ([]models.ChatMessage, error)
	DeleteMessages(ctx context.Context, sessionID string) error
}

// Store is the full persistence surface used by the server.
type Store interface {
	Records
	Sessions
	History
	DedupRepo
	OutboxRepo
	Close() error
}

// NewStore opens the backend selected by the DSN. An empty DSN yields an in-memory store.
func NewStore(opts ...Option) (Store, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.DSN == "" {
		slog.Info("NewStore: no DSN configured, using in-memory store")
		return NewInMemoryStore(), nil
	}
	if DetectDSNType(cfg.DSN) == "postgres" {
		slog.Debug("NewStore: using Postgres store")
		return NewPostgresStore(WithPostgresDSN(cfg.DSN))
	}
	slog.Debug("NewStore: using SQLite store")
	return NewSQLiteStore(WithSQLiteDSN(cfg.DSN))
}

func historyLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	return limit
}
