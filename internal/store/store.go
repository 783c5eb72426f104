package store

import (
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/atlasreach/mediaforge/shared/postgresql"
)

// Store handles all metadata-store operations for jobs, video jobs,
// artifacts and the model registry. Every status transition is a single-row
// conditional update so concurrent writers (reconciler, reaper, handlers)
// race on commit order instead of overwriting each other.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// New creates a new Store backed by the given PostgreSQL client
func New(pg *postgresql.Client, logger *slog.Logger) *Store {
	return &Store{
		db:     pg.GetDB(),
		logger: logger,
	}
}

// Cursor marks a position in a created_at DESC listing
type Cursor struct {
	CreatedAt time.Time
	ID        string
}
