package storage

import (
	"context"
	"errors"

	"poolGraph/internal/model"
)

// ErrInvalidInput is returned when a record is missing its key.
var ErrInvalidInput = errors.New("invalid input")

// Storage defines a sink for log records.
type Storage interface {
	PutLogBatch(ctx context.Context, logs []model.LogRecord) error
}

// EntityStore opens sessions over the entity graph.
type EntityStore interface {
	Begin(ctx context.Context) (Session, error)
}

// Session is a unit of work over the entity graph. Reads observe the
// session's own writes; other sessions see them only after Commit.
// Getters report absence with ok=false and a nil error.
type Session interface {
	Token(ctx context.Context, id string) (model.Token, bool, error)
	PutToken(ctx context.Context, token model.Token) error

	Pool(ctx context.Context, id string) (model.Pool, bool, error)
	PutPool(ctx context.Context, pool model.Pool) error

	User(ctx context.Context, id string) (model.User, bool, error)
	PutUser(ctx context.Context, user model.User) error

	Position(ctx context.Context, id string) (model.Position, bool, error)
	PutPosition(ctx context.Context, position model.Position) error

	Swap(ctx context.Context, id string) (model.Swap, bool, error)
	PutSwap(ctx context.Context, swap model.Swap) error

	GlobalStats(ctx context.Context, id string) (model.GlobalStats, bool, error)
	PutGlobalStats(ctx context.Context, stats model.GlobalStats) error

	Cursor(ctx context.Context, name string) (model.Cursor, bool, error)
	PutCursor(ctx context.Context, name string, cursor model.Cursor) error

	Commit(ctx context.Context) error
	// Rollback discards uncommitted writes. It is a no-op after Commit.
	Rollback(ctx context.Context) error
}
