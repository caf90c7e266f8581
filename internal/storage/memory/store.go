package memory

import (
	"context"
	"errors"
	"sync"

	"poolGraph/internal/model"
	"poolGraph/internal/storage"
)

// ErrSessionClosed is returned when a session is used after Commit or Rollback.
var ErrSessionClosed = errors.New("session closed")

// Store is an in-memory implementation of storage.EntityStore.
type Store struct {
	mu        sync.RWMutex
	tokens    map[string]model.Token
	pools     map[string]model.Pool
	users     map[string]model.User
	positions map[string]model.Position
	swaps     map[string]model.Swap
	stats     map[string]model.GlobalStats
	cursors   map[string]model.Cursor
}

// NewStore creates an empty in-memory entity store.
func NewStore() *Store {
	return &Store{
		tokens:    make(map[string]model.Token),
		pools:     make(map[string]model.Pool),
		users:     make(map[string]model.User),
		positions: make(map[string]model.Position),
		swaps:     make(map[string]model.Swap),
		stats:     make(map[string]model.GlobalStats),
		cursors:   make(map[string]model.Cursor),
	}
}

// Begin opens a session that buffers writes until Commit.
func (s *Store) Begin(_ context.Context) (storage.Session, error) {
	return &Session{
		store:     s,
		tokens:    make(map[string]model.Token),
		pools:     make(map[string]model.Pool),
		users:     make(map[string]model.User),
		positions: make(map[string]model.Position),
		swaps:     make(map[string]model.Swap),
		stats:     make(map[string]model.GlobalStats),
		cursors:   make(map[string]model.Cursor),
	}, nil
}

// Counts returns the number of committed records per entity kind.
func (s *Store) Counts() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return map[string]int{
		"tokens":    len(s.tokens),
		"pools":     len(s.pools),
		"users":     len(s.users),
		"positions": len(s.positions),
		"swaps":     len(s.swaps),
	}
}

// Session is a buffered unit of work over a Store.
type Session struct {
	store  *Store
	closed bool

	tokens    map[string]model.Token
	pools     map[string]model.Pool
	users     map[string]model.User
	positions map[string]model.Position
	swaps     map[string]model.Swap
	stats     map[string]model.GlobalStats
	cursors   map[string]model.Cursor
}

func lookup[T any](s *Session, pending, committed map[string]T, id string) (T, bool, error) {
	var zero T
	if s.closed {
		return zero, false, ErrSessionClosed
	}
	if v, ok := pending[id]; ok {
		return v, true, nil
	}
	s.store.mu.RLock()
	v, ok := committed[id]
	s.store.mu.RUnlock()
	return v, ok, nil
}

func stage[T any](s *Session, pending map[string]T, id string, value T) error {
	if s.closed {
		return ErrSessionClosed
	}
	if id == "" {
		return storage.ErrInvalidInput
	}
	pending[id] = value
	return nil
}

func merge[T any](dst, src map[string]T) {
	for k, v := range src {
		dst[k] = v
	}
}

func (s *Session) Token(_ context.Context, id string) (model.Token, bool, error) {
	return lookup(s, s.tokens, s.store.tokens, id)
}

func (s *Session) PutToken(_ context.Context, token model.Token) error {
	return stage(s, s.tokens, token.ID, token)
}

func (s *Session) Pool(_ context.Context, id string) (model.Pool, bool, error) {
	return lookup(s, s.pools, s.store.pools, id)
}

func (s *Session) PutPool(_ context.Context, pool model.Pool) error {
	return stage(s, s.pools, pool.ID, pool)
}

func (s *Session) User(_ context.Context, id string) (model.User, bool, error) {
	return lookup(s, s.users, s.store.users, id)
}

func (s *Session) PutUser(_ context.Context, user model.User) error {
	return stage(s, s.users, user.ID, user)
}

func (s *Session) Position(_ context.Context, id string) (model.Position, bool, error) {
	return lookup(s, s.positions, s.store.positions, id)
}

func (s *Session) PutPosition(_ context.Context, position model.Position) error {
	return stage(s, s.positions, position.ID, position)
}

func (s *Session) Swap(_ context.Context, id string) (model.Swap, bool, error) {
	return lookup(s, s.swaps, s.store.swaps, id)
}

func (s *Session) PutSwap(_ context.Context, swap model.Swap) error {
	return stage(s, s.swaps, swap.ID, swap)
}

func (s *Session) GlobalStats(_ context.Context, id string) (model.GlobalStats, bool, error) {
	return lookup(s, s.stats, s.store.stats, id)
}

func (s *Session) PutGlobalStats(_ context.Context, stats model.GlobalStats) error {
	return stage(s, s.stats, stats.ID, stats)
}

func (s *Session) Cursor(_ context.Context, name string) (model.Cursor, bool, error) {
	return lookup(s, s.cursors, s.store.cursors, name)
}

func (s *Session) PutCursor(_ context.Context, name string, cursor model.Cursor) error {
	return stage(s, s.cursors, name, cursor)
}

// Commit publishes all staged writes at once.
func (s *Session) Commit(_ context.Context) error {
	if s.closed {
		return ErrSessionClosed
	}
	s.closed = true

	st := s.store
	st.mu.Lock()
	defer st.mu.Unlock()
	merge(st.tokens, s.tokens)
	merge(st.pools, s.pools)
	merge(st.users, s.users)
	merge(st.positions, s.positions)
	merge(st.swaps, s.swaps)
	merge(st.stats, s.stats)
	merge(st.cursors, s.cursors)
	return nil
}

func (s *Session) Rollback(_ context.Context) error {
	s.closed = true
	return nil
}
