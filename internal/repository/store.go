package repository

import (
	"context"

	"gorm.io/gorm"
)

// Store owns the database handle and hands out per-cycle scopes. It is
// constructed once by the composition root and closed on shutdown; nothing
// here lives in package-level state.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Scope bundles the repositories bound to one event-handling cycle. A scope
// must not be shared across concurrent cycles.
type Scope struct {
	db       *gorm.DB
	Users    *UserRepository
	Messages *MessageRepository
}

// Acquire returns a bare scoped handle. Each statement commits on its own;
// multi-step semantics are left to the caller. Connections are borrowed from
// the pool per statement and returned when it finishes, on every exit path.
func (s *Store) Acquire(ctx context.Context) *Scope {
	return newScope(s.db.WithContext(ctx).Session(&gorm.Session{NewDB: true}))
}

// Transact runs fn against a transactional scope: commit when fn returns
// nil, rollback on error or panic. The connection is released either way.
func (s *Store) Transact(ctx context.Context, fn func(*Scope) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(newScope(tx))
	})
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func newScope(db *gorm.DB) *Scope {
	return &Scope{
		db:       db,
		Users:    NewUserRepository(db),
		Messages: NewMessageRepository(db),
	}
}
