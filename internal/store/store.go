package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmoiron/sqlx"

	"github.com/binpoints/apiserver/types"
)

// Querier is satisfied by both the pooled database handle and a transaction.
// Read operations accept a Querier so they can run inside or outside a Tx.
type Querier interface {
	sqlx.ExtContext
}

// ActionObserver is notified of every audit entry after its transaction commits.
type ActionObserver func(ctx context.Context, entry types.ActionLog)

// Store owns the database handle and hands out explicit transactions.
type Store struct {
	db *sqlx.DB

	mu        sync.RWMutex
	observers []ActionObserver
}

// New wraps an open database handle.
func New(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB returns the pooled handle for reads outside a transaction.
func (s *Store) DB() Querier {
	return s.db
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// OnAction registers an observer for committed audit entries.
func (s *Store) OnAction(fn ActionObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

func (s *Store) notify(ctx context.Context, entry types.ActionLog) {
	s.mu.RLock()
	observers := s.observers
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(ctx, entry)
	}
}

// Tx is a database transaction with hooks that run once it commits.
type Tx struct {
	*sqlx.Tx
	onCommit []func(context.Context)
}

// OnCommit schedules fn to run after a successful commit. Hooks never run
// for a rolled back transaction.
func (tx *Tx) OnCommit(fn func(context.Context)) {
	tx.onCommit = append(tx.onCommit, fn)
}

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics, and committed otherwise.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	tx := &Tx{Tx: sqlTx}

	defer func() {
		if p := recover(); p != nil {
			_ = sqlTx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", classify(err))
	}

	for _, hook := range tx.onCommit {
		hook(ctx)
	}
	return nil
}

func isMySQL(q Querier) bool {
	return q.DriverName() == "mysql"
}

func supportsRowLocks(q Querier) bool {
	switch q.DriverName() {
	case "postgres", "pgx", "mysql":
		return true
	default:
		return false
	}
}
