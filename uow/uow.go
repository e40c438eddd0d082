// Package uow bounds one atomic set of persistence operations. A
// UnitOfWork owns exactly one transactional session, hands out memoized
// repositories bound to it, and decides durability: repositories flush,
// the unit of work commits or rolls back.
package uow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/homekeep/homekeep/repository"
)

var (
	// ErrNotInitialized is returned when the session is used before Begin.
	// It signals a programmer defect, not a recoverable condition.
	ErrNotInitialized = errors.New("unit of work not started")

	// ErrFinished is returned when a unit of work is reused after it
	// committed, rolled back or closed.
	ErrFinished = errors.New("unit of work already finished")
)

// State tracks where a unit of work is in its lifecycle.
type State int

const (
	StateNotStarted State = iota
	StateActive
	StateCommitted
	StateRolledBack
	StateClosed
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateActive:
		return "active"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// SessionSource produces a fresh transactional session on demand.
// *bun.DB satisfies it.
type SessionSource interface {
	BeginTx(ctx context.Context, opts *sql.TxOptions) (bun.Tx, error)
}

// UnitOfWork wraps one transaction and the repositories bound to it.
// It is confined to a single logical transaction: sharing an instance
// across goroutines is caller error.
type UnitOfWork struct {
	source   SessionSource
	tx       bun.Tx
	external bool
	state    State
	repos    map[reflect.Type]any
	log      *zap.Logger
}

// Option configures a UnitOfWork.
type Option func(*UnitOfWork)

// WithLogger attaches a logger used for rollback diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(u *UnitOfWork) {
		if log != nil {
			u.log = log
		}
	}
}

// New creates a unit of work that will open its own session from the
// source on Begin and release it at scope exit.
func New(source SessionSource, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		source: source,
		repos:  make(map[reflect.Type]any),
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// FromTx creates a unit of work over an externally supplied session. The
// caller keeps ownership: the session is never closed here, and Begin only
// marks the unit of work active.
func FromTx(tx bun.Tx, opts ...Option) *UnitOfWork {
	u := &UnitOfWork{
		tx:       tx,
		external: true,
		state:    StateNotStarted,
		repos:    make(map[reflect.Type]any),
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// State reports the current lifecycle state.
func (u *UnitOfWork) State() State { return u.state }

// Begin enters the active scope, acquiring a session from the source
// unless one was supplied externally.
func (u *UnitOfWork) Begin(ctx context.Context) error {
	switch u.state {
	case StateNotStarted:
	case StateActive:
		return nil
	default:
		return ErrFinished
	}

	if !u.external {
		tx, err := u.source.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		u.tx = tx
	}
	u.state = StateActive
	return nil
}

// Session returns the transactional session, or ErrNotInitialized when the
// unit of work is not active.
func (u *UnitOfWork) Session() (bun.IDB, error) {
	if u.state != StateActive {
		if u.state == StateNotStarted {
			return nil, ErrNotInitialized
		}
		return nil, ErrFinished
	}
	return u.tx, nil
}

// Commit durably persists everything flushed on the session and marks the
// unit of work committed, so the implicit scope-exit commit is skipped.
// Commit failures propagate: retrying a poisoned session is unsafe.
func (u *UnitOfWork) Commit(ctx context.Context) error {
	if _, err := u.Session(); err != nil {
		return err
	}
	if err := u.tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	u.state = StateCommitted
	return nil
}

// Rollback discards uncommitted changes. Failures are swallowed and logged
// because rollback commonly runs while already unwinding from another
// error; there is nothing useful a caller can do with them.
func (u *UnitOfWork) Rollback(ctx context.Context) {
	if u.state != StateActive {
		return
	}
	if err := u.tx.Rollback(); err != nil {
		u.log.Warn("rollback failed", zap.Error(err))
	}
	u.state = StateRolledBack
}

// Flush pushes pending changes without ending the transaction. On a SQL
// session every repository mutation already executed its statement, so
// this only validates that the unit of work is still active.
func (u *UnitOfWork) Flush(ctx context.Context) error {
	_, err := u.Session()
	return err
}

// Close ends the unit of work. Still-active self-owned sessions are rolled
// back; externally supplied sessions are left to their owner.
func (u *UnitOfWork) Close(ctx context.Context) {
	if u.state == StateActive && !u.external {
		u.Rollback(ctx)
	}
	u.state = StateClosed
	u.repos = make(map[reflect.Type]any)
}

// RepositoryFor returns the repository for T bound to this unit of work's
// session, memoized per type per instance. Two calls on one instance
// return the same repository; separate instances get separate ones.
func RepositoryFor[T any](u *UnitOfWork) (*repository.Repository[T], error) {
	session, err := u.Session()
	if err != nil {
		return nil, err
	}

	key := reflect.TypeOf((*T)(nil)).Elem()
	if repo, ok := u.repos[key]; ok {
		return repo.(*repository.Repository[T]), nil
	}
	repo := repository.New[T](session)
	u.repos[key] = repo
	return repo, nil
}

// Run executes fn inside a fresh unit of work. An error or panic from fn
// rolls the transaction back and keeps propagating; otherwise the changes
// are committed implicitly exactly once, unless fn already committed. The
// session is always released.
func Run(ctx context.Context, source SessionSource, fn func(ctx context.Context, u *UnitOfWork) error, opts ...Option) error {
	u := New(source, opts...)
	if err := u.Begin(ctx); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			u.Rollback(ctx)
			u.Close(ctx)
			panic(r)
		}
		u.Close(ctx)
	}()

	if err := fn(ctx, u); err != nil {
		u.Rollback(ctx)
		return err
	}

	if u.state == StateActive {
		return u.Commit(ctx)
	}
	return nil
}
