package uow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"

	"github.com/homekeep/homekeep/pkg/testsupport"
	"github.com/homekeep/homekeep/repository"
	"github.com/homekeep/homekeep/uow"
)

func openSeeded(t *testing.T) *bun.DB {
	t.Helper()
	db := testsupport.OpenDB(t)
	testsupport.CreateSchema(t, db, (*testsupport.ShoppingItem)(nil))
	return db
}

func countItems(t *testing.T, db *bun.DB) int {
	t.Helper()
	n, err := repository.New[testsupport.ShoppingItem](db).Count(context.Background())
	require.NoError(t, err)
	return n
}

func TestSessionBeforeBegin(t *testing.T) {
	db := openSeeded(t)
	u := uow.New(db)

	_, err := u.Session()
	assert.ErrorIs(t, err, uow.ErrNotInitialized)

	_, err = uow.RepositoryFor[testsupport.ShoppingItem](u)
	assert.ErrorIs(t, err, uow.ErrNotInitialized)

	assert.ErrorIs(t, u.Flush(context.Background()), uow.ErrNotInitialized)
	assert.Equal(t, uow.StateNotStarted, u.State())
}

func TestErrorRollsBackEverything(t *testing.T) {
	db := openSeeded(t)
	boom := errors.New("boom")

	err := uow.Run(context.Background(), db, func(ctx context.Context, u *uow.UnitOfWork) error {
		repo, err := uow.RepositoryFor[testsupport.ShoppingItem](u)
		if err != nil {
			return err
		}
		if _, err := repo.Create(ctx, &testsupport.ShoppingItem{Name: "milk", Active: true, Quantity: 1}); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countItems(t, db), "a failed scope must leave no trace")
}

func TestImplicitCommitOnCleanExit(t *testing.T) {
	db := openSeeded(t)

	err := uow.Run(context.Background(), db, func(ctx context.Context, u *uow.UnitOfWork) error {
		repo, err := uow.RepositoryFor[testsupport.ShoppingItem](u)
		if err != nil {
			return err
		}
		_, err = repo.CreateMany(ctx, []*testsupport.ShoppingItem{
			{Name: "milk", Active: true, Quantity: 1},
			{Name: "eggs", Active: true, Quantity: 12},
		})
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, 2, countItems(t, db))
}

func TestExplicitCommitIsNotRepeated(t *testing.T) {
	db := openSeeded(t)

	err := uow.Run(context.Background(), db, func(ctx context.Context, u *uow.UnitOfWork) error {
		repo, err := uow.RepositoryFor[testsupport.ShoppingItem](u)
		if err != nil {
			return err
		}
		if _, err := repo.Create(ctx, &testsupport.ShoppingItem{Name: "milk", Active: true, Quantity: 1}); err != nil {
			return err
		}
		if err := u.Commit(ctx); err != nil {
			return err
		}
		assert.Equal(t, uow.StateCommitted, u.State())
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, countItems(t, db))
}

func TestPanicRollsBackAndPropagates(t *testing.T) {
	db := openSeeded(t)

	assert.PanicsWithValue(t, "kaboom", func() {
		_ = uow.Run(context.Background(), db, func(ctx context.Context, u *uow.UnitOfWork) error {
			repo, err := uow.RepositoryFor[testsupport.ShoppingItem](u)
			require.NoError(t, err)
			_, err = repo.Create(ctx, &testsupport.ShoppingItem{Name: "milk", Active: true, Quantity: 1})
			require.NoError(t, err)
			panic("kaboom")
		})
	})

	assert.Zero(t, countItems(t, db))
}

func TestFlushMakesWritesVisibleWithinScopeOnly(t *testing.T) {
	db := openSeeded(t)
	boom := errors.New("boom")

	err := uow.Run(context.Background(), db, func(ctx context.Context, u *uow.UnitOfWork) error {
		repo, err := uow.RepositoryFor[testsupport.ShoppingItem](u)
		if err != nil {
			return err
		}
		created, err := repo.Create(ctx, &testsupport.ShoppingItem{Name: "milk", Active: true, Quantity: 1})
		if err != nil {
			return err
		}
		if err := u.Flush(ctx); err != nil {
			return err
		}

		// Visible inside the same scope.
		_, found, err := repo.Get(ctx, created.ID)
		if err != nil {
			return err
		}
		assert.True(t, found)
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, countItems(t, db), "flush must never commit")
}

func TestRepositoryMemoization(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	first := uow.New(db)
	require.NoError(t, first.Begin(ctx))

	a, err := uow.RepositoryFor[testsupport.ShoppingItem](first)
	require.NoError(t, err)
	b, err := uow.RepositoryFor[testsupport.ShoppingItem](first)
	require.NoError(t, err)
	assert.Same(t, a, b)

	other, err := uow.RepositoryFor[testsupport.Recipe](first)
	require.NoError(t, err)
	assert.NotNil(t, other)

	// The single test connection must be free before the next scope opens.
	first.Close(ctx)

	second := uow.New(db)
	require.NoError(t, second.Begin(ctx))
	defer second.Close(ctx)

	c, err := uow.RepositoryFor[testsupport.ShoppingItem](second)
	require.NoError(t, err)
	assert.NotSame(t, a, c, "repositories are bound per unit of work")
}

func TestFinishedUnitRejectsReuse(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	u := uow.New(db)
	require.NoError(t, u.Begin(ctx))
	require.NoError(t, u.Commit(ctx))

	assert.ErrorIs(t, u.Begin(ctx), uow.ErrFinished)
	_, err := u.Session()
	assert.ErrorIs(t, err, uow.ErrFinished)
	assert.ErrorIs(t, u.Commit(ctx), uow.ErrFinished)
}

func TestCloseRollsBackActiveScope(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	u := uow.New(db)
	require.NoError(t, u.Begin(ctx))

	repo, err := uow.RepositoryFor[testsupport.ShoppingItem](u)
	require.NoError(t, err)
	_, err = repo.Create(ctx, &testsupport.ShoppingItem{Name: "milk", Active: true, Quantity: 1})
	require.NoError(t, err)

	u.Close(ctx)
	assert.Equal(t, uow.StateClosed, u.State())
	assert.Zero(t, countItems(t, db))
}

func TestExternalSessionStaysWithOwner(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	tx, err := db.BeginTx(ctx, nil)
	require.NoError(t, err)

	u := uow.FromTx(tx)
	require.NoError(t, u.Begin(ctx))

	repo, err := uow.RepositoryFor[testsupport.ShoppingItem](u)
	require.NoError(t, err)
	_, err = repo.Create(ctx, &testsupport.ShoppingItem{Name: "milk", Active: true, Quantity: 1})
	require.NoError(t, err)

	// Closing the wrapper leaves the transaction alive for its owner.
	u.Close(ctx)
	require.NoError(t, tx.Commit())

	assert.Equal(t, 1, countItems(t, db))
}

func TestBeginIsIdempotentWhileActive(t *testing.T) {
	db := openSeeded(t)
	ctx := context.Background()

	u := uow.New(db)
	require.NoError(t, u.Begin(ctx))
	defer u.Close(ctx)

	require.NoError(t, u.Begin(ctx))
	assert.Equal(t, uow.StateActive, u.State())
}

func TestStateNames(t *testing.T) {
	assert.Equal(t, "not_started", uow.StateNotStarted.String())
	assert.Equal(t, "active", uow.StateActive.String())
	assert.Equal(t, "committed", uow.StateCommitted.String())
	assert.Equal(t, "rolled_back", uow.StateRolledBack.String())
	assert.Equal(t, "closed", uow.StateClosed.String())
}
