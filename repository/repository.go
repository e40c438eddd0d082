package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/uptrace/bun"

	"github.com/homekeep/homekeep/criteria"
)

// Repository provides generic CRUD and criteria-aware querying for one
// entity type over one session. It is stateless: the session owns entity
// lifetime, the repository only issues statements against it.
//
// Mutating calls execute their statement on the session immediately so
// generated identities are populated, but they never commit. Durability
// belongs solely to the unit of work that owns the session.
//
// A Repository is not safe for concurrent use when bound to a transaction;
// it shares whatever confinement its session has.
type Repository[T any] struct {
	session bun.IDB
	meta    entityMeta
}

// New binds a repository to a session. The session is either the
// transaction owned by a unit of work or a plain *bun.DB for autonomous
// reads outside any transaction.
func New[T any](session bun.IDB) *Repository[T] {
	return &Repository[T]{
		session: session,
		meta:    metaFor(reflect.TypeOf((*T)(nil)).Elem()),
	}
}

// Get fetches an entity by primary key. Absence is a normal outcome
// reported as (nil, false, nil), never an error.
func (r *Repository[T]) Get(ctx context.Context, id any) (*T, bool, error) {
	model := new(T)
	err := r.session.NewSelect().
		Model(model).
		Where("? = ?", bun.Ident(r.meta.pk), id).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to get %s: %w", r.meta.name, err)
	}
	return model, true, nil
}

// MustGet fetches an entity by primary key and fails with
// *EntityNotFoundError when it does not exist.
func (r *Repository[T]) MustGet(ctx context.Context, id any) (*T, error) {
	model, found, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, &EntityNotFoundError{Entity: r.meta.name, ID: id}
	}
	return model, nil
}

// List returns all entities matching the given criteria. Filters are
// combined conjunctively and attached once; shapes are applied afterwards
// in the order given. A sort on a column the entity does not map is
// silently skipped.
func (r *Repository[T]) List(ctx context.Context, crit ...criteria.Criteria) ([]*T, error) {
	var models []*T
	q := r.apply(r.session.NewSelect().Model(&models), crit)
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", r.meta.name, err)
	}
	return models, nil
}

// First returns the first entity matching the criteria. An empty result is
// a valid (nil, false, nil), not an error.
func (r *Repository[T]) First(ctx context.Context, crit ...criteria.Criteria) (*T, bool, error) {
	model := new(T)
	q := r.apply(r.session.NewSelect().Model(model), crit).Limit(1)
	err := q.Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to query %s: %w", r.meta.name, err)
	}
	return model, true, nil
}

// Count returns the number of entities matching the filters. Only filters
// participate: shapes would not change the count.
func (r *Repository[T]) Count(ctx context.Context, filters ...criteria.Filter) (int, error) {
	q := criteria.And(filters...).Apply(r.session.NewSelect().Model((*T)(nil)))
	n, err := q.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", r.meta.name, err)
	}
	return n, nil
}

// Create registers the entity with the session and executes the insert
// immediately so the generated identity is populated. It never commits.
func (r *Repository[T]) Create(ctx context.Context, entity *T) (*T, error) {
	if _, err := r.session.NewInsert().Model(entity).Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", r.meta.name, err)
	}
	return entity, nil
}

// CreateMany inserts the entities one statement at a time so every
// generated identity is populated. It never commits.
func (r *Repository[T]) CreateMany(ctx context.Context, entities []*T) ([]*T, error) {
	for _, entity := range entities {
		if _, err := r.Create(ctx, entity); err != nil {
			return nil, err
		}
	}
	return entities, nil
}

// Update merges the entity's state by primary key and executes the update
// immediately. It never commits.
func (r *Repository[T]) Update(ctx context.Context, entity *T) (*T, error) {
	if _, err := r.session.NewUpdate().Model(entity).WherePK().Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to update %s: %w", r.meta.name, err)
	}
	return entity, nil
}

// Delete removes the entity by primary key.
func (r *Repository[T]) Delete(ctx context.Context, entity *T) error {
	if _, err := r.session.NewDelete().Model(entity).WherePK().Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete %s: %w", r.meta.name, err)
	}
	return nil
}

// DeleteByID removes the entity with the given primary key and reports
// whether a row was actually deleted. A missing id is (false, nil).
func (r *Repository[T]) DeleteByID(ctx context.Context, id any) (bool, error) {
	res, err := r.session.NewDelete().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(r.meta.pk), id).
		Exec(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", r.meta.name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to delete %s: %w", r.meta.name, err)
	}
	return affected > 0, nil
}

// DeleteWhere removes every entity matching the filters and returns the
// number of deleted rows. An empty filter matches everything.
func (r *Repository[T]) DeleteWhere(ctx context.Context, filters ...criteria.Filter) (int64, error) {
	q := r.session.NewDelete().Model((*T)(nil))
	f := criteria.And(filters...)
	if expr, args := f.Fragment(); expr == "" {
		q = q.Where("1 = 1")
	} else {
		q = q.Where(expr, args...)
	}
	res, err := q.Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", r.meta.name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete %s: %w", r.meta.name, err)
	}
	return affected, nil
}

// Exists reports whether an entity with the given primary key exists.
func (r *Repository[T]) Exists(ctx context.Context, id any) (bool, error) {
	exists, err := r.session.NewSelect().
		Model((*T)(nil)).
		Where("? = ?", bun.Ident(r.meta.pk), id).
		Exists(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to query %s: %w", r.meta.name, err)
	}
	return exists, nil
}

func (r *Repository[T]) apply(q *bun.SelectQuery, crit []criteria.Criteria) *bun.SelectQuery {
	var filters []criteria.Filter
	var shapes []criteria.Shape

	for _, c := range crit {
		switch v := c.(type) {
		case criteria.Filter:
			filters = append(filters, v)
		case criteria.Shape:
			shapes = append(shapes, v)
		default:
			q = c.Apply(q)
		}
	}

	q = criteria.And(filters...).Apply(q)
	for _, s := range shapes {
		if s.Kind() == criteria.KindSort && !r.meta.hasColumn(s.Column()) {
			continue
		}
		q = s.Apply(q)
	}
	return q
}
