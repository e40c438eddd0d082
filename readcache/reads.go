package readcache

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/homekeep/homekeep/cache"
	"github.com/homekeep/homekeep/criteria"
	"github.com/homekeep/homekeep/internal/stringcase"
	"github.com/homekeep/homekeep/repository"
)

// Reads caches the read operations of a repository. Write operations stay
// on the underlying repository; callers signal them through the
// invalidation methods.
type Reads[T any] struct {
	repo      *repository.Repository[T]
	cache     cache.Service
	namespace string

	// keys tracks every cache key handed out, for prefix invalidation.
	keys sync.Map
}

// New wraps the repository's read surface with the cache service. The
// cache namespace is derived from the entity type name.
func New[T any](repo *repository.Repository[T], service cache.Service) *Reads[T] {
	return &Reads[T]{
		repo:      repo,
		cache:     service,
		namespace: stringcase.Snake(reflect.TypeOf((*T)(nil)).Elem().Name()),
	}
}

// List returns the entities matching the criteria, served from cache when
// possible.
func (r *Reads[T]) List(ctx context.Context, crit ...criteria.Criteria) ([]*T, error) {
	key := cache.Key(r.namespace, "list", stringers(crit)...)
	r.track(key)
	return cache.GetOrFetch(ctx, r.cache, key, func(ctx context.Context) ([]*T, error) {
		return r.repo.List(ctx, crit...)
	})
}

// firstResult carries First's value/found pair through the untyped cache.
type firstResult[T any] struct {
	Model *T
	Found bool
}

// First returns the first entity matching the criteria, served from cache
// when possible. Absence is cached like any other result.
func (r *Reads[T]) First(ctx context.Context, crit ...criteria.Criteria) (*T, bool, error) {
	key := cache.Key(r.namespace, "first", stringers(crit)...)
	r.track(key)
	res, err := cache.GetOrFetch(ctx, r.cache, key, func(ctx context.Context) (firstResult[T], error) {
		model, found, err := r.repo.First(ctx, crit...)
		return firstResult[T]{Model: model, Found: found}, err
	})
	if err != nil {
		return nil, false, err
	}
	return res.Model, res.Found, nil
}

// Count returns the number of entities matching the filters, served from
// cache when possible.
func (r *Reads[T]) Count(ctx context.Context, filters ...criteria.Filter) (int, error) {
	parts := make([]fmt.Stringer, len(filters))
	for i, f := range filters {
		parts[i] = f
	}
	key := cache.Key(r.namespace, "count", parts...)
	r.track(key)
	return cache.GetOrFetch(ctx, r.cache, key, func(ctx context.Context) (int, error) {
		return r.repo.Count(ctx, filters...)
	})
}

// Get returns the entity with the given id, served from cache when
// possible.
func (r *Reads[T]) Get(ctx context.Context, id any) (*T, bool, error) {
	key := cache.Key(r.namespace, "get", stringValue{fmt.Sprintf("%v", id)})
	r.track(key)
	res, err := cache.GetOrFetch(ctx, r.cache, key, func(ctx context.Context) (firstResult[T], error) {
		model, found, err := r.repo.Get(ctx, id)
		return firstResult[T]{Model: model, Found: found}, err
	})
	if err != nil {
		return nil, false, err
	}
	return res.Model, res.Found, nil
}

// InvalidateAll drops every cached read for this entity. Call it after
// creates and bulk writes.
func (r *Reads[T]) InvalidateAll(ctx context.Context) {
	r.invalidatePrefix(ctx, r.namespace+cache.KeySeparator)
}

// InvalidateID drops the cached Get for one id plus every list, first and
// count result, since any of them may include the changed row.
func (r *Reads[T]) InvalidateID(ctx context.Context, id any) {
	r.invalidatePrefix(ctx, cache.Key(r.namespace, "get", stringValue{fmt.Sprintf("%v", id)}))
	r.invalidatePrefix(ctx, cache.KeyPrefix(r.namespace, "list"))
	r.invalidatePrefix(ctx, cache.KeyPrefix(r.namespace, "first"))
	r.invalidatePrefix(ctx, cache.KeyPrefix(r.namespace, "count"))
}

func (r *Reads[T]) track(key string) {
	r.keys.Store(key, struct{}{})
}

func (r *Reads[T]) invalidatePrefix(ctx context.Context, prefix string) {
	var stale []string
	r.keys.Range(func(k, _ any) bool {
		if key, ok := k.(string); ok && strings.HasPrefix(key, prefix) {
			stale = append(stale, key)
		}
		return true
	})

	for _, key := range stale {
		// Invalidation is best effort: a failed delete only means one
		// more fetch after the TTL.
		_ = r.cache.Delete(ctx, key)
		r.keys.Delete(key)
	}
}

func stringers(crit []criteria.Criteria) []fmt.Stringer {
	parts := make([]fmt.Stringer, len(crit))
	for i, c := range crit {
		parts[i] = c
	}
	return parts
}

type stringValue struct{ s string }

func (v stringValue) String() string { return v.s }
