package cache

import "context"

// Service exposes the read-through caching operations needed when
// decorating repositories. Implementations must be safe for concurrent
// use.
type Service interface {
	// GetOrFetch returns the cached value for key, loading and caching it
	// through fetch on a miss.
	GetOrFetch(ctx context.Context, key string, fetch func(ctx context.Context) (any, error)) (any, error)

	// Delete drops the key from the cache. Deleting an absent key is a
	// no-op.
	Delete(ctx context.Context, key string) error
}

// GetOrFetch is the typed wrapper over Service.GetOrFetch. It keeps
// callers free of type assertions while the service itself stays
// non-generic.
func GetOrFetch[T any](ctx context.Context, service Service, key string, fetch func(ctx context.Context) (T, error)) (T, error) {
	result, err := service.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result.(T), nil
}
