// Package cache provides the read-through caching surface used to
// decorate repository reads.
//
// # Overview
//
// Two pieces live here:
//
//   - Service: a read-through cache interface with GetOrFetch and Delete
//   - Key: stable cache-key construction from criteria descriptions
//
// Criteria carry stable String() descriptions, so keys are plain string
// joins; no reflection over function pointers is needed to identify a
// query.
//
// # Basic Usage
//
//	svc, err := cache.NewService(cache.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	items, err := cache.GetOrFetch(ctx, svc, key, func(ctx context.Context) ([]*Item, error) {
//		return repo.List(ctx, active)
//	})
//
// The sturdyc-backed implementation lives in internal/cacheinfra; consumers
// construct it through NewService. For caching whole repository read
// surfaces, see the readcache package.
package cache
