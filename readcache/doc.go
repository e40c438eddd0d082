// Package readcache decorates the read surface of a repository with
// read-through caching.
//
// A Reads[T] wraps a repository bound to a non-transactional session and
// caches List, First, Count and Get results keyed by the criteria
// descriptions. Keys are tracked in a registry so writes elsewhere can
// invalidate by prefix or by id.
//
// Reads must not be used inside a unit of work: transactional
// read-your-writes would bypass the cache and the cache would leak
// uncommitted state across transaction boundaries. Cache the autonomous
// read path, keep transactions on the plain repository.
package readcache
