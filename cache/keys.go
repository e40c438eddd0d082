package cache

import (
	"fmt"
	"strings"
)

// KeySeparator delimits cache key segments.
const KeySeparator = "::"

// Key builds a stable cache key from a namespace (usually the entity
// name), a method name, and the criteria describing the query. Criteria
// descriptions are stable across runs, so equal queries always map to the
// same key.
func Key(namespace, method string, parts ...fmt.Stringer) string {
	segments := make([]string, 0, len(parts)+2)
	segments = append(segments, namespace, method)
	for _, p := range parts {
		segments = append(segments, p.String())
	}
	return strings.Join(segments, KeySeparator)
}

// KeyPrefix returns the prefix shared by every key Key produces for the
// namespace/method pair, used for prefix-based invalidation.
func KeyPrefix(namespace, method string) string {
	return namespace + KeySeparator + method
}
