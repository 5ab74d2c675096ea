// Package cache provides pluggable byte caches for parsed lockfile graphs
// and influence analysis results.
//
// Three backends are available: a file cache for CLI usage (XDG cache
// directory), a Redis cache for server deployments, and a null cache that
// disables caching entirely. Keys are derived from lockfile content hashes so
// a re-parsed, unchanged lockfile is a guaranteed hit and any edit is a
// guaranteed miss.
package cache

import (
	"context"
	"time"
)

// DefaultTTL is how long parsed graphs and analysis results stay cached.
// Lockfile content is immutable per hash, so the TTL mostly bounds disk and
// Redis growth rather than staleness.
const DefaultTTL = 7 * 24 * time.Hour

// Cache is the interface all cache backends implement.
type Cache interface {
	// Get retrieves a value. The second return reports whether the key was
	// present and unexpired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with the given TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a value. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Close releases backend resources.
	Close() error
}

// GraphKey returns the cache key for a parsed graph, derived from the
// lockfile's content hash and the parser type that produced it.
func GraphKey(contentHash, parserType string) string {
	return hashKey("graph", contentHash, parserType)
}

// AnalysisKey returns the cache key for an influence analysis result.
func AnalysisKey(contentHash, entryKey, depName string) string {
	return hashKey("analysis", contentHash, entryKey, depName)
}
