// Package store provides TTL-bounded key/value stores for cached
// registry responses.
//
// Entries carry an absolute expiration timestamp. An expired entry is
// logically absent: Get never returns it, even when the backing row has
// not been physically deleted yet. SweepExpired reclaims expired rows
// in bulk and is driven by a background loop.
//
// Backends:
//   - sqlite: embedded single-file store for CLI usage (default)
//   - memory: in-process map for tests and ephemeral runs
//   - redis:  shared store for multi-instance deployments
//   - mongo:  shared store backed by a MongoDB collection
//   - null:   disabled cache, every read is a miss
//
// All implementations are safe for concurrent use.
package store

import (
	"context"
	"time"
)

// Store is the interface for cache storage backends.
type Store interface {
	// Get retrieves the payload for key. The second return is false
	// when no entry exists or the entry has expired.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set upserts the entry with expiration now+ttl. A non-positive
	// ttl stores an already-expired entry. Last write wins.
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// Remove deletes a single entry. Removing an absent key is not an
	// error.
	Remove(ctx context.Context, key string) error

	// SweepExpired deletes all expired entries in one unit of work and
	// returns the count removed.
	SweepExpired(ctx context.Context) (int, error)

	// Close releases the underlying storage handle.
	Close() error
}

// Counter is implemented by stores that can report entry counts,
// used for diagnostics.
type Counter interface {
	// Count returns the total number of stored entries and how many
	// of those are expired but not yet swept.
	Count(ctx context.Context) (total, expired int, err error)
}

// Clearer is implemented by stores that can drop every entry at once.
type Clearer interface {
	Clear(ctx context.Context) error
}
