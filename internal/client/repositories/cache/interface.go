package cache

import (
	"context"
	"encoding/json"
	"time"
)

// Repository is the expiring key/value cache. It is purely a performance aid:
// nothing in the sync path depends on cache freshness for correctness.
type Repository interface {
	// Set stores a value under key with the given time-to-live. A ttl <= 0
	// stores an entry that is already expired.
	Set(ctx context.Context, key string, value json.RawMessage, ttl time.Duration) error

	// Get returns the cached value, or nil when the key is absent or
	// expired. Expired entries are deleted on read (lazy eviction).
	Get(ctx context.Context, key string) (json.RawMessage, error)

	// Sweep bulk-deletes all expired entries and returns how many were
	// removed. Used for periodic space reclamation.
	Sweep(ctx context.Context) (int, error)
}
