package models

import (
	"encoding/json"
	"time"
)

// CacheEntry is an expiring, non-authoritative cached payload. The sync
// engine never depends on cache freshness for correctness.
type CacheEntry struct {
	Key       string          `json:"key"`
	Value     json.RawMessage `json:"value"`
	WrittenAt time.Time       `json:"written_at"`
	ExpiresAt time.Time       `json:"expires_at"`
}

// Expired reports whether the entry is past its expiry at the given time.
func (c CacheEntry) Expired(now time.Time) bool {
	return !c.ExpiresAt.After(now)
}
