package models

import "time"

// CacheEntry is a cached orchestration result.
type CacheEntry struct {
	Feature    Feature   `json:"feature"`
	Identifier string    `json:"identifier"`
	Payload    []byte    `json:"payload"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Valid reports whether the entry may be served at the given instant.
func (e CacheEntry) Valid(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// CacheStats reports cache performance metrics.
type CacheStats struct {
	Entries int64 `json:"entries"`
	Expired int64 `json:"expired"`
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
}
