package cache

import "time"

// Cache is a key-value store with an optional TTL per entry.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores the value. If ttl <= 0, the entry does not expire.
	Set(key K, value V, ttl time.Duration)

	// GetOrSet returns the live value for key, storing create() first if
	// there is none. The entry's expiry is pushed to now+ttl either way.
	GetOrSet(key K, ttl time.Duration, create func() V) V

	Delete(key K)

	// Len returns the number of non-expired items currently stored.
	Len() int

	// PurgeExpired removes expired entries and returns how many were dropped.
	PurgeExpired() int
}
