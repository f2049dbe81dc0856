package cache

import (
	"time"
)

// CacheService represents a generic TTL cache. The worker uses it to hold
// the scrape cooldown key that keeps trigger requests from overlapping.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
