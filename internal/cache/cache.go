package cache

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidTTL is returned by Set when the supplied TTL would produce an
// entry that never expires. The expiring cache never holds such entries: the
// durable copy of a value lives in the snapshot store instead.
var ErrInvalidTTL = errors.New("cache TTL must be positive")

// Store defines the interface for expiring cache implementations.
// The generic type T represents the value type being cached.
type Store[T any] interface {
	// Get retrieves a value from the cache.
	// Returns the value, whether it was found, and any error. A stored empty
	// value is reported as found.
	Get(ctx context.Context, key string) (T, bool, error)

	// Set stores a value in the cache, expiring after ttl.
	Set(ctx context.Context, key string, value T, ttl time.Duration) error

	// Invalidate removes a value from the cache.
	Invalidate(ctx context.Context, key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Digester provides a content digest for cache key namespacing.
// When configuration changes, the digest changes, effectively
// invalidating all entries cached under the old configuration.
type Digester interface {
	Digest() string
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return ErrInvalidTTL
	}
	return nil
}
