package cache

import (
	"context"
	"time"

	"github.com/maypok86/otter/v2"
)

type memoryEntry[T any] struct {
	value T
	ttl   time.Duration
}

// Memory is an in-memory cache implementation using otter. Each entry expires
// after the TTL given when it was last written.
type Memory[T any] struct {
	cache *otter.Cache[string, memoryEntry[T]]
}

// NewMemory creates a new in-memory cache with the specified max size.
func NewMemory[T any](maxSize int) (*Memory[T], error) {
	cache, err := otter.New(&otter.Options[string, memoryEntry[T]]{
		MaximumSize: maxSize,
		ExpiryCalculator: otter.ExpiryWritingFunc[string, memoryEntry[T]](func(e otter.Entry[string, memoryEntry[T]]) time.Duration {
			return e.Value.ttl
		}),
	})
	if err != nil {
		return nil, err
	}

	return &Memory[T]{cache: cache}, nil
}

// Get retrieves a value from the cache.
func (m *Memory[T]) Get(ctx context.Context, key string) (T, bool, error) {
	entry, ok := m.cache.GetIfPresent(key)
	if !ok {
		var zero T
		return zero, false, nil
	}

	return entry.value, true, nil
}

// Set stores a value in the cache.
func (m *Memory[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}

	m.cache.Set(key, memoryEntry[T]{value: value, ttl: ttl})
	return nil
}

// Invalidate removes a value from the cache.
func (m *Memory[T]) Invalidate(ctx context.Context, key string) error {
	m.cache.Invalidate(key)
	return nil
}

func (m *Memory[T]) Close() error {
	m.cache.InvalidateAll()
	return nil
}
