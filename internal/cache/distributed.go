package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/valkey-io/valkey-go"
)

// clientSideTTL bounds how long a value may be served from the client-side
// cache. Writes and server-side expiry invalidate it earlier via tracking.
const clientSideTTL = time.Minute

// Distributed implements Store using Valkey with server-assisted client-side
// caching. Values are JSON encoded. The client is owned by the caller, so that
// several stores of different value types can share one connection.
type Distributed[T any] struct {
	client    valkey.Client
	namespace string
}

// NewDistributed creates a new Valkey-backed cache. Keys are stored under
// "<namespace>:<key>".
func NewDistributed[T any](valkeyClient valkey.Client, namespace string) (*Distributed[T], error) {
	if namespace == "" {
		return nil, fmt.Errorf("distributed cache namespace must not be empty")
	}

	return &Distributed[T]{
		client:    valkeyClient,
		namespace: namespace,
	}, nil
}

func (d *Distributed[T]) storageKey(key string) string {
	return d.namespace + ":" + key
}

// Get retrieves a value from the cache using server-assisted client-side
// caching.
func (d *Distributed[T]) Get(ctx context.Context, key string) (T, bool, error) {
	var zero T

	cmd := d.client.B().Get().Key(d.storageKey(key)).Cache()
	result := d.client.DoCache(ctx, cmd, clientSideTTL)

	if err := result.Error(); err != nil {
		// Key not found is not an error in our semantics
		if valkey.IsValkeyNil(err) {
			return zero, false, nil
		}
		return zero, false, fmt.Errorf("failed to get cached value: %w", err)
	}

	data, err := result.AsBytes()
	if err != nil {
		return zero, false, fmt.Errorf("failed to read cached value: %w", err)
	}

	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		return zero, false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}

	return value, true, nil
}

// Set stores a value in the cache with the given TTL, rounded up to whole
// seconds.
func (d *Distributed[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) error {
	if err := validateTTL(ttl); err != nil {
		return err
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	seconds := int64((ttl + time.Second - 1) / time.Second)
	cmd := d.client.B().Set().Key(d.storageKey(key)).Value(valkey.BinaryString(data)).ExSeconds(seconds).Build()
	if err := d.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to set cached value: %w", err)
	}
	return nil
}

// Invalidate removes a value from the cache.
func (d *Distributed[T]) Invalidate(ctx context.Context, key string) error {
	cmd := d.client.B().Del().Key(d.storageKey(key)).Build()
	if err := d.client.Do(ctx, cmd).Error(); err != nil {
		return fmt.Errorf("failed to invalidate cached value: %w", err)
	}
	return nil
}

// Close is a no-op: the shared client is closed by the Factory that created
// it.
func (d *Distributed[T]) Close() error {
	return nil
}
