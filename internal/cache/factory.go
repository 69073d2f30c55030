package cache

import (
	"context"
	"crypto/tls"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/config"
	"github.com/valkey-io/valkey-go"
)

// Factory creates cache stores for the configured backend. A single Valkey
// client is shared by every distributed store the factory creates.
type Factory struct {
	cacheConfig config.CacheConfig
	client      valkey.Client
}

// NewFactory prepares a factory for the provided configuration.
//
// The cache type must be either "memory" or "valkey". Any other value returns an error.
// For "valkey", the cacheConfig.Valkey.Address must be provided.
func NewFactory(ctx context.Context, cacheConfig config.CacheConfig) (*Factory, error) {
	switch cacheConfig.Type {
	case "valkey":
		log.Info().
			Str("cache_type", "valkey").
			Str("address", cacheConfig.Valkey.Address).
			Bool("tls", cacheConfig.Valkey.TLS).
			Msg("initializing distributed cache")

		if cacheConfig.Valkey.Address == "" {
			return nil, fmt.Errorf("valkey address is required when cache type is valkey")
		}

		valkeyOpts := valkey.ClientOption{
			InitAddress: []string{cacheConfig.Valkey.Address},
			Username:    cacheConfig.Valkey.Username,
			Password:    cacheConfig.Valkey.Password,
		}

		// Configure TLS if enabled
		if cacheConfig.Valkey.TLS {
			valkeyOpts.TLSConfig = &tls.Config{
				MinVersion: tls.VersionTLS12,
			}
		}

		valkeyClient, err := valkey.NewClient(valkeyOpts)
		if err != nil {
			return nil, fmt.Errorf("failed to create valkey client: %w", err)
		}

		return &Factory{cacheConfig: cacheConfig, client: valkeyClient}, nil

	case "memory":
		log.Info().
			Str("cache_type", "memory").
			Int("max_size", cacheConfig.MaxSize).
			Msg("initializing in-memory cache")

		return &Factory{cacheConfig: cacheConfig}, nil

	default:
		return nil, fmt.Errorf("invalid cache type %q: must be either \"memory\" or \"valkey\"", cacheConfig.Type)
	}
}

// NewStore creates an instrumented store for values of type T. The namespace
// separates resource classes sharing a backend.
func NewStore[T any](f *Factory, namespace string) (Store[T], error) {
	if f.client != nil {
		distributed, err := NewDistributed[T](f.client, namespace)
		if err != nil {
			return nil, fmt.Errorf("failed to create distributed cache: %w", err)
		}

		return NewInstrumented(distributed, "distributed", namespace), nil
	}

	memory, err := NewMemory[T](f.cacheConfig.MaxSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory cache: %w", err)
	}

	return NewInstrumented(memory, "memory", namespace), nil
}

// Close releases the shared Valkey client, if any.
func (f *Factory) Close() error {
	if f.client != nil {
		f.client.Close()
	}
	return nil
}
