package config

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Tap      TapConfig
	Cache    CacheConfig
	Snapshot SnapshotConfig
	Observe  ObserveConfig
	Server   ServerConfig
}

type ServerConfig struct {
	Port                   int `env:"SERVER_PORT, default=8080"`
	ShutdownTimeoutSeconds int `env:"SERVER_SHUTDOWN_TIMEOUT_SECS, default=25"`

	OutgoingHTTPMaxIdleConns    int `env:"SERVER_OUTGOING_MAX_IDLE_CONNS, default=100"`
	OutgoingHTTPMaxConnsPerHost int `env:"SERVER_OUTGOING_MAX_CONNS_PER_HOST, default=20"`
}

// TrackerWebCategories lists the web categories the upstream API tracks.
var TrackerWebCategories = []string{"apuestas", "bingo", "casinos", "juegos", "poker"}

// TapConfig holds the upstream API settings. Credentials are deliberately not
// required at load time: a missing ID or secret is reported on each fetch
// instead of preventing the host from starting.
type TapConfig struct {
	BaseURL            string `env:"TAP_BASE_URL, default=https://todoapuestas.com"`
	ClientID           string `env:"TAP_PUBLIC_ID"`
	ClientSecret       string `env:"TAP_SECRET_KEY"`
	TrackerWebCategory string `env:"TAP_TRACKER_WEB_CATEGORY, default=apuestas"`
	TrackerDomain      string `env:"TAP_TRACKER_DOMAIN"`

	HTTPTimeoutSeconds     int  `env:"TAP_HTTP_TIMEOUT_SECS, default=35"`
	RefreshIntervalMinutes int  `env:"TAP_REFRESH_INTERVAL_MINS, default=60"`
	Teardown               bool `env:"TAP_TEARDOWN, default=false"`
}

// Credentials are the values needed for the client-credentials exchange.
type Credentials struct {
	BaseURL      string
	ClientID     string
	ClientSecret string
}

// Complete reports whether both the client ID and secret are present.
func (c Credentials) Complete() bool {
	return c.ClientID != "" && c.ClientSecret != ""
}

// Digest identifies the client the credentials belong to. The secret is not
// part of the digest.
func (c Credentials) Digest() string {
	sum := sha256.Sum256([]byte(c.BaseURL + "\x00" + c.ClientID))
	return hex.EncodeToString(sum[:6])
}

func (c TapConfig) Credentials() Credentials {
	return Credentials{
		BaseURL:      c.BaseURL,
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
	}
}

func (c TapConfig) TrackedCategory() string {
	return c.TrackerWebCategory
}

func (c TapConfig) TrackedDomain() string {
	return c.TrackerDomain
}

func (c TapConfig) HTTPTimeout() time.Duration {
	return time.Duration(c.HTTPTimeoutSeconds) * time.Second
}

func (c TapConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMinutes) * time.Minute
}

// Validate checks the upstream settings that must be well formed regardless of
// whether credentials have been supplied.
func (c *TapConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("TAP_BASE_URL must not be empty")
	}

	if !slices.Contains(TrackerWebCategories, c.TrackerWebCategory) {
		return fmt.Errorf("TAP_TRACKER_WEB_CATEGORY %q must be one of %v", c.TrackerWebCategory, TrackerWebCategories)
	}

	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("TAP_HTTP_TIMEOUT_SECS must be positive")
	}

	if c.RefreshIntervalMinutes < 0 {
		return fmt.Errorf("TAP_REFRESH_INTERVAL_MINS must not be negative")
	}

	return nil
}

// CacheConfig specifies cache configuration.
type CacheConfig struct {
	// Type selects the cache implementation: "memory" (default) or "valkey"
	Type string `env:"CACHE_TYPE, default=memory"`

	// MaxSize bounds the number of entries held by the memory cache.
	MaxSize int `env:"CACHE_MAX_SIZE, default=10000"`

	// Valkey holds distributed cache settings.
	Valkey ValkeyConfig
}

// ValkeyConfig specifies distributed cache configuration.
type ValkeyConfig struct {
	// Address is the Valkey server address (host:port).
	Address string `env:"VALKEY_ADDRESS"`

	// TLS enables TLS connection to Valkey. Defaults to true so the secure option
	// is the default.
	TLS bool `env:"VALKEY_TLS, default=true"`

	// Username for Valkey authentication.
	Username string `env:"VALKEY_USERNAME"`

	// Password for Valkey authentication.
	Password string `env:"VALKEY_PASSWORD"`
}

// SnapshotConfig selects where the last known good payloads are kept.
type SnapshotConfig struct {
	// Type is "memory" (default, lost on restart) or "badger".
	Type string `env:"SNAPSHOT_TYPE, default=memory"`

	// Path is the badger data directory.
	Path string `env:"SNAPSHOT_PATH, default=data/snapshots"`
}

type ObserveConfig struct {
	SDKLogLevel                string `env:"OBSERVE_OTEL_LOG_LEVEL, default=info"`
	Enabled                    bool   `env:"OBSERVE_ENABLED, default=false"`
	MetricsEnabled             bool   `env:"OBSERVE_METRICS_ENABLED, default=true"`
	Type                       string `env:"OBSERVE_TYPE, default=grpc"`
	ServiceName                string `env:"OBSERVE_SERVICE_NAME, default=tap-bridge"`
	TraceBatchTimeoutSeconds   int    `env:"OBSERVE_TRACE_BATCH_TIMEOUT_SECS, default=20"`
	MetricReadIntervalSeconds  int    `env:"OBSERVE_METRIC_READ_INTERVAL_SECS, default=60"`
	HTTPTransportEnabled       bool   `env:"OBSERVE_HTTP_TRANSPORT_ENABLED, default=true"`
	HTTPConnectionTraceEnabled bool   `env:"OBSERVE_CONNECTION_TRACE_ENABLED, default=true"`
}

func Load(ctx context.Context) (Config, error) {
	return load(ctx, nil) // load from OS environment
}

func load(ctx context.Context, lookup envconfig.Lookuper) (Config, error) {
	var cfg Config
	err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: lookup, // nil defaults to OS environment
	})
	if err != nil {
		return cfg, err
	}

	err = cfg.Tap.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid upstream configuration: %w", err)
	}

	err = cfg.Cache.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid cache configuration: %w", err)
	}

	err = cfg.Snapshot.Validate()
	if err != nil {
		return cfg, fmt.Errorf("invalid snapshot configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the cache configuration is valid.
func (c *CacheConfig) Validate() error {
	switch c.Type {
	case "memory":
		if c.MaxSize <= 0 {
			return fmt.Errorf("CACHE_MAX_SIZE must be positive")
		}
	case "valkey":
		if c.Valkey.Address == "" {
			return fmt.Errorf("VALKEY_ADDRESS required when CACHE_TYPE=valkey")
		}
	default:
		return fmt.Errorf("CACHE_TYPE %q must be either \"memory\" or \"valkey\"", c.Type)
	}

	return nil
}

// Validate checks that the snapshot configuration is valid.
func (c *SnapshotConfig) Validate() error {
	switch c.Type {
	case "memory":
	case "badger":
		if c.Path == "" {
			return fmt.Errorf("SNAPSHOT_PATH required when SNAPSHOT_TYPE=badger")
		}
	default:
		return fmt.Errorf("SNAPSHOT_TYPE %q must be either \"memory\" or \"badger\"", c.Type)
	}

	return nil
}
