//go:build integration

package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/require"
	"github.com/todoapuestas/tap-bridge/internal/cache"
	"github.com/todoapuestas/tap-bridge/internal/config"
	"github.com/todoapuestas/tap-bridge/internal/server"
	"github.com/todoapuestas/tap-bridge/internal/snapshot"
	"github.com/todoapuestas/tap-bridge/internal/testhelpers"
	"github.com/valkey-io/valkey-go"
)

// APITestHarness manages the complete test environment for API integration
// tests: a mock upstream, the configured stores and the API server.
type APITestHarness struct {
	t              *testing.T
	Server         *httptest.Server
	TapMock        *testhelpers.MockTapServer
	Snapshots      snapshot.Store
	Config         config.Config
	valkeyAddr     string
	valkeyPassword string
}

// APITestHarnessOption configures the API test harness.
type APITestHarnessOption func(*config.Config)

// WithValkeyCache configures the test harness to use a Valkey cache container.
func WithValkeyCache() APITestHarnessOption {
	return func(cfg *config.Config) {
		cfg.Cache.Type = "valkey"
	}
}

// WithBadgerSnapshots keeps snapshots in a badger database at path.
func WithBadgerSnapshots(path string) APITestHarnessOption {
	return func(cfg *config.Config) {
		cfg.Snapshot = config.SnapshotConfig{Type: "badger", Path: path}
	}
}

// WithCacheConfig reuses an existing cache, letting two harnesses share one
// Valkey instance.
func WithCacheConfig(cacheCfg config.CacheConfig) APITestHarnessOption {
	return func(cfg *config.Config) {
		cfg.Cache = cacheCfg
	}
}

// WithTapMock points the harness at an existing mock upstream.
func WithTapMock(mock *testhelpers.MockTapServer) APITestHarnessOption {
	return func(cfg *config.Config) {
		cfg.Tap.BaseURL = mock.URL()
	}
}

// NewAPITestHarness creates a complete test harness with a mock upstream and
// the API server. Use options to customize the configuration (e.g.,
// WithValkeyCache). Cleanup is handled automatically via t.Cleanup().
func NewAPITestHarness(t *testing.T, options ...APITestHarnessOption) *APITestHarness {
	t.Helper()
	testhelpers.SetupLogger(t)
	hooks := server.ShutdownHooks{}

	t.Cleanup(func() {
		_ = hooks.Execute(context.Background())
	})

	harness := &APITestHarness{t: t}

	cfg := config.Config{
		Tap: config.TapConfig{
			ClientID:           "public",
			ClientSecret:       "secret",
			TrackerWebCategory: "apuestas",
			TrackerDomain:      "example.com",
			HTTPTimeoutSeconds: 5,
		},
		Cache: config.CacheConfig{
			Type:    "memory", // Default to memory cache for tests
			MaxSize: 100,
		},
		Snapshot: config.SnapshotConfig{Type: "memory"},
		Observe: config.ObserveConfig{
			Enabled: false, // Disable observability for tests
		},
	}

	// Apply options
	for _, opt := range options {
		opt(&cfg)
	}

	if cfg.Tap.BaseURL == "" {
		harness.TapMock = testhelpers.SetupMockTapServer(t)
		cfg.Tap.BaseURL = harness.TapMock.URL()
	}

	if cfg.Cache.Type == "valkey" && cfg.Cache.Valkey.Address == "" {
		cfg.Cache = testhelpers.RunValkeyContainer(t)
	}
	harness.valkeyAddr = cfg.Cache.Valkey.Address
	harness.valkeyPassword = cfg.Cache.Valkey.Password

	snapshots, err := snapshot.NewFromConfig(cfg.Snapshot)
	require.NoError(t, err)
	hooks.AddCloser("snapshots", snapshots)
	require.NoError(t, snapshot.Activate(context.Background(), snapshots))

	factory, err := cache.NewFactory(context.Background(), cfg.Cache)
	require.NoError(t, err)
	hooks.AddCloser("cache", factory)

	svc, err := newServices(cfg, factory, snapshots, http.DefaultClient)
	require.NoError(t, err)

	harness.Server = httptest.NewServer(configureServerRoutes(svc))
	hooks.AddContext("api-server", func(context.Context) error {
		harness.Server.Close()
		return nil
	})

	harness.Snapshots = snapshots
	harness.Config = cfg

	return harness
}

// valkeyKeys lists every key in the Valkey instance behind the harness.
func (h *APITestHarness) valkeyKeys() []string {
	h.t.Helper()

	if h.valkeyAddr == "" {
		h.t.Skip("harness has no Valkey cache")
	}

	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{h.valkeyAddr},
		Username:    "default",
		Password:    h.valkeyPassword,
	})
	require.NoError(h.t, err)
	defer client.Close()

	keys, err := client.Do(context.Background(), client.B().Keys().Pattern("*").Build()).AsStrSlice()
	require.NoError(h.t, err)

	return keys
}

// unavailableError is the 503 answer the host gives when a resource cannot
// be served from any source.
type unavailableError struct {
	status  int
	message string
}

func (e *unavailableError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.status, e.message)
}

// served is one answer from the host.
type served struct {
	status int
	source string
	body   []byte
}

// get requests path from the host under test.
func (h *APITestHarness) get(path string) served {
	h.t.Helper()

	resp, err := h.Server.Client().Get(h.Server.URL + path)
	require.NoError(h.t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(h.t, err)

	return served{
		status: resp.StatusCode,
		source: resp.Header.Get(sourceHeader),
		body:   body,
	}
}

// fetch returns the JSON value and source served for path. Anything but a
// 200 is returned as an *unavailableError.
func (h *APITestHarness) fetch(path string) (json.RawMessage, string, error) {
	h.t.Helper()

	answer := h.get(path)
	if answer.status == http.StatusOK {
		return answer.body, answer.source, nil
	}

	var body ErrorResponse
	_ = json.Unmarshal(answer.body, &body)

	return nil, "", &unavailableError{status: answer.status, message: body.Error}
}
