package config

import (
	"context"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "https://todoapuestas.com", cfg.Tap.BaseURL)
	assert.Equal(t, "apuestas", cfg.Tap.TrackerWebCategory)
	assert.Equal(t, 35*time.Second, cfg.Tap.HTTPTimeout())
	assert.Equal(t, time.Hour, cfg.Tap.RefreshInterval())
	assert.False(t, cfg.Tap.Teardown)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, 10_000, cfg.Cache.MaxSize)
	assert.Equal(t, "memory", cfg.Snapshot.Type)
	assert.Equal(t, "tap-bridge", cfg.Observe.ServiceName)
}

func TestLoad_MissingCredentialsAllowed(t *testing.T) {
	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.False(t, cfg.Tap.Credentials().Complete())
}

func TestTapConfig_Accessors(t *testing.T) {
	t.Setenv("TAP_BASE_URL", "https://x.test")
	t.Setenv("TAP_PUBLIC_ID", "public")
	t.Setenv("TAP_SECRET_KEY", "secret")
	t.Setenv("TAP_TRACKER_WEB_CATEGORY", "poker")
	t.Setenv("TAP_TRACKER_DOMAIN", "example.com")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Credentials{
		BaseURL:      "https://x.test",
		ClientID:     "public",
		ClientSecret: "secret",
	}, cfg.Tap.Credentials())
	assert.True(t, cfg.Tap.Credentials().Complete())
	assert.Equal(t, "poker", cfg.Tap.TrackedCategory())
	assert.Equal(t, "example.com", cfg.Tap.TrackedDomain())
}

func TestLoad_Invalid(t *testing.T) {
	cases := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{
			name:     "unknown category",
			env:      map[string]string{"TAP_TRACKER_WEB_CATEGORY": "lottery"},
			expected: "TAP_TRACKER_WEB_CATEGORY",
		},
		{
			name:     "zero timeout",
			env:      map[string]string{"TAP_HTTP_TIMEOUT_SECS": "0"},
			expected: "TAP_HTTP_TIMEOUT_SECS",
		},
		{
			name:     "negative refresh",
			env:      map[string]string{"TAP_REFRESH_INTERVAL_MINS": "-1"},
			expected: "TAP_REFRESH_INTERVAL_MINS",
		},
		{
			name:     "valkey without address",
			env:      map[string]string{"CACHE_TYPE": "valkey"},
			expected: "VALKEY_ADDRESS required",
		},
		{
			name:     "unknown cache type",
			env:      map[string]string{"CACHE_TYPE": "disk"},
			expected: "CACHE_TYPE",
		},
		{
			name:     "unknown snapshot type",
			env:      map[string]string{"SNAPSHOT_TYPE": "sql"},
			expected: "SNAPSHOT_TYPE",
		},
		{
			name:     "badger without path",
			env:      map[string]string{"SNAPSHOT_TYPE": "badger", "SNAPSHOT_PATH": ""},
			expected: "SNAPSHOT_PATH required",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(context.Background(), envconfig.MapLookuper(tc.env))
			assert.ErrorContains(t, err, tc.expected)
		})
	}
}

func TestValkeyConfig(t *testing.T) {
	t.Setenv("CACHE_TYPE", "valkey")
	t.Setenv("VALKEY_ADDRESS", "localhost:6379")

	cfg, err := Load(context.Background())
	assert.NoError(t, err)

	expected := ValkeyConfig{
		Address: "localhost:6379",
		TLS:     true, // default
	}
	assert.Equal(t, expected, cfg.Cache.Valkey)
}

func TestValkeyConfig_TLSFalse(t *testing.T) {
	t.Setenv("CACHE_TYPE", "valkey")
	t.Setenv("VALKEY_ADDRESS", "localhost:6379")
	t.Setenv("VALKEY_TLS", "false")

	cfg, err := Load(context.Background())
	assert.NoError(t, err)

	expected := ValkeyConfig{
		Address: "localhost:6379",
		TLS:     false,
	}
	assert.Equal(t, expected, cfg.Cache.Valkey)
}

func TestSnapshotConfig_Badger(t *testing.T) {
	t.Setenv("SNAPSHOT_TYPE", "badger")
	t.Setenv("SNAPSHOT_PATH", "/var/lib/tap")

	cfg, err := Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SnapshotConfig{Type: "badger", Path: "/var/lib/tap"}, cfg.Snapshot)
}

func TestCredentials_Digest(t *testing.T) {
	base := Credentials{BaseURL: "https://x.test", ClientID: "a", ClientSecret: "s1"}

	rotatedSecret := base
	rotatedSecret.ClientSecret = "s2"

	otherClient := base
	otherClient.ClientID = "b"

	assert.Len(t, base.Digest(), 12)
	assert.Equal(t, base.Digest(), rotatedSecret.Digest())
	assert.NotEqual(t, base.Digest(), otherClient.Digest())
}
