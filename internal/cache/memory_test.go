package cache

import (
	"context"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func newMemoryLists(t *testing.T) *Memory[json.RawMessage] {
	t.Helper()

	lists, err := NewMemory[json.RawMessage](16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = lists.Close() })

	return lists
}

func TestMemory_Lookup(t *testing.T) {
	ctx := context.Background()
	lists := newMemoryLists(t)

	require.NoError(t, lists.Set(ctx, "deportes", json.RawMessage(`[{"id":1}]`), time.Hour))
	require.NoError(t, lists.Set(ctx, "competiciones", json.RawMessage(`[]`), time.Hour))

	cases := []struct {
		key           string
		expectedFound bool
		expectedValue string
	}{
		{key: "deportes", expectedFound: true, expectedValue: `[{"id":1}]`},
		// an empty list is still a hit
		{key: "competiciones", expectedFound: true, expectedValue: `[]`},
		{key: "bookies", expectedFound: false},
	}

	for _, tc := range cases {
		t.Run(tc.key, func(t *testing.T) {
			value, found, err := lists.Get(ctx, tc.key)

			require.NoError(t, err)
			assert.Equal(t, tc.expectedFound, found)
			if tc.expectedFound {
				assert.JSONEq(t, tc.expectedValue, string(value))
			} else {
				assert.Nil(t, value)
			}
		})
	}
}

func TestMemory_TokenValues(t *testing.T) {
	ctx := context.Background()
	tokens, err := NewMemory[oauth2.Token](4)
	require.NoError(t, err)

	token := oauth2.Token{AccessToken: "abc", TokenType: "bearer", Expiry: time.Now().Add(time.Hour)}
	require.NoError(t, tokens.Set(ctx, "oauth token public", token, 30*time.Minute))

	cached, found, err := tokens.Get(ctx, "oauth token public")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "abc", cached.AccessToken)
	assert.True(t, token.Expiry.Equal(cached.Expiry))
}

func TestMemory_NonPositiveTTLIsNotStored(t *testing.T) {
	ctx := context.Background()
	lists := newMemoryLists(t)

	for _, ttl := range []time.Duration{0, -time.Minute} {
		assert.ErrorIs(t, lists.Set(ctx, "deportes", json.RawMessage(`[]`), ttl), ErrInvalidTTL, ttl.String())
	}

	_, found, err := lists.Get(ctx, "deportes")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemory_InvalidateOnlyRemovesKey(t *testing.T) {
	ctx := context.Background()
	lists := newMemoryLists(t)

	require.NoError(t, lists.Set(ctx, "site-a", json.RawMessage(`["b1"]`), time.Hour))
	require.NoError(t, lists.Set(ctx, "site-b", json.RawMessage(`["b2"]`), time.Hour))

	require.NoError(t, lists.Invalidate(ctx, "site-a"))
	// invalidating a missing key is not an error
	require.NoError(t, lists.Invalidate(ctx, "site-c"))

	_, found, _ := lists.Get(ctx, "site-a")
	assert.False(t, found)

	_, found, _ = lists.Get(ctx, "site-b")
	assert.True(t, found)
}

func TestMemory_EntriesExpireIndependently(t *testing.T) {
	ctx := context.Background()
	lists := newMemoryLists(t)

	require.NoError(t, lists.Set(ctx, "geoip", json.RawMessage(`{"country":"ES"}`), 100*time.Millisecond))
	require.NoError(t, lists.Set(ctx, "deportes", json.RawMessage(`[]`), time.Hour))

	_, found, _ := lists.Get(ctx, "geoip")
	require.True(t, found)

	assert.Eventually(t, func() bool {
		_, found, err := lists.Get(ctx, "geoip")
		return err == nil && !found
	}, 2*time.Second, 25*time.Millisecond)

	_, found, _ = lists.Get(ctx, "deportes")
	assert.True(t, found)
}

func TestMemory_CloseDropsEntries(t *testing.T) {
	ctx := context.Background()
	lists, err := NewMemory[json.RawMessage](16)
	require.NoError(t, err)

	require.NoError(t, lists.Set(ctx, "deportes", json.RawMessage(`[]`), time.Hour))
	require.NoError(t, lists.Close())

	_, found, err := lists.Get(ctx, "deportes")
	require.NoError(t, err)
	assert.False(t, found)
}
