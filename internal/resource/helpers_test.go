package resource_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todoapuestas/tap-bridge/internal/cache"
	"github.com/todoapuestas/tap-bridge/internal/config"
	"github.com/todoapuestas/tap-bridge/internal/oauth"
	"github.com/todoapuestas/tap-bridge/internal/resource"
	"github.com/todoapuestas/tap-bridge/internal/snapshot"
	"github.com/todoapuestas/tap-bridge/internal/testhelpers"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
	"golang.org/x/oauth2"
)

var fixedNow = func() time.Time { return time.Unix(1700000000, 0) }

type recordingReporter struct {
	mu   sync.Mutex
	errs []*upstream.APIError
}

func (r *recordingReporter) Report(_ context.Context, err *upstream.APIError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recordingReporter) Kinds() []upstream.ErrorKind {
	r.mu.Lock()
	defer r.mu.Unlock()

	kinds := make([]upstream.ErrorKind, 0, len(r.errs))
	for _, e := range r.errs {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

// fixture wires every fetcher to a mock upstream with memory backed stores.
type fixture struct {
	tap       *testhelpers.MockTapServer
	tapConfig *config.TapConfig
	reporter  *recordingReporter
	snapshots *snapshot.Memory
	tokens    *oauth.TokenManager
	deps      resource.Dependencies
	caches    map[string]*cache.Memory[json.RawMessage]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	testhelpers.SetupLogger(t)

	tap := testhelpers.SetupMockTapServer(t)

	tapConfig := &config.TapConfig{
		BaseURL:            tap.URL(),
		ClientID:           "public",
		ClientSecret:       "secret",
		TrackerWebCategory: "apuestas",
		TrackerDomain:      "example.com",
	}

	tokenCache, err := cache.NewMemory[oauth2.Token](100)
	require.NoError(t, err)

	reporter := &recordingReporter{}
	gateway := upstream.NewGateway(tap.Server.Client(), time.Second)
	tokens := oauth.NewTokenManager(tapConfig, tokenCache, gateway, reporter)
	snapshots := snapshot.NewMemory()

	return &fixture{
		tap:       tap,
		tapConfig: tapConfig,
		reporter:  reporter,
		snapshots: snapshots,
		tokens:    tokens,
		deps: resource.Dependencies{
			Config:    tapConfig,
			Tokens:    tokens,
			Gateway:   gateway,
			Reporter:  reporter,
			Snapshots: snapshots,
			Now:       fixedNow,
		},
		caches: map[string]*cache.Memory[json.RawMessage]{},
	}
}

func (f *fixture) cache(t *testing.T, name string) *cache.Memory[json.RawMessage] {
	t.Helper()

	if c, ok := f.caches[name]; ok {
		return c
	}

	c, err := cache.NewMemory[json.RawMessage](100)
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	f.caches[name] = c
	return c
}

func (f *fixture) sports(t *testing.T) *resource.Sports {
	return resource.NewSports(f.deps, f.cache(t, "sports"))
}

func (f *fixture) competitions(t *testing.T) *resource.Competitions {
	return resource.NewCompetitions(f.deps, f.cache(t, "competitions"))
}

func (f *fixture) bookies(t *testing.T) *resource.Bookies {
	return resource.NewBookies(f.deps, f.cache(t, "bookies"))
}

func (f *fixture) bySite(t *testing.T) *resource.BookiesBySite {
	return resource.NewBookiesBySite(f.deps, f.cache(t, "bysite"))
}

func (f *fixture) country(t *testing.T) *resource.CountryByIP {
	return resource.NewCountryByIP(f.deps, f.cache(t, "country"))
}

func (f *fixture) snapshot(t *testing.T, name string) (string, bool) {
	t.Helper()

	value, found, err := f.snapshots.Get(context.Background(), name)
	require.NoError(t, err)
	return string(value), found
}

func assertResult(t *testing.T, result upstream.Result[json.RawMessage], expectedSource upstream.Source, expectedJSON string) {
	t.Helper()

	assert.Equal(t, expectedSource.String(), result.Source().String())
	assert.JSONEq(t, expectedJSON, string(result.Value()))
}

func assertFailed(t *testing.T, result upstream.Result[json.RawMessage], expectedKind upstream.ErrorKind) {
	t.Helper()

	err, failed := result.Failed()
	require.True(t, failed, "expected fetch to fail")

	var apiErr *upstream.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, expectedKind, apiErr.Kind)
}

func respondUnavailable(tap *testhelpers.MockTapServer, route string) {
	tap.Respond(route, http.StatusBadRequest, `{"error":"unavailable","error_description":"try later"}`)
}
