package main

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/todoapuestas/tap-bridge/internal/config"
	"github.com/todoapuestas/tap-bridge/internal/testhelpers"
)

func TestProbe(t *testing.T) {
	testhelpers.SetupLogger(t)

	tap := testhelpers.SetupMockTapServer(t)
	tap.Respond(testhelpers.RouteSports, http.StatusOK, `{"deporte":[{"id":1}]}`)
	tap.Respond(testhelpers.RouteCountry, http.StatusOK, `{"country":"ES"}`)

	tapCfg := config.TapConfig{
		BaseURL:            tap.URL(),
		ClientID:           "public",
		ClientSecret:       "secret",
		TrackerWebCategory: "apuestas",
		HTTPTimeoutSeconds: 5,
	}

	cases := []struct {
		name     string
		cfg      Config
		expected string
	}{
		{name: "sports", cfg: Config{Resource: "sports"}, expected: `[{"id":1}]`},
		{name: "geoip", cfg: Config{Resource: "geoip", IP: "198.51.100.7"}, expected: `{"country":"ES"}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := probe(context.Background(), tc.cfg, tapCfg)
			require.NoError(t, err)

			assert.Equal(t, "network", result.Source().String())
			assert.JSONEq(t, tc.expected, string(result.Value()))
		})
	}
}

func TestProbe_UnknownResource(t *testing.T) {
	_, err := probe(context.Background(), Config{Resource: "lottery"}, config.TapConfig{HTTPTimeoutSeconds: 1})

	assert.EqualError(t, err, `unknown resource "lottery"`)
}
