// This command is only used for local testing: it runs a single fetch against
// the configured upstream and prints the served value, so credentials and
// connectivity can be checked without starting the server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/goccy/go-json"
	"github.com/sethvargo/go-envconfig"
	"github.com/todoapuestas/tap-bridge/internal/cache"
	"github.com/todoapuestas/tap-bridge/internal/config"
	"github.com/todoapuestas/tap-bridge/internal/oauth"
	"github.com/todoapuestas/tap-bridge/internal/report"
	"github.com/todoapuestas/tap-bridge/internal/resource"
	"github.com/todoapuestas/tap-bridge/internal/snapshot"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
	"golang.org/x/oauth2"
)

type Config struct {
	Resource string `env:"UTIL_RESOURCE, default=sports"`
	Site     string `env:"UTIL_SITE"`
	IP       string `env:"UTIL_IP, default=127.0.0.1"`
}

func main() {
	ctx := context.Background()

	cfg := Config{}
	err := envconfig.Process(ctx, &cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading config: %v\n", err)
		os.Exit(1)
	}

	appCfg, err := config.Load(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error reading upstream config: %v\n", err)
		os.Exit(1)
	}

	result, err := probe(ctx, cfg, appCfg.Tap)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if err, failed := result.Failed(); failed {
		fmt.Fprintf(os.Stderr, "fetch failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "source: %s\n", result.Source())
	fmt.Printf("%s\n", result.Value())
}

func probe(ctx context.Context, cfg Config, tapCfg config.TapConfig) (upstream.Result[json.RawMessage], error) {
	var none upstream.Result[json.RawMessage]

	tokenCache, err := cache.NewMemory[oauth2.Token](1)
	if err != nil {
		return none, err
	}
	lists, err := cache.NewMemory[json.RawMessage](10)
	if err != nil {
		return none, err
	}

	reporter := report.LogReporter{}
	gateway := upstream.NewGateway(http.DefaultClient, tapCfg.HTTPTimeout())

	deps := resource.Dependencies{
		Config:    &tapCfg,
		Tokens:    oauth.NewTokenManager(&tapCfg, tokenCache, gateway, reporter),
		Gateway:   gateway,
		Reporter:  reporter,
		Snapshots: snapshot.NewMemory(),
		Now:       time.Now,
	}
	rc := resource.RequestContext{ClientIP: cfg.IP}

	switch cfg.Resource {
	case "bookies":
		return resource.NewBookies(deps, lists).Fetch(ctx), nil
	case "sports":
		return resource.NewSports(deps, lists).Fetch(ctx), nil
	case "competitions":
		return resource.NewCompetitions(deps, lists).Fetch(ctx), nil
	case "bysite":
		return resource.NewBookiesBySite(deps, lists).Fetch(ctx, rc, cfg.Site), nil
	case "geoip":
		return resource.NewCountryByIP(deps, lists).Lookup(ctx, rc, cfg.IP, "probe"), nil
	default:
		return none, fmt.Errorf("unknown resource %q", cfg.Resource)
	}
}
