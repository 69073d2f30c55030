package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/justinas/alice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/audit"
	"github.com/todoapuestas/tap-bridge/internal/cache"
	"github.com/todoapuestas/tap-bridge/internal/config"
	"github.com/todoapuestas/tap-bridge/internal/oauth"
	"github.com/todoapuestas/tap-bridge/internal/observe"
	"github.com/todoapuestas/tap-bridge/internal/report"
	"github.com/todoapuestas/tap-bridge/internal/resource"
	"github.com/todoapuestas/tap-bridge/internal/server"
	"github.com/todoapuestas/tap-bridge/internal/snapshot"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
	"golang.org/x/oauth2"
)

// sessionIdle is how long an unused geo-IP session is kept.
const sessionIdle = 30 * time.Minute

// services holds the fetchers behind the HTTP routes.
type services struct {
	settings     *report.SettingsErrors
	bookies      *resource.Bookies
	sports       *resource.Sports
	competitions *resource.Competitions
	bySite       *resource.BookiesBySite
	country      *resource.CountryByIP
	sessions     *resource.Sessions
}

func newServices(cfg config.Config, factory *cache.Factory, snapshots snapshot.Store, client *http.Client) (*services, error) {
	tapConfig := cfg.Tap

	settings := report.NewSettingsErrors(report.DefaultSettingsCapacity)
	reporter := report.Multi{report.LogReporter{}, settings}
	gateway := upstream.NewGateway(client, tapConfig.HTTPTimeout())

	tokenCache, err := cache.NewStore[oauth2.Token](factory, "oauth")
	if err != nil {
		return nil, fmt.Errorf("token cache configuration failed: %w", err)
	}
	tokens := oauth.NewTokenManager(&tapConfig, tokenCache, gateway, reporter)

	stores := map[string]cache.Store[json.RawMessage]{}
	for _, namespace := range []string{"bookies", "sports", "competitions", "bysite", "country"} {
		store, err := cache.NewStore[json.RawMessage](factory, namespace)
		if err != nil {
			return nil, fmt.Errorf("%s cache configuration failed: %w", namespace, err)
		}
		stores[namespace] = store
	}

	sessions, err := resource.NewSessions(cfg.Cache.MaxSize, sessionIdle)
	if err != nil {
		return nil, fmt.Errorf("session store configuration failed: %w", err)
	}

	deps := resource.Dependencies{
		Config:    &tapConfig,
		Tokens:    tokens,
		Gateway:   gateway,
		Reporter:  reporter,
		Snapshots: snapshots,
	}

	return &services{
		settings:     settings,
		bookies:      resource.NewBookies(deps, stores["bookies"]),
		sports:       resource.NewSports(deps, stores["sports"]),
		competitions: resource.NewCompetitions(deps, stores["competitions"]),
		bySite:       resource.NewBookiesBySite(deps, stores["bysite"]),
		country:      resource.NewCountryByIP(deps, stores["country"]),
		sessions:     sessions,
	}, nil
}

// durables lists the fetchers kept warm by the refresher, by name.
func (s *services) durables() []namedFetcher {
	return []namedFetcher{
		{"bookies", s.bookies},
		{"sports", s.sports},
		{"competitions", s.competitions},
	}
}

type namedFetcher struct {
	name    string
	fetcher Fetcher
}

func configureServerRoutes(svc *services) http.Handler {
	// wrap a mux such that HTTP telemetry is configured by default
	mux := observe.NewMux(http.NewServeMux())

	// The API is read only: request bodies are not expected.
	requestLimitBytes := int64(20 << 10) // 20 KB
	requestLimiter := maxRequestSize(requestLimitBytes)

	auditedRouteMiddleware := alice.New(requestLimiter, audit.Middleware())
	standardRouteMiddleware := alice.New(requestLimiter)

	for _, d := range svc.durables() {
		mux.Handle("GET /"+d.name, auditedRouteMiddleware.Then(handleDurable(d.name, d.fetcher)))
	}

	mux.Handle("GET /bookies/site/{site}", auditedRouteMiddleware.Then(handleBookiesBySite(svc.bySite)))

	countryHandler := auditedRouteMiddleware.Then(handleCountryByIP(svc.country, svc.sessions))
	mux.Handle("GET /geoip", countryHandler)
	mux.Handle("GET /geoip/{ip}", countryHandler)

	mux.Handle("GET /settings/errors", auditedRouteMiddleware.Then(handleSettingsErrors(svc.settings)))
	mux.Handle("DELETE /settings/errors", auditedRouteMiddleware.Then(handleClearSettingsErrors(svc.settings)))

	// healthchecks are not included in telemetry or auditing
	mux.HandleUntraced("GET /healthcheck", standardRouteMiddleware.Then(handleHealthCheck()))

	return mux
}

func main() {
	configureLogging()

	logBuildInfo()

	err := launchServer()
	if err != nil {
		log.Fatal().Err(err).Msg("server failed to start")
	}
}

func launchServer() error {
	ctx := context.Background()

	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("configuration load failed: %w", err)
	}

	snapshots, err := snapshot.NewFromConfig(cfg.Snapshot)
	if err != nil {
		return fmt.Errorf("snapshot store configuration failed: %w", err)
	}

	if cfg.Tap.Teardown {
		defer snapshots.Close()

		if err := snapshot.Deactivate(ctx, snapshots); err != nil {
			return fmt.Errorf("snapshot teardown failed: %w", err)
		}
		log.Info().Msg("teardown complete, exiting")
		return nil
	}

	if err := snapshot.Activate(ctx, snapshots); err != nil {
		snapshots.Close()
		return fmt.Errorf("snapshot activation failed: %w", err)
	}

	hooks := &server.ShutdownHooks{}
	hooks.AddCloser("snapshots", snapshots)

	// configure telemetry, including wrapping default HTTP client
	shutdownTelemetry, err := observe.Configure(ctx, cfg.Observe)
	if err != nil {
		return fmt.Errorf("telemetry bootstrap failed: %w", err)
	}
	hooks.AddContext("telemetry", shutdownTelemetry)

	http.DefaultTransport = observe.HTTPTransport(
		configureHTTPTransport(cfg.Server),
		cfg.Observe,
	)
	http.DefaultClient = &http.Client{
		Transport: http.DefaultTransport,
	}

	factory, err := cache.NewFactory(ctx, cfg.Cache)
	if err != nil {
		return fmt.Errorf("cache configuration failed: %w", err)
	}
	hooks.AddCloser("cache", factory)

	svc, err := newServices(cfg, factory, snapshots, http.DefaultClient)
	if err != nil {
		return fmt.Errorf("service configuration failed: %w", err)
	}

	// Start goroutine to keep the durable lists warm
	if interval := cfg.Tap.RefreshInterval(); interval > 0 {
		refreshCtx, stopRefresh := context.WithCancel(ctx)
		hooks.AddContext("refresher", func(context.Context) error {
			stopRefresh()
			return nil
		})

		go refreshDurables(refreshCtx, svc.durables(), interval)
	}

	// start the server
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           configureServerRoutes(svc),
		MaxHeaderBytes:    20 << 10,         // 20 KB
		ReadHeaderTimeout: 20 * time.Second, // Prevent Slowloris attacks
	}

	err = server.Serve(ctx, cfg.Server, srv, hooks)
	if err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}

func configureLogging() {
	// Set global level to the minimum: allows the Open Telemetry logging to be
	// configured separately. However, it means that any logger that sets its
	// level will log as this effectively disables the global level.
	zerolog.SetGlobalLevel(zerolog.Level(-128))

	// default level is Info
	log.Logger = log.Level(zerolog.InfoLevel)

	if os.Getenv("ENV") == "development" {
		log.Logger = log.
			Output(zerolog.ConsoleWriter{Out: os.Stdout}).
			Level(zerolog.DebugLevel)
	}

	zerolog.DefaultContextLogger = &log.Logger
}

func logBuildInfo() {
	buildInfo, ok := debug.ReadBuildInfo()
	if !ok {
		return
	}
	ev := log.Info()
	for _, v := range buildInfo.Settings {
		if strings.HasPrefix(v.Key, "vcs.") ||
			strings.HasPrefix(v.Key, "GO") ||
			v.Key == "CGO_ENABLED" {
			ev = ev.Str(v.Key, v.Value)
		}
	}

	ev.Msg("build information")
}

func configureHTTPTransport(cfg config.ServerConfig) *http.Transport {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	transport.MaxIdleConns = cfg.OutgoingHTTPMaxIdleConns
	transport.MaxConnsPerHost = cfg.OutgoingHTTPMaxConnsPerHost

	return transport
}

// refreshDurables fetches each durable list every interval until ctx is
// cancelled. Fetchers serve from cache while it is fresh, so the upstream is
// only called once an entry has expired.
func refreshDurables(ctx context.Context, fetchers []namedFetcher, interval time.Duration) {
	defer func() {
		if r := recover(); r != nil {
			log.Info().Interface("recover", r).Msg("background refresh failed; refresh stopped")
		}
	}()

	for {
		refreshOnce(ctx, fetchers)

		select {
		case <-time.After(interval):
			// continue
		case <-ctx.Done():
			log.Info().Msg("refresh goroutine shutting down gracefully")
			return
		}
	}
}

func refreshOnce(ctx context.Context, fetchers []namedFetcher) {
	for _, f := range fetchers {
		result := f.fetcher.Fetch(ctx)

		ev := log.Debug()
		if err := result.Err(); err != nil {
			// failures are already reported; the next round tries again
			ev = log.Info().Err(err)
		}
		ev.Str("resource", f.name).Str("source", result.Source().String()).Msg("refreshed")
	}
}
