package resource

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/cache"
	"github.com/todoapuestas/tap-bridge/internal/snapshot"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
)

// DurableTTL is the cache lifetime of the bookmaker, sports and competition
// lists.
const DurableTTL = 4 * time.Hour

// durable is a fetcher whose last accepted payload is kept in the snapshot
// store as well as the expiring cache.
type durable struct {
	deps      Dependencies
	cache     cache.Store[json.RawMessage]
	decoder   *upstream.Decoder
	key       string
	option    string
	intention string
	url       func(e upstream.Endpoints, token string) string

	// extract returns the part of the payload to keep, or nil when the
	// payload carries nothing worth keeping.
	extract func(payload json.RawMessage) json.RawMessage
}

func newDurable(deps Dependencies, store cache.Store[json.RawMessage]) durable {
	return durable{
		deps:    deps,
		cache:   store,
		decoder: upstream.NewDecoder(deps.reporter()),
	}
}

// Fetch returns the cached list when present, otherwise fetches it. On any
// failure the snapshot is served instead.
func (d *durable) Fetch(ctx context.Context) upstream.Result[json.RawMessage] {
	logger := log.Ctx(ctx).With().Str("key", d.key).Logger()

	cached, found, err := d.cache.Get(ctx, d.key)
	if err != nil {
		logger.Warn().Err(err).Msg("cache lookup failed, continuing without cache")
	}
	if found {
		logger.Debug().Msg("hit: serving cached value")
		return upstream.NewSuccess(cached, upstream.SourceCache)
	}

	token := d.deps.Tokens.TokenWithRetry(ctx)
	if err, failed := token.Failed(); failed {
		return d.degrade(ctx, err)
	}
	accessToken, _ := token.Get()

	resp := d.deps.Gateway.Get(ctx, d.url(d.deps.endpoints(), accessToken))

	var payload json.RawMessage
	if apiErr := d.decoder.DecodePayload(ctx, resp, d.intention, &payload); apiErr != nil {
		return d.degrade(ctx, apiErr)
	}

	value := d.extract(payload)
	if value == nil {
		logger.Info().Msg("upstream returned no entries, keeping existing values")
		return upstream.NewEmpty(emptyList)
	}

	if err := d.cache.Set(ctx, d.key, value, DurableTTL); err != nil {
		logger.Warn().Err(err).Msg("cache write failed")
	}

	if err := d.deps.Snapshots.Set(ctx, d.option, value); err != nil {
		logger.Warn().Err(err).Str("option", d.option).Msg("snapshot write failed")
	}

	logger.Debug().Dur("ttl", DurableTTL).Msg("miss: fetched and cached")

	return upstream.NewSuccess(value, upstream.SourceNetwork)
}

// degrade serves the snapshot after cause. A missing or empty snapshot leaves
// the caller with nothing.
func (d *durable) degrade(ctx context.Context, cause error) upstream.Result[json.RawMessage] {
	logger := log.Ctx(ctx).With().Str("key", d.key).Str("option", d.option).Logger()

	value, found, err := d.deps.Snapshots.Get(ctx, d.option)
	if err != nil {
		logger.Warn().Err(err).Msg("snapshot read failed")
		return upstream.NewFailed[json.RawMessage](cause)
	}

	if !found || !nonEmpty(value) {
		logger.Info().AnErr("cause", cause).Msg("upstream unavailable and no snapshot held")
		return upstream.NewFailed[json.RawMessage](cause)
	}

	logger.Info().AnErr("cause", cause).Msg("upstream unavailable, serving snapshot")

	return upstream.NewDegraded(json.RawMessage(value), cause)
}

// Snapshot returns the last known good value, or an empty list when none is
// held.
func (d *durable) Snapshot(ctx context.Context) (json.RawMessage, error) {
	value, found, err := d.deps.Snapshots.Get(ctx, d.option)
	if err != nil {
		return nil, err
	}

	if !found {
		return emptyList, nil
	}

	return value, nil
}

// Bookies fetches the bookmaker blocks for the tracked category and domain.
type Bookies struct {
	durable
}

func NewBookies(deps Dependencies, store cache.Store[json.RawMessage]) *Bookies {
	d := newDurable(deps, store)
	d.key = BookiesKey
	d.option = snapshot.Bookies
	d.intention = "Request Bookies"
	d.url = func(e upstream.Endpoints, token string) string {
		return e.Bookies(deps.Config.TrackedCategory(), deps.Config.TrackedDomain(), token)
	}
	d.extract = func(payload json.RawMessage) json.RawMessage {
		if !nonEmptyList(payload) {
			return nil
		}
		return payload
	}

	return &Bookies{d}
}

// Sports fetches the sports visible on the blogs.
type Sports struct {
	durable
}

func NewSports(deps Dependencies, store cache.Store[json.RawMessage]) *Sports {
	d := newDurable(deps, store)
	d.key = SportsKey
	d.option = snapshot.Sports
	d.intention = "Request Sports"
	d.url = func(e upstream.Endpoints, token string) string {
		return e.Sports(token)
	}
	d.extract = member("deporte")

	return &Sports{d}
}

// Competitions fetches the competition list.
type Competitions struct {
	durable
}

func NewCompetitions(deps Dependencies, store cache.Store[json.RawMessage]) *Competitions {
	d := newDurable(deps, store)
	d.key = CompetitionsKey
	d.option = snapshot.Competitions
	d.intention = "Request Competitions"
	d.url = func(e upstream.Endpoints, token string) string {
		return e.Competitions(token)
	}
	d.extract = member("competicion")

	return &Competitions{d}
}

// member keeps the named member of the payload when it is non-empty.
func member(name string) func(json.RawMessage) json.RawMessage {
	return func(payload json.RawMessage) json.RawMessage {
		value := field(payload, name)
		if !nonEmpty(value) {
			return nil
		}
		return value
	}
}
