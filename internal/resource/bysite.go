package resource

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/cache"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
)

// BySiteTTL is the cache lifetime of the per-site bookmaker blocks.
const BySiteTTL = 24 * time.Hour

const intentionBySite = "Request Block Bookies"

// BookiesBySite fetches the bookmaker blocks of a tracked site for the
// caller's network. Results are shared by every caller in the same network
// prefix. An empty answer is cached like any other.
type BookiesBySite struct {
	deps    Dependencies
	cache   cache.Store[json.RawMessage]
	decoder *upstream.Decoder
}

func NewBookiesBySite(deps Dependencies, store cache.Store[json.RawMessage]) *BookiesBySite {
	return &BookiesBySite{
		deps:    deps,
		cache:   store,
		decoder: upstream.NewDecoder(deps.reporter()),
	}
}

func (b *BookiesBySite) Fetch(ctx context.Context, rc RequestContext, site string) upstream.Result[json.RawMessage] {
	if site == "" {
		return upstream.NewFailed[json.RawMessage](b.deps.configurationError(ctx, intentionBySite, "no site given"))
	}
	if rc.ClientIP == "" {
		return upstream.NewFailed[json.RawMessage](b.deps.configurationError(ctx, intentionBySite, "client IP unknown"))
	}

	key := BySiteKey(site, rc.ClientIP)
	logger := log.Ctx(ctx).With().Str("key", key).Logger()

	cached, found, err := b.cache.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("cache lookup failed, continuing without cache")
	}
	if found {
		logger.Debug().Msg("hit: serving cached value")
		return upstream.NewSuccess(cached, upstream.SourceCache)
	}

	token := b.deps.Tokens.TokenWithRetry(ctx)
	if err, failed := token.Failed(); failed {
		return upstream.NewFailed[json.RawMessage](err)
	}
	accessToken, _ := token.Get()

	url := b.deps.endpoints().BookiesBySite(b.deps.Config.TrackedCategory(), site, rc.ClientIP, accessToken)
	resp := b.deps.Gateway.Get(ctx, url)

	var payload json.RawMessage
	if apiErr := b.decoder.DecodePayload(ctx, resp, intentionBySite, &payload); apiErr != nil {
		return upstream.NewFailed[json.RawMessage](apiErr)
	}

	if payload == nil {
		payload = emptyList
	}

	if err := b.cache.Set(ctx, key, payload, BySiteTTL); err != nil {
		logger.Warn().Err(err).Msg("cache write failed")
	}

	if !nonEmpty(payload) {
		logger.Debug().Msg("miss: empty answer cached")
		return upstream.NewEmpty(payload)
	}

	logger.Debug().Dur("ttl", BySiteTTL).Msg("miss: fetched and cached")

	return upstream.NewSuccess(payload, upstream.SourceNetwork)
}
