package resource

import (
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/cache"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
)

// CountryTTL is the cache lifetime of a geo-IP lookup.
const CountryTTL = 24 * time.Hour

const intentionCountry = "Request Country by IP"

// CountryByIP resolves the country of an address. The most recent answer per
// grouping name is also remembered in the caller's session.
type CountryByIP struct {
	deps    Dependencies
	cache   cache.Store[json.RawMessage]
	decoder *upstream.Decoder
}

func NewCountryByIP(deps Dependencies, store cache.Store[json.RawMessage]) *CountryByIP {
	return &CountryByIP{
		deps:    deps,
		cache:   store,
		decoder: upstream.NewDecoder(deps.reporter()),
	}
}

// Lookup resolves ip, defaulting to the caller's own address when empty.
func (c *CountryByIP) Lookup(ctx context.Context, rc RequestContext, ip, group string) upstream.Result[json.RawMessage] {
	if ip == "" {
		ip = rc.ClientIP
	}
	if ip == "" {
		return upstream.NewFailed[json.RawMessage](c.deps.configurationError(ctx, intentionCountry, "no IP address to look up"))
	}

	if rc.Session != nil {
		if entry, ok := rc.Session.Lookup(group); ok && entry.IP == ip {
			return upstream.NewSuccess(entry.Country, upstream.SourceSession)
		}
	}

	key := CountryKey(ip)
	logger := log.Ctx(ctx).With().Str("key", key).Str("group", group).Logger()

	cached, found, err := c.cache.Get(ctx, key)
	if err != nil {
		logger.Warn().Err(err).Msg("cache lookup failed, continuing without cache")
	}
	if found {
		logger.Debug().Msg("hit: serving cached value")
		c.remember(rc, group, ip, cached)
		return upstream.NewSuccess(cached, upstream.SourceCache)
	}

	token := c.deps.Tokens.TokenWithRetry(ctx)
	if err, failed := token.Failed(); failed {
		return upstream.NewFailed[json.RawMessage](err)
	}
	accessToken, _ := token.Get()

	resp := c.deps.Gateway.Get(ctx, c.deps.endpoints().CountryByIP(ip, accessToken))

	var payload json.RawMessage
	if apiErr := c.decoder.DecodePayload(ctx, resp, intentionCountry, &payload); apiErr != nil {
		return upstream.NewFailed[json.RawMessage](apiErr)
	}

	if !nonEmpty(payload) {
		logger.Info().Msg("upstream returned no country")
		return upstream.NewEmpty(emptyObject)
	}

	if err := c.cache.Set(ctx, key, payload, CountryTTL); err != nil {
		logger.Warn().Err(err).Msg("cache write failed")
	}
	c.remember(rc, group, ip, payload)

	logger.Debug().Dur("ttl", CountryTTL).Msg("miss: fetched and cached")

	return upstream.NewSuccess(payload, upstream.SourceNetwork)
}

func (c *CountryByIP) remember(rc RequestContext, group, ip string, country json.RawMessage) {
	if rc.Session == nil {
		return
	}
	rc.Session.Remember(group, SessionEntry{IP: ip, Country: country})
}
