// Package oauth manages the client-credentials access token used by every
// upstream resource call.
package oauth

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/cache"
	"github.com/todoapuestas/tap-bridge/internal/config"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	// TokenKey is the cache key of the access token, before it is qualified
	// with the digest of the credentials.
	TokenKey = "oauth token"

	// MaxAttempts bounds the attempts made by TokenWithRetry.
	MaxAttempts = 3

	intentionToken       = "Access Token"
	intentionCredentials = "OAuth Credentials"
	intentionResponse    = "OAuth Response"
)

// CredentialsProvider supplies the credentials for the exchange. They are read
// on every call so that configuration changes apply without a restart.
type CredentialsProvider interface {
	Credentials() config.Credentials
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenManager obtains access tokens, caching each one for the lifetime the
// server grants it.
type TokenManager struct {
	credentials CredentialsProvider
	cache       cache.Store[oauth2.Token]
	gateway     upstream.Getter
	decoder     *upstream.Decoder
	reporter    upstream.Reporter
	now         func() time.Time
}

func NewTokenManager(credentials CredentialsProvider, store cache.Store[oauth2.Token], gateway upstream.Getter, reporter upstream.Reporter) *TokenManager {
	if reporter == nil {
		reporter = upstream.Discard
	}

	return &TokenManager{
		credentials: credentials,
		cache:       store,
		gateway:     gateway,
		decoder:     upstream.NewDecoder(reporter),
		reporter:    reporter,
		now:         time.Now,
	}
}

// tokenKey qualifies TokenKey so that a token issued to one client is never
// served to another.
func tokenKey(d cache.Digester) string {
	return TokenKey + " " + d.Digest()
}

// Token makes a single attempt to obtain an access token: from the cache when
// an unexpired token is present, otherwise from the upstream exchange.
func (m *TokenManager) Token(ctx context.Context) upstream.Result[string] {
	creds := m.credentials.Credentials()
	key := tokenKey(creds)
	span := trace.SpanFromContext(ctx)

	cached, found, err := m.cache.Get(ctx, key)
	if err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("token cache lookup failed, continuing without cache")
	}
	if found && cached.AccessToken != "" && m.now().Before(cached.Expiry) {
		log.Ctx(ctx).Debug().Str("key", key).Time("expiry", cached.Expiry).Msg("hit: cached access token")
		span.SetAttributes(attribute.String("tap.token.source", upstream.SourceCache.String()))

		return upstream.NewSuccess(cached.AccessToken, upstream.SourceCache)
	}

	if !creds.Complete() {
		apiErr := upstream.NewError(upstream.KindConfiguration, intentionCredentials,
			"No TAP PUBLIC ID or TAP SECRET KEY given. You must set TAP_PUBLIC_ID and TAP_SECRET_KEY.")
		m.reporter.Report(ctx, apiErr)

		return upstream.NewFailed[string](apiErr)
	}

	url := upstream.NewEndpoints(creds.BaseURL).Token(creds.ClientID, creds.ClientSecret)
	resp := m.gateway.Get(ctx, url)

	var body tokenResponse
	if apiErr := m.decoder.Decode(ctx, resp, intentionToken, &body); apiErr != nil {
		m.invalidate(ctx, key)
		return upstream.NewFailed[string](apiErr)
	}

	if body.AccessToken == "" {
		m.invalidate(ctx, key)

		apiErr := upstream.NewError(upstream.KindDecode, intentionResponse, "Invalid OAuth response body")
		m.reporter.Report(ctx, apiErr)

		return upstream.NewFailed[string](apiErr)
	}

	span.SetAttributes(attribute.String("tap.token.source", upstream.SourceNetwork.String()))

	ttl := time.Duration(body.ExpiresIn) * time.Second
	if ttl <= 0 {
		// without a server supplied lifetime there is nothing safe to cache
		log.Ctx(ctx).Warn().Int64("expires_in", body.ExpiresIn).Msg("access token issued without a lifetime, not caching")
		return upstream.NewSuccess(body.AccessToken, upstream.SourceNetwork)
	}

	token := oauth2.Token{
		AccessToken: body.AccessToken,
		TokenType:   body.TokenType,
		Expiry:      m.now().Add(ttl),
	}
	if err := m.cache.Set(ctx, key, token, ttl); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("token cache write failed")
	} else {
		log.Ctx(ctx).Debug().Str("key", key).Dur("ttl", ttl).Msg("miss: access token cached")
	}

	return upstream.NewSuccess(body.AccessToken, upstream.SourceNetwork)
}

// TokenWithRetry calls Token up to MaxAttempts times, without delay, until a
// token is obtained.
func (m *TokenManager) TokenWithRetry(ctx context.Context) upstream.Result[string] {
	var lastErr error

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		result := m.Token(ctx)

		err, failed := result.Failed()
		if !failed {
			return result
		}

		lastErr = err
		log.Ctx(ctx).Debug().Err(err).Int("attempt", attempt).Msg("access token attempt failed")

		if ctx.Err() != nil {
			break
		}
	}

	apiErr := &upstream.APIError{
		Kind:      upstream.KindExhaustedRetry,
		Intention: intentionToken,
		Message:   "max retries reached",
		Err:       lastErr,
	}
	m.reporter.Report(ctx, apiErr)

	return upstream.NewFailed[string](apiErr)
}

// Invalidate removes the cached token for the current credentials.
func (m *TokenManager) Invalidate(ctx context.Context) error {
	return m.cache.Invalidate(ctx, tokenKey(m.credentials.Credentials()))
}

func (m *TokenManager) invalidate(ctx context.Context, key string) {
	if err := m.cache.Invalidate(ctx, key); err != nil {
		log.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("token cache invalidation failed")
	}
}
