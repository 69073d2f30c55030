// Package resource fetches the upstream resources, serving each from the
// expiring cache when possible and degrading to the last known good snapshot
// when the upstream cannot be reached.
package resource

import (
	"bytes"
	"context"
	"time"

	"github.com/goccy/go-json"
	"github.com/todoapuestas/tap-bridge/internal/config"
	"github.com/todoapuestas/tap-bridge/internal/snapshot"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
)

// ConfigurationProvider supplies the settings read on every fetch.
type ConfigurationProvider interface {
	Credentials() config.Credentials
	TrackedCategory() string
	TrackedDomain() string
}

// TokenSource supplies an access token for a resource call.
type TokenSource interface {
	TokenWithRetry(ctx context.Context) upstream.Result[string]
}

// RequestContext carries the per-caller data some fetchers need.
type RequestContext struct {
	// ClientIP is the address of the caller the data is fetched for.
	ClientIP string

	// Session holds per-caller results across requests. It may be nil.
	Session Session
}

// Dependencies are shared by every fetcher.
type Dependencies struct {
	Config    ConfigurationProvider
	Tokens    TokenSource
	Gateway   upstream.Getter
	Reporter  upstream.Reporter
	Snapshots snapshot.Store

	// Now is used for the cache busting timestamp. Defaults to time.Now.
	Now func() time.Time
}

func (d Dependencies) endpoints() upstream.Endpoints {
	e := upstream.NewEndpoints(d.Config.Credentials().BaseURL)
	if d.Now != nil {
		e = e.WithClock(d.Now)
	}
	return e
}

func (d Dependencies) reporter() upstream.Reporter {
	if d.Reporter == nil {
		return upstream.Discard
	}
	return d.Reporter
}

// configurationError reports and returns a failure caused by missing input.
func (d Dependencies) configurationError(ctx context.Context, intention, message string) *upstream.APIError {
	apiErr := upstream.NewError(upstream.KindConfiguration, intention, message)
	d.reporter().Report(ctx, apiErr)
	return apiErr
}

var (
	emptyList   = json.RawMessage(`[]`)
	emptyObject = json.RawMessage(`{}`)
)

// nonEmpty reports whether raw is a JSON array or object with at least one
// element. Scalars and null are never accepted.
func nonEmpty(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return false
	}

	switch raw[0] {
	case '[':
		var list []json.RawMessage
		return json.Unmarshal(raw, &list) == nil && len(list) > 0
	case '{':
		var object map[string]json.RawMessage
		return json.Unmarshal(raw, &object) == nil && len(object) > 0
	default:
		return false
	}
}

// nonEmptyList reports whether raw is a JSON array with at least one element.
func nonEmptyList(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '[' && nonEmpty(raw)
}

// field returns the named member of a JSON object, or nil when raw is not an
// object or has no such member.
func field(raw json.RawMessage, name string) json.RawMessage {
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return nil
	}
	return object[name]
}
