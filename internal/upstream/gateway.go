// Package upstream wraps every call made to the remote API: a single GET with
// a fixed timeout, normalization of the response into a value or an APIError,
// and the URL shapes of each endpoint.
package upstream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds every upstream request when no other value is
// configured.
const DefaultTimeout = 35 * time.Second

// Response is the raw outcome of a gateway call. HTTP error statuses are
// normal responses: only connection level failures set Err.
type Response struct {
	StatusCode int
	Body       []byte
	Err        error
}

// Getter performs a single GET against the upstream API.
type Getter interface {
	Get(ctx context.Context, url string) Response
}

// Gateway is the Getter backed by an HTTP client. It never retries.
type Gateway struct {
	client *http.Client
}

// NewGateway creates a gateway using the transport of the supplied client
// (http.DefaultClient when nil) and the given timeout.
func NewGateway(client *http.Client, timeout time.Duration) *Gateway {
	if client == nil {
		client = http.DefaultClient
	}

	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Gateway{
		client: &http.Client{
			Transport:     client.Transport,
			CheckRedirect: client.CheckRedirect,
			Jar:           client.Jar,
			Timeout:       timeout,
		},
	}
}

func (g *Gateway) Get(ctx context.Context, url string) Response {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Response{Err: fmt.Errorf("create upstream request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Response{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("read upstream response body: %w", err),
		}
	}

	log.Ctx(ctx).Debug().
		Str("path", req.URL.Path).
		Int("status", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("upstream response received")

	return Response{
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}
