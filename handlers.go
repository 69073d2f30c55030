package main

import (
	"context"
	"io"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/audit"
	"github.com/todoapuestas/tap-bridge/internal/clientip"
	"github.com/todoapuestas/tap-bridge/internal/report"
	"github.com/todoapuestas/tap-bridge/internal/resource"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
)

const (
	// sourceHeader tells the caller where the served value came from.
	sourceHeader = "X-Tap-Source"

	sessionCookie = "tap_session"
	defaultGroup  = "tap"
)

// Fetcher serves one of the durable lists.
type Fetcher interface {
	Fetch(ctx context.Context) upstream.Result[json.RawMessage]
}

func handleDurable(name string, fetcher Fetcher) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		entry := audit.Log(r.Context())
		entry.Resource = name

		writeResult(w, entry, fetcher.Fetch(r.Context()))
	})
}

func handleBookiesBySite(fetcher *resource.BookiesBySite) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		rc := resource.RequestContext{ClientIP: clientip.FromRequest(r)}
		site := r.PathValue("site")

		entry := audit.Log(r.Context())
		entry.Resource = "bookies-by-site"
		entry.ClientIP = rc.ClientIP
		entry.Site = site

		writeResult(w, entry, fetcher.Fetch(r.Context(), rc, site))
	})
}

func handleCountryByIP(fetcher *resource.CountryByIP, sessions *resource.Sessions) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		rc := resource.RequestContext{
			ClientIP: clientip.FromRequest(r),
			Session:  sessions.For(sessionID(w, r)),
		}

		lookupIP := r.PathValue("ip")
		group := r.URL.Query().Get("group")
		if group == "" {
			group = defaultGroup
		}

		entry := audit.Log(r.Context())
		entry.Resource = "country-by-ip"
		entry.ClientIP = rc.ClientIP
		entry.LookupIP = lookupIP
		entry.Group = group

		writeResult(w, entry, fetcher.Lookup(r.Context(), rc, lookupIP, group))
	})
}

func handleSettingsErrors(settings *report.SettingsErrors) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		audit.Log(r.Context()).Resource = "settings-errors"

		writeJSON(w, http.StatusOK, settings.List())
	})
}

func handleClearSettingsErrors(settings *report.SettingsErrors) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		audit.Log(r.Context()).Resource = "settings-errors"

		settings.Clear()
		w.WriteHeader(http.StatusNoContent)
	})
}

func handleHealthCheck() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer drainRequestBody(r)

		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})
}

// sessionID returns the caller's session identifier, issuing a new cookie when
// the request carries none or an invalid one.
func sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if id, err := uuid.Parse(c.Value); err == nil {
			return id.String()
		}
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// writeResult answers with the value of result, or 503 when nothing could be
// served at all.
func writeResult(w http.ResponseWriter, entry *audit.Entry, result upstream.Result[json.RawMessage]) {
	entry.Source = result.Source().String()

	if err, failed := result.Failed(); failed {
		entry.Error = err.Error()
		log.Info().Err(err).Str("resource", entry.Resource).Msg("fetch failed with nothing to serve")
		writeJSONError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	if err := result.Err(); err != nil {
		entry.Error = err.Error()
	}

	w.Header().Set(sourceHeader, result.Source().String())
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(result.Value()); err != nil {
		log.Info().Msgf("failed to write response: %v\n", err)
	}
}

func maxRequestSize(limit int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.MaxBytesHandler(next, limit)
	}
}

// ErrorResponse represents a JSON error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// writeJSONError writes a JSON error response with the given status code and message.
func writeJSONError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// At this point the status code has been written, so we can only log
		log.Info().Msgf("failed to write JSON response: %v", err)
	}
}

// drainRequestBody drains the request body by reading and discarding the contents.
// This is useful to ensure the request body is fully consumed, which is important
// for connection reuse in HTTP/1 clients.
func drainRequestBody(r *http.Request) {
	if r.Body != nil {
		// 5kb max: after this we'll assume the client is broken or malicious
		// and close the connection
		io.CopyN(io.Discard, r.Body, 5*1024*1024)
	}
}
