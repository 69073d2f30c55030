// Package audit writes one structured log entry per request, describing the
// caller and which data was served to them.
package audit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Level is used for audit entries so they are written regardless of the
// configured log level.
const Level = zerolog.Level(20)

type key struct{}

var logKey = key{}

// Entry is the audit record of a single request. Handlers fill in the fetch
// fields as they serve the request.
type Entry struct {
	Method    string
	Path      string
	Status    int
	SourceIP  string
	UserAgent string

	// ClientIP is the caller address resolved from forwarding headers.
	ClientIP string
	Resource string
	Source   string
	Site     string
	LookupIP string
	Group    string

	Error string
}

func (e *Entry) MarshalZerologObject(event *zerolog.Event) {
	request := zerolog.Dict().
		Str("method", e.Method).
		Str("path", e.Path).
		Int("status", e.Status).
		Str("sourceIP", e.SourceIP).
		Str("userAgent", e.UserAgent)
	event.Dict("request", request)

	fetch := NewOptionalEvent(nil).
		Str("clientIP", e.ClientIP).
		Str("resource", e.Resource).
		Str("source", e.Source).
		Str("site", e.Site).
		Str("lookupIP", e.LookupIP).
		Str("group", e.Group)
	fetch.Set(event, "fetch")

	if e.Error != "" {
		event.Str("error", e.Error)
	}
}

// Begin records the request details.
func (e *Entry) Begin(r *http.Request) {
	e.Method = r.Method
	e.Path = r.URL.Path
	e.SourceIP = r.RemoteAddr
	e.UserAgent = r.UserAgent()
}

// End returns a function that writes the entry, intended to be deferred. A
// panic in flight is recorded on the entry and then re-raised.
func (e *Entry) End(ctx context.Context) func() {
	return func() {
		if r := recover(); r != nil {
			if e.Error != "" {
				e.Error += "; "
			}
			e.Error += fmt.Sprintf("panic: %v", r)

			defer panic(r)
		}

		if e.Status == 0 {
			e.Status = http.StatusOK
		}

		log.Ctx(ctx).WithLevel(Level).EmbedObject(e).Msg("audit_event")
	}
}

// Log returns the audit entry for the context, creating an unattached entry
// when none exists so callers never need to check.
func Log(ctx context.Context) *Entry {
	_, e := Context(ctx)
	return e
}

// Context returns the audit entry of ctx, adding a new one if absent.
func Context(ctx context.Context) (context.Context, *Entry) {
	if e, ok := ctx.Value(logKey).(*Entry); ok {
		return ctx, e
	}

	e := &Entry{}
	return context.WithValue(ctx, logKey, e), e
}

// Middleware attaches an audit entry to each request and writes it when the
// request completes.
func Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, entry := Context(r.Context())

			entry.Begin(r)
			defer entry.End(ctx)()

			next.ServeHTTP(&statusRecorder{ResponseWriter: w, entry: entry}, r.WithContext(ctx))
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	entry *Entry
}

func (s *statusRecorder) WriteHeader(status int) {
	s.entry.Status = status
	s.ResponseWriter.WriteHeader(status)
}

func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
