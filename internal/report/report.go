// Package report delivers upstream errors to the diagnostics log and to the
// settings-error surface shown to administrators.
package report

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/upstream"
)

// LogReporter writes each error to the context logger at error severity.
type LogReporter struct{}

func (LogReporter) Report(ctx context.Context, err *upstream.APIError) {
	log.Ctx(ctx).Error().
		Str("kind", err.Kind.String()).
		Str("intention", err.Intention).
		Msg(err.Error())
}

// Multi fans an error out to every reporter in order.
type Multi []upstream.Reporter

func (m Multi) Report(ctx context.Context, err *upstream.APIError) {
	for _, r := range m {
		r.Report(ctx, err)
	}
}
