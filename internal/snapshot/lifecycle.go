package snapshot

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

var emptyList = []byte("[]")

// Activate seeds each durable option with an empty list. Existing values are
// left untouched so that a restart keeps the last known good data.
func Activate(ctx context.Context, store Store) error {
	for _, name := range Names {
		added, err := store.Add(ctx, name, emptyList)
		if err != nil {
			return fmt.Errorf("activate snapshot %s: %w", name, err)
		}

		log.Ctx(ctx).Debug().Str("option", name).Bool("added", added).Msg("snapshot activated")
	}

	return nil
}

// Deactivate removes every durable option.
func Deactivate(ctx context.Context, store Store) error {
	for _, name := range Names {
		if err := store.Delete(ctx, name); err != nil {
			return fmt.Errorf("deactivate snapshot %s: %w", name, err)
		}
	}

	log.Ctx(ctx).Info().Strs("options", Names).Msg("snapshots removed")

	return nil
}
