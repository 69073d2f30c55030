package snapshot

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/todoapuestas/tap-bridge/internal/config"
)

// NewFromConfig opens the snapshot store selected by the configuration.
func NewFromConfig(cfg config.SnapshotConfig) (Store, error) {
	switch cfg.Type {
	case "badger":
		log.Info().Str("snapshot_type", "badger").Str("path", cfg.Path).Msg("opening snapshot store")
		return OpenBadger(cfg.Path)

	case "memory":
		log.Info().Str("snapshot_type", "memory").Msg("opening snapshot store")
		return NewMemory(), nil

	default:
		return nil, fmt.Errorf("invalid snapshot type %q: must be either \"memory\" or \"badger\"", cfg.Type)
	}
}
