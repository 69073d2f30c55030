// Package snapshot keeps the last known good payload of each durable resource
// class. Entries never expire: they are replaced only by a newer verified
// payload and removed only by Deactivate.
package snapshot

import "context"

// Option names of the durable resource classes.
const (
	Bookies      = "TAP_BOOKIES"
	Sports       = "TAP_DEPORTES"
	Competitions = "TAP_COMPETICIONES"
)

// Names lists every option managed by the activation lifecycle.
var Names = []string{Bookies, Sports, Competitions}

// Store is a durable key-value option store.
type Store interface {
	// Get returns the raw value stored under name and whether it exists.
	Get(ctx context.Context, name string) ([]byte, bool, error)

	// Set stores value under name, replacing any existing value.
	Set(ctx context.Context, name string, value []byte) error

	// Add stores value only if name is absent, reporting whether it was added.
	Add(ctx context.Context, name string, value []byte) (bool, error)

	// Delete removes name. Deleting an absent option is not an error.
	Delete(ctx context.Context, name string) error

	Close() error
}
