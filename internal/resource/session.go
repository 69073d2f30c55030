package resource

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/maypok86/otter/v2"
)

// SessionEntry is the last geo-IP result remembered for a grouping name.
type SessionEntry struct {
	IP      string
	Country json.RawMessage
}

// Session remembers results per grouping name for a single caller.
type Session interface {
	Lookup(group string) (SessionEntry, bool)
	Remember(group string, entry SessionEntry)
}

// Sessions holds every caller's session. Idle sessions are evicted.
type Sessions struct {
	cache *otter.Cache[string, SessionEntry]
}

func NewSessions(maxSize int, idle time.Duration) (*Sessions, error) {
	cache, err := otter.New(&otter.Options[string, SessionEntry]{
		MaximumSize:      maxSize,
		ExpiryCalculator: otter.ExpiryAccessing[string, SessionEntry](idle),
	})
	if err != nil {
		return nil, err
	}

	return &Sessions{cache: cache}, nil
}

// For returns the session identified by id.
func (s *Sessions) For(id string) Session {
	return session{id: id, sessions: s}
}

type session struct {
	id       string
	sessions *Sessions
}

func (s session) key(group string) string {
	return s.id + "\x00" + group
}

func (s session) Lookup(group string) (SessionEntry, bool) {
	return s.sessions.cache.GetIfPresent(s.key(group))
}

func (s session) Remember(group string, entry SessionEntry) {
	s.sessions.cache.Set(s.key(group), entry)
}
