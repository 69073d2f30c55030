package report

import (
	"context"
	"sync"
	"time"

	"github.com/todoapuestas/tap-bridge/internal/upstream"
)

const (
	// SettingsGroup is the group every settings error is filed under.
	SettingsGroup = "tap-bridge"

	// DefaultSettingsCapacity bounds the number of retained settings errors.
	DefaultSettingsCapacity = 50
)

// SettingsError is a single entry on the settings-error surface.
type SettingsError struct {
	Group    string    `json:"group"`
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Reported time.Time `json:"reported"`
}

// SettingsErrors retains the most recent errors for display to an
// administrator. When full, the oldest entry is dropped.
type SettingsErrors struct {
	mu       sync.Mutex
	capacity int
	entries  []SettingsError
	now      func() time.Time
}

func NewSettingsErrors(capacity int) *SettingsErrors {
	if capacity <= 0 {
		capacity = DefaultSettingsCapacity
	}

	return &SettingsErrors{
		capacity: capacity,
		now:      time.Now,
	}
}

func (s *SettingsErrors) Report(_ context.Context, err *upstream.APIError) {
	s.Add(SettingsGroup, err.Kind.String(), err.Error())
}

// Add records an entry directly.
func (s *SettingsErrors) Add(group, code, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.entries) == s.capacity {
		s.entries = s.entries[1:]
	}

	s.entries = append(s.entries, SettingsError{
		Group:    group,
		Code:     code,
		Message:  message,
		Reported: s.now().UTC(),
	})
}

// List returns a copy of the retained entries, oldest first.
func (s *SettingsErrors) List() []SettingsError {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]SettingsError, len(s.entries))
	copy(out, s.entries)

	return out
}

// Clear drops every retained entry.
func (s *SettingsErrors) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = nil
}
