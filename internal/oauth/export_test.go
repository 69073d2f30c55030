package oauth

import (
	"time"

	"github.com/todoapuestas/tap-bridge/internal/cache"
)

// SetClock replaces the manager's clock.
func SetClock(m *TokenManager, now func() time.Time) {
	m.now = now
}

// CacheKey exposes the qualified token cache key.
func CacheKey(d cache.Digester) string {
	return tokenKey(d)
}
