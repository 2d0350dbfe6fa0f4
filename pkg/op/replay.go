package op

import (
	"context"
	"time"
)

// ReplayCache remembers request object ids for a bounded time.
type ReplayCache interface {
	// Add inserts key unless it is already present.
	// It reports false for a key seen within its ttl.
	Add(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

// replayTTL keeps a jti at least until the request object expires.
func replayTTL(minTTL time.Duration, expiresAt, now time.Time) time.Duration {
	if ttl := expiresAt.Sub(now); ttl > minTTL {
		return ttl
	}
	return minTTL
}

func replayKey(clientID, jti string) string {
	return clientID + ":" + jti
}
