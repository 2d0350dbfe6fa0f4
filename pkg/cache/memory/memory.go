// Package memory provides the cache tier in process memory,
// backed by github.com/patrickmn/go-cache.
package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zitadel/ciba/pkg/op"
)

// DefaultLiveGrace keeps a live entry after its expiry,
// so the sweeper still finds it.
const DefaultLiveGrace = time.Hour

type Cache struct {
	live   *gocache.Cache
	replay *gocache.Cache
	grace  time.Duration
	now    func() time.Time
}

func New(grace time.Duration) *Cache {
	if grace <= 0 {
		grace = DefaultLiveGrace
	}
	return &Cache{
		live:   gocache.New(gocache.NoExpiration, 10*time.Minute),
		replay: gocache.New(gocache.NoExpiration, time.Minute),
		grace:  grace,
		now:    time.Now,
	}
}

func (c *Cache) PutLive(_ context.Context, entry op.LiveEntry) error {
	ttl := entry.ExpiresAt.Sub(c.now()) + c.grace
	if ttl <= 0 {
		ttl = c.grace
	}
	c.live.Set(entry.AuthReqID, entry.ExpiresAt, ttl)
	return nil
}

func (c *Cache) RemoveLive(_ context.Context, authReqID string) error {
	c.live.Delete(authReqID)
	return nil
}

func (c *Cache) LiveSet(_ context.Context, until time.Time) ([]op.LiveEntry, error) {
	items := c.live.Items()
	entries := make([]op.LiveEntry, 0, len(items))
	for id, item := range items {
		expiresAt, ok := item.Object.(time.Time)
		if !ok || !until.IsZero() && expiresAt.After(until) {
			continue
		}
		entries = append(entries, op.LiveEntry{AuthReqID: id, ExpiresAt: expiresAt})
	}
	return entries, nil
}

// Add implements [op.ReplayCache].
func (c *Cache) Add(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if err := c.replay.Add(key, struct{}{}, ttl); err != nil {
		return false, nil
	}
	return true, nil
}

// TryLock implements [op.Locker] for a single process, where the
// sweeper's own guard is sufficient.
func (c *Cache) TryLock(context.Context, string, time.Duration) (func(), bool, error) {
	return func() {}, true, nil
}
