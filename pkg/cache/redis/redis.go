// Package redis provides the cache tier shared by all provider instances.
// Live grants are kept in a sorted set scored by their expiry,
// request object ids and the sweeper lock are plain keys with a TTL.
package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	rdb "github.com/redis/go-redis/v9"

	"github.com/zitadel/ciba/pkg/op"
)

const DefaultKeyPrefix = "ciba:"

type Cache struct {
	client rdb.UniversalClient
	prefix string
}

func New(client rdb.UniversalClient, prefix string) *Cache {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &Cache{client: client, prefix: prefix}
}

// NewFromURL connects to the server described by a redis:// URL.
func NewFromURL(url, prefix string) (*Cache, error) {
	opts, err := rdb.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return New(rdb.NewClient(opts), prefix), nil
}

func (c *Cache) liveKey() string {
	return c.prefix + "live"
}

func (c *Cache) replayKey(key string) string {
	return c.prefix + "jti:" + key
}

func (c *Cache) lockKey(name string) string {
	return c.prefix + "lock:" + name
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *Cache) Close() error {
	return c.client.Close()
}

func (c *Cache) PutLive(ctx context.Context, entry op.LiveEntry) error {
	err := c.client.ZAdd(ctx, c.liveKey(), rdb.Z{
		Score:  float64(entry.ExpiresAt.UnixMilli()),
		Member: entry.AuthReqID,
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to add live entry: %w", err)
	}
	return nil
}

func (c *Cache) RemoveLive(ctx context.Context, authReqID string) error {
	if err := c.client.ZRem(ctx, c.liveKey(), authReqID).Err(); err != nil {
		return fmt.Errorf("failed to remove live entry: %w", err)
	}
	return nil
}

// LiveSet reads the entries scored up to until with ZRANGEBYSCORE.
func (c *Cache) LiveSet(ctx context.Context, until time.Time) ([]op.LiveEntry, error) {
	upper := "+inf"
	if !until.IsZero() {
		upper = strconv.FormatInt(until.UnixMilli(), 10)
	}
	members, err := c.client.ZRangeByScoreWithScores(ctx, c.liveKey(), &rdb.ZRangeBy{
		Min: "-inf",
		Max: upper,
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list live entries: %w", err)
	}
	entries := make([]op.LiveEntry, 0, len(members))
	for _, m := range members {
		id, ok := m.Member.(string)
		if !ok {
			continue
		}
		entries = append(entries, op.LiveEntry{
			AuthReqID: id,
			ExpiresAt: time.UnixMilli(int64(m.Score)),
		})
	}
	return entries, nil
}

// Add implements [op.ReplayCache] with SET NX.
func (c *Cache) Add(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := c.client.SetNX(ctx, c.replayKey(key), 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to record jti: %w", err)
	}
	return ok, nil
}

// unlockScript deletes the lock only if it is still owned by the caller.
var unlockScript = rdb.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// TryLock implements [op.Locker] with SET NX PX.
func (c *Cache) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	key := c.lockKey(name)
	token := uuid.NewString()
	ok, err := c.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	unlock := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		// a lock which could not be released expires with its ttl
		_ = unlockScript.Run(ctx, c.client, []string{key}, token).Err()
	}
	return unlock, true, nil
}
