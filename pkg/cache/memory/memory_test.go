package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zitadel/ciba/pkg/op"
)

func TestCache_Live(t *testing.T) {
	ctx := context.Background()
	c := New(0)
	expiresAt := time.Now().Add(time.Minute).Truncate(time.Second)

	require.NoError(t, c.PutLive(ctx, op.LiveEntry{AuthReqID: "a", ExpiresAt: expiresAt}))
	require.NoError(t, c.PutLive(ctx, op.LiveEntry{AuthReqID: "b", ExpiresAt: time.Now().Add(-time.Minute)}))

	entries, err := c.LiveSet(ctx, time.Time{})
	require.NoError(t, err)
	assert.Len(t, entries, 2, "overdue entries stay visible during the grace period")
	assert.Contains(t, entries, op.LiveEntry{AuthReqID: "a", ExpiresAt: expiresAt})

	entries, err = c.LiveSet(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].AuthReqID)
	entries, err = c.LiveSet(ctx, expiresAt)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the bound is inclusive")

	require.NoError(t, c.RemoveLive(ctx, "a"))
	require.NoError(t, c.RemoveLive(ctx, "unknown"))
	entries, err = c.LiveSet(ctx, time.Time{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b", entries[0].AuthReqID)
}

func TestCache_LiveGrace(t *testing.T) {
	ctx := context.Background()
	c := New(10 * time.Millisecond)
	require.NoError(t, c.PutLive(ctx, op.LiveEntry{AuthReqID: "a", ExpiresAt: time.Now()}))

	time.Sleep(30 * time.Millisecond)
	entries, err := c.LiveSet(ctx, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCache_Add(t *testing.T) {
	ctx := context.Background()
	c := New(0)

	ok, err := c.Add(ctx, "client:jti", 20*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = c.Add(ctx, "client:jti", 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "replay within ttl")

	time.Sleep(40 * time.Millisecond)
	ok, err = c.Add(ctx, "client:jti", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok, "ttl passed")
}

func TestCache_AddConcurrent(t *testing.T) {
	ctx := context.Background()
	c := New(0)
	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
	)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := c.Add(ctx, "same", time.Minute); ok {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 1, accepted.Load())
}
