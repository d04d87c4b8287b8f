package cache_test

import (
	"context"
	"testing"
	"time"

	"placedir/internal/cache"
	"placedir/pkg/mlog"
	"placedir/pkg/mredis"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/require"
)

type testPlace struct {
	UID   string
	Title string
}

func newTestCache(t *testing.T) *cache.Cache {
	t.Helper()

	mr := miniredis.RunT(t)

	conn := &mredis.RedisConnection{
		ConnectionStringSource: "redis://" + mr.Addr(),
		Logger:                 &mlog.NoneLogger{},
	}

	return cache.New(conn, time.Minute, &mlog.NoneLogger{})
}

func TestCacheSetThenGetRoundTrips(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	want := []testPlace{{UID: "place-1", Title: "Garden"}}
	c.Set(ctx, "places:place-1", want)

	var got []testPlace
	found := c.Get(ctx, "places:place-1", &got)

	require.True(t, found)
	require.Equal(t, want, got)
}

func TestCacheGetMissReturnsFalse(t *testing.T) {
	c := newTestCache(t)

	var got []testPlace
	found := c.Get(context.Background(), "nonexistent-key", &got)

	require.False(t, found)
	require.Nil(t, got)
}

func TestCacheInvalidateRemovesKey(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	c.Set(ctx, "places:place-1", []testPlace{{UID: "place-1"}})
	c.Invalidate(ctx, "places:place-1")

	var got []testPlace
	require.False(t, c.Get(ctx, "places:place-1", &got))
}

func TestNilCacheIsDisabled(t *testing.T) {
	var c *cache.Cache

	var got []testPlace
	require.False(t, c.Get(context.Background(), "any", &got))

	require.NotPanics(t, func() {
		c.Set(context.Background(), "any", got)
		c.Invalidate(context.Background(), "any")
	})
}
