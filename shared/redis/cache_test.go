package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type view struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func newCache(t *testing.T, ttl time.Duration) (*ViewCache[view], *miniredis.Miniredis) {
	t.Helper()
	srv := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewViewCache[view](client, "user:view", ttl), srv
}

func TestViewCacheRoundTrip(t *testing.T) {
	cache, srv := newCache(t, 0)
	ctx := context.Background()

	_, ok := cache.Get(ctx, "1")
	assert.False(t, ok, "empty cache should miss")

	cache.Set(ctx, "1", &view{ID: "1", Name: "Ann"})
	assert.True(t, srv.Exists("user:view:1"), "entry should live under the namespace")

	got, ok := cache.Get(ctx, "1")
	require.True(t, ok)
	assert.Equal(t, view{ID: "1", Name: "Ann"}, *got)

	cache.Delete(ctx, "1")
	_, ok = cache.Get(ctx, "1")
	assert.False(t, ok, "deleted key should miss")
}

func TestViewCacheExpires(t *testing.T) {
	cache, srv := newCache(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, "1", &view{ID: "1"})
	assert.Equal(t, time.Minute, srv.TTL("user:view:1"))
	srv.FastForward(2 * time.Minute)

	_, ok := cache.Get(ctx, "1")
	assert.False(t, ok)
}

func TestViewCacheDropsCorruptEntries(t *testing.T) {
	cache, srv := newCache(t, 0)
	require.NoError(t, srv.Set("user:view:1", "{not json"))

	_, ok := cache.Get(context.Background(), "1")
	assert.False(t, ok)
	assert.False(t, srv.Exists("user:view:1"), "corrupt entry should be removed")
}

func TestViewCacheMissesWhenRedisIsDown(t *testing.T) {
	cache, srv := newCache(t, 0)
	srv.Close()

	_, ok := cache.Get(context.Background(), "1")
	assert.False(t, ok)
	cache.Set(context.Background(), "1", &view{ID: "1"})
}

func TestNewClientFailsWhenUnreachable(t *testing.T) {
	srv := miniredis.RunT(t)
	addr := srv.Addr()
	srv.Close()

	_, err := NewClient(context.Background(), Options{Addr: addr, DialTimeout: time.Second})
	assert.Error(t, err)
}

func TestNewClientConnectsAndPings(t *testing.T) {
	srv := miniredis.RunT(t)

	c, err := NewClient(context.Background(), Options{Addr: srv.Addr()})
	require.NoError(t, err)
	assert.NoError(t, c.Ping(context.Background()))
	assert.NotNil(t, c.Redis())

	srv.Close()
	assert.Error(t, c.Ping(context.Background()), "ping should fail once the server is gone")
	assert.NoError(t, c.Close())
}
