package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educa/core"
)

type cached struct {
	ID    string `json:"id"`
	Count int    `json:"count"`
}

func testCache(t *testing.T, c core.Cache) {
	ctx := context.Background()

	var dst []cached
	found, err := c.Get(ctx, "lol", &dst)
	require.NoError(t, err)
	assert.False(t, found)

	want := []cached{{ID: "a", Count: 1}, {ID: "b", Count: 2}}
	require.NoError(t, c.Set(ctx, "list", want, time.Minute))
	require.NoError(t, c.Set(ctx, "other", cached{ID: "c"}, time.Minute))

	found, err = c.Get(ctx, "list", &dst)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, want, dst)

	require.NoError(t, c.Delete(ctx, "list", "other", "unknown"))
	found, err = c.Get(ctx, "list", &dst)
	require.NoError(t, err)
	assert.False(t, found)
	var other cached
	found, err = c.Get(ctx, "other", &other)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache(t *testing.T) {
	testCache(t, NewMemoryCache())
}

func TestMemoryCache_expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "key", cached{ID: "a"}, time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	var dst cached
	found, err := c.Get(ctx, "key", &dst)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisCache(t *testing.T) {
	srv := miniredis.RunT(t)
	c, err := NewRedisCache(context.Background(), "redis://"+srv.Addr(), &core.Config{AppName: "test"})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	testCache(t, c)
}

func TestRedisCache_expiry(t *testing.T) {
	ctx := context.Background()
	srv := miniredis.RunT(t)
	c, err := NewRedisCache(ctx, "redis://"+srv.Addr(), &core.Config{AppName: "test"})
	require.NoError(t, err)
	defer func() { _ = c.Close() }()

	require.NoError(t, c.Set(ctx, "key", cached{ID: "a"}, time.Minute))
	assert.True(t, srv.Exists("test:key"))

	srv.FastForward(2 * time.Minute)
	var dst cached
	found, err := c.Get(ctx, "key", &dst)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNoopCache(t *testing.T) {
	ctx := context.Background()
	c := NoopCache{}
	require.NoError(t, c.Set(ctx, "key", cached{ID: "a"}, time.Minute))
	var dst cached
	found, err := c.Get(ctx, "key", &dst)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, &core.Config{})
	require.NoError(t, err)
	assert.IsType(t, &MemoryCache{}, c)

	srv := miniredis.RunT(t)
	conf := &core.Config{AppName: "test"}
	conf.Cache.RedisURL = "redis://" + srv.Addr()
	c, err = New(ctx, conf)
	require.NoError(t, err)
	if assert.IsType(t, &RedisCache{}, c) {
		defer func() { _ = c.(*RedisCache).Close() }()
	}
	require.NoError(t, c.Set(ctx, "key", cached{ID: "a"}, time.Minute))
	assert.True(t, srv.Exists("test:key"))

	conf.Cache.RedisURL = "redis://127.0.0.1:1"
	c, err = New(ctx, conf)
	assert.Error(t, err)
	assert.Nil(t, c)
}
