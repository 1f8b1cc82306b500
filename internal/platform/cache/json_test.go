package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSONFetchCachesUntilBump(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c := NewJSON(client, "portal:stats", time.Minute)
	ctx := context.Background()
	calls := 0
	loader := func(context.Context) (any, error) {
		calls++
		return map[string]int{"coursesCount": calls}, nil
	}

	key, err := c.BuildKey(ctx, "manager", "u1")
	require.NoError(t, err)
	assert.Equal(t, "portal:stats:manager:u1:1", key)

	var got map[string]int
	hit, err := c.FetchJSON(ctx, key, &got, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, got["coursesCount"])

	hit, err = c.FetchJSON(ctx, key, &got, loader)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, calls)

	require.NoError(t, c.Bump(ctx))
	key, err = c.BuildKey(ctx, "manager", "u1")
	require.NoError(t, err)
	hit, err = c.FetchJSON(ctx, key, &got, loader)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 2, got["coursesCount"])
}

func TestJSONWithoutClientCallsLoader(t *testing.T) {
	var c *JSON
	key, err := c.BuildKey(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, "x", key)

	var got []string
	hit, err := c.FetchJSON(context.Background(), key, &got, func(context.Context) (any, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, []string{"a"}, got)
}
