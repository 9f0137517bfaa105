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

func setupTestRedis(t *testing.T) (*Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := &Client{Redis: redis.NewClient(&redis.Options{Addr: mr.Addr()})}
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

type payload struct {
	Count int    `json:"count"`
	Total string `json:"total"`
}

func TestClient_JSONRoundTrip(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.SetJSON(ctx, "k", payload{Count: 3, Total: "12.50"}, time.Minute))

	var got payload
	hit, err := client.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, payload{Count: 3, Total: "12.50"}, got)
}

func TestClient_MissAndDelete(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	var got payload
	hit, err := client.GetJSON(ctx, "absent", &got)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, client.SetJSON(ctx, "k", payload{Count: 1}, time.Minute))
	require.NoError(t, client.Delete(ctx, "k"))

	hit, err = client.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestClient_Expiration(t *testing.T) {
	client, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, client.SetJSON(ctx, "k", payload{Count: 1}, time.Second))
	mr.FastForward(2 * time.Second)

	var got payload
	hit, err := client.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestClient_SetJSONIfCounter(t *testing.T) {
	client, _ := setupTestRedis(t)
	ctx := context.Background()

	version, err := client.Counter(ctx, "gen")
	require.NoError(t, err)
	assert.EqualValues(t, 0, version)

	stored, err := client.SetJSONIfCounter(ctx, "gen", version, "k", payload{Count: 1}, time.Minute)
	require.NoError(t, err)
	assert.True(t, stored)

	bumped, err := client.Incr(ctx, "gen")
	require.NoError(t, err)
	assert.EqualValues(t, 1, bumped)

	stored, err = client.SetJSONIfCounter(ctx, "gen", version, "k", payload{Count: 2}, time.Minute)
	require.NoError(t, err)
	assert.False(t, stored, "a stale generation must not overwrite")

	var got payload
	hit, err := client.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, 1, got.Count)
}
