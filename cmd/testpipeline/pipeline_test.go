package testpipeline

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newClient connects to a running moonstone server.
// Set MOONSTONE_ADDR to enable these tests, e.g. MOONSTONE_ADDR=127.0.0.1:6380
func newClient(t *testing.T) *redis.Client {
	t.Helper()

	addr := os.Getenv("MOONSTONE_ADDR")
	if addr == "" {
		t.Skip("MOONSTONE_ADDR not set, skipping integration test")
	}

	rdb := redis.NewClient(&redis.Options{
		Addr: addr,
	})
	t.Cleanup(func() {
		rdb.Close() //nolint:errcheck
	})
	return rdb
}

func TestPipelining(t *testing.T) {
	rdb := newClient(t)
	ctx := context.Background()

	count := 10_000
	pipe := rdb.Pipeline()

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("pipe_key_%d", i)
		val := fmt.Sprintf("val_%d", i)
		pipe.Set(ctx, key, val, 0)
	}

	getResults := make([]*redis.StringCmd, count)
	for i := 0; i < count; i++ {
		key := fmt.Sprintf("pipe_key_%d", i)
		getResults[i] = pipe.Get(ctx, key)
	}

	start := time.Now()
	_, err := pipe.Exec(ctx)
	elapsed := time.Since(start)

	assert.NoError(t, err, "Pipeline execution failed")
	fmt.Printf("Pipeline executed in %v\n", elapsed)

	for i := 0; i < count; i++ {
		expected := fmt.Sprintf("val_%d", i)
		val, err := getResults[i].Result()

		assert.NoError(t, err)
		assert.Equal(t, expected, val, "Key %d mismatch", i)
	}
}

func TestHashAndListCommands(t *testing.T) {
	rdb := newClient(t)
	ctx := context.Background()

	require.NoError(t, rdb.Del(ctx, "it_hash", "it_list").Err())

	require.NoError(t, rdb.HSet(ctx, "it_hash", "field", "value").Err())
	val, err := rdb.HGet(ctx, "it_hash", "field").Result()
	require.NoError(t, err)
	assert.Equal(t, "value", val)

	_, err = rdb.HGet(ctx, "it_hash", "missing").Result()
	assert.ErrorIs(t, err, redis.Nil)

	n, err := rdb.RPush(ctx, "it_list", "a", "b", "c").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	items, err := rdb.LRange(ctx, "it_list", 0, -1).Result()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, items)

	head, err := rdb.LPop(ctx, "it_list").Result()
	require.NoError(t, err)
	assert.Equal(t, "a", head)
}

func TestExpireOverWire(t *testing.T) {
	rdb := newClient(t)
	ctx := context.Background()

	require.NoError(t, rdb.Set(ctx, "it_ttl", "v", 0).Err())
	require.NoError(t, rdb.Expire(ctx, "it_ttl", 1*time.Second).Err())

	ttl, err := rdb.TTL(ctx, "it_ttl").Result()
	require.NoError(t, err)
	assert.Positive(t, ttl)

	assert.Eventually(t, func() bool {
		_, err := rdb.Get(ctx, "it_ttl").Result()
		return err == redis.Nil
	}, 3*time.Second, 100*time.Millisecond, "key never expired over the wire")
}
