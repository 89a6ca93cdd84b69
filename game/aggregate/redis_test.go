package aggregate

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests need a live server, e.g. REDIS_ADDR=localhost:6379
func newTestRedis(t *testing.T) *RedisStore {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	r, err := NewRedisStore(context.Background(), "redis://"+addr+"/0", nil)
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedisStore_LoadStore(t *testing.T) {
	ctx := context.Background()
	r := newTestRedis(t)
	key := "memory.test." + uuid.NewString()
	t.Cleanup(func() { r.rdb.Del(context.Background(), key) })

	v, err := r.Load(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, v)

	v, err = Increment(ctx, r, nil, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = r.Load(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestRedisStore_BroadcastReachesSubscribers(t *testing.T) {
	r := newTestRedis(t)
	key := "memory.test." + uuid.NewString()
	t.Cleanup(func() { r.rdb.Del(context.Background(), key) })

	got := make(chan string, 4)
	unsubscribe := r.Subscribe(func(k string) {
		if k == key {
			got <- k
		}
	})
	defer unsubscribe()

	_, err := Increment(context.Background(), r, r, key)
	require.NoError(t, err)

	select {
	case k := <-got:
		assert.Equal(t, key, k)
	case <-time.After(5 * time.Second):
		t.Fatal("no change notification received")
	}
}

func TestNewRedisStore_InvalidURL(t *testing.T) {
	_, err := NewRedisStore(context.Background(), "not-a-url", nil)
	assert.Error(t, err)
}
