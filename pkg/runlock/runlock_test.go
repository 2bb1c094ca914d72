package runlock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestLock_TryLock(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)

	first := New(client, DefaultKey, time.Minute)
	second := New(client, DefaultKey, time.Minute)

	release, ok, err := first.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists(DefaultKey))

	_, ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "lock is held")

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists(DefaultKey))

	release, ok, err = second.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, release(ctx))
}

func TestLock_Expiry(t *testing.T) {
	ctx := context.Background()
	mr, client := setupRedis(t)

	lock := New(client, "job", time.Second)
	staleRelease, ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Second)

	release, ok, err := lock.TryLock(ctx)
	require.NoError(t, err)
	require.True(t, ok, "expired lock can be taken")

	// The stale holder must not drop the new holder's lock.
	require.NoError(t, staleRelease(ctx))
	assert.True(t, mr.Exists("job"))

	require.NoError(t, release(ctx))
	assert.False(t, mr.Exists("job"))
}

func TestLock_DefaultTTL(t *testing.T) {
	_, client := setupRedis(t)
	assert.Equal(t, 10*time.Minute, New(client, "k", 0).ttl)
}

func TestLock_Unavailable(t *testing.T) {
	mr, client := setupRedis(t)
	mr.Close()

	_, ok, err := New(client, "k", time.Minute).TryLock(context.Background())
	require.Error(t, err)
	assert.False(t, ok)
}

func TestConnect(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := Connect(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	assert.NoError(t, client.Close())

	_, err = Connect(context.Background(), "://bad")
	require.Error(t, err)
}
