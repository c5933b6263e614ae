package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/fixpath/pkg/adapters/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocker_LockUnlock(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "resource-1", 5*time.Second)
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:resource-1"))

	require.NoError(t, unlock(ctx))
	assert.False(t, mr.Exists("test:lock:resource-1"))
}

func TestLocker_Contention(t *testing.T) {
	_, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "resource-1", 5*time.Second)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err = locker.Lock(waitCtx, "resource-1", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.WithinDuration(t, start.Add(500*time.Millisecond), time.Now(), 200*time.Millisecond)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "resource-1", 5*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}

func TestLocker_UnlockIgnoresForeignToken(t *testing.T) {
	mr, client := newClient(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "resource-1", 5*time.Second)
	require.NoError(t, err)

	// Simulate expiry followed by another holder taking the lock.
	require.NoError(t, mr.Set("test:lock:resource-1", "someone-else"))

	require.NoError(t, unlock(ctx))
	got, err := mr.Get("test:lock:resource-1")
	require.NoError(t, err)
	assert.Equal(t, "someone-else", got)
}
