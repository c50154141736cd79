package repo

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLockerExclusive(t *testing.T) {
	_, client := newTestRedis(t)
	locker := NewRedisLocker(client, "ax5:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "c1", time.Minute)
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 250*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(waitCtx, "c1", time.Minute)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := locker.Lock(ctx, "c2", time.Minute)
	require.NoError(t, err)
	require.NoError(t, other(ctx))

	require.NoError(t, unlock(ctx))
	again, err := locker.Lock(ctx, "c1", time.Minute)
	require.NoError(t, err)
	require.NoError(t, again(ctx))
}

func TestRedisLockerReleaseChecksToken(t *testing.T) {
	mr, client := newTestRedis(t)
	locker := NewRedisLocker(client, "ax5:")
	ctx := context.Background()

	stale, err := locker.Lock(ctx, "c1", time.Second)
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)
	fresh, err := locker.Lock(ctx, "c1", time.Minute)
	require.NoError(t, err)

	// The expired holder must not release the new holder's lock.
	require.NoError(t, stale(ctx))
	assert.True(t, mr.Exists("ax5:lock:c1"))

	require.NoError(t, fresh(ctx))
	assert.False(t, mr.Exists("ax5:lock:c1"))
}
