package locking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLocker_MutualExclusion(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "ledger:1:2", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	_, ok, err = locker.TryLock(ctx, "ledger:1:2", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	// A different key is unaffected.
	_, ok, err = locker.TryLock(ctx, "ledger:1:3", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, locker.Release(ctx, "ledger:1:2", token))
	_, ok, err = locker.TryLock(ctx, "ledger:1:2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLocalLocker_ReleaseRequiresToken(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	token, ok, err := locker.TryLock(ctx, "ledger:5:5", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, locker.Release(ctx, "ledger:5:5", "stale-token"))
	_, ok, err = locker.TryLock(ctx, "ledger:5:5", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok, "lock must survive a release with the wrong token")

	require.NoError(t, locker.Release(ctx, "ledger:5:5", token))
}

func TestLocalLocker_ExpiresAfterTTL(t *testing.T) {
	locker := NewLocalLocker()
	ctx := context.Background()

	_, ok, err := locker.TryLock(ctx, "ledger:7:7", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)

	_, ok, err = locker.TryLock(ctx, "ledger:7:7", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}
