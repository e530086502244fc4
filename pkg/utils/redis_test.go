package utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupLimiter(t *testing.T, limit int) (*miniredis.Miniredis, *SlotLimiter) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, NewSlotLimiter(rdb, "telecrm:upload:", limit, time.Minute)
}

func TestSlotLimiter_EnforcesLimitPerKey(t *testing.T) {
	_, l := setupLimiter(t, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, err := l.Acquire(ctx, "dev-1")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := l.Acquire(ctx, "dev-1")
	require.NoError(t, err)
	assert.False(t, ok, "third slot must be rejected")

	ok, err = l.Acquire(ctx, "dev-2")
	require.NoError(t, err)
	assert.True(t, ok, "other devices are independent")
}

func TestSlotLimiter_ReleaseFreesSlotAndDeletesKey(t *testing.T) {
	mr, l := setupLimiter(t, 1)
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "dev-1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, mr.Exists("telecrm:upload:dev-1"))

	require.NoError(t, l.Release(ctx, "dev-1"))
	assert.False(t, mr.Exists("telecrm:upload:dev-1"))

	ok, err = l.Acquire(ctx, "dev-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSlotLimiter_TTLSet(t *testing.T) {
	mr, l := setupLimiter(t, 1)
	_, err := l.Acquire(context.Background(), "dev-1")
	require.NoError(t, err)
	assert.Greater(t, mr.TTL("telecrm:upload:dev-1"), time.Duration(0))
}

func TestSlotLimiter_RejectsEmptyKey(t *testing.T) {
	_, l := setupLimiter(t, 1)
	_, err := l.Acquire(context.Background(), "")
	assert.Error(t, err)
}
