package repository

import (
	"context"
	"testing"
	"time"

	"citizen-kiosk/internal/data/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRedisRateLimitStore_IncrementCreatesRecord(t *testing.T) {
	mr, client := setupMiniredis(t)
	store := NewRedisRateLimitStore(client, time.Hour, zap.NewNop())
	ctx := context.Background()
	first := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.Increment(ctx, "9000000001", entity.ActionOTPRequest, first))
	require.NoError(t, store.Increment(ctx, "9000000001", entity.ActionOTPRequest, first.Add(time.Minute)))

	record, err := store.Get(ctx, "9000000001", entity.ActionOTPRequest)
	require.NoError(t, err)
	require.NotNil(t, record)
	assert.Equal(t, 2, record.Count)
	assert.True(t, record.WindowStart.Equal(first), "window start is set once")
	assert.True(t, record.LastAttempt.Equal(first.Add(time.Minute)))
	assert.Nil(t, record.BlockedUntil)

	assert.Equal(t, time.Hour, mr.TTL("kiosk:ratelimit:OTP_REQUEST:9000000001"))
}

func TestRedisRateLimitStore_SaveReplacesRecord(t *testing.T) {
	_, client := setupMiniredis(t)
	store := NewRedisRateLimitStore(client, time.Hour, zap.NewNop())
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	blocked := now.Add(20 * time.Minute)

	require.NoError(t, store.Save(ctx, &entity.RateLimitRecord{
		Identifier:   "9000000001",
		ActionType:   entity.ActionLogin,
		Count:        5,
		WindowStart:  now,
		LastAttempt:  now,
		BlockedUntil: &blocked,
	}))

	record, err := store.Get(ctx, "9000000001", entity.ActionLogin)
	require.NoError(t, err)
	require.NotNil(t, record.BlockedUntil)
	assert.True(t, record.BlockedUntil.Equal(blocked))
	assert.Equal(t, 5, record.Count)

	// A fresh window drops the block field
	require.NoError(t, store.Save(ctx, &entity.RateLimitRecord{
		Identifier:  "9000000001",
		ActionType:  entity.ActionLogin,
		WindowStart: now.Add(time.Hour),
		LastAttempt: now.Add(time.Hour),
	}))

	record, err = store.Get(ctx, "9000000001", entity.ActionLogin)
	require.NoError(t, err)
	assert.Equal(t, 0, record.Count)
	assert.Nil(t, record.BlockedUntil)
}

func TestRedisRateLimitStore_GetMissingAndDelete(t *testing.T) {
	_, client := setupMiniredis(t)
	store := NewRedisRateLimitStore(client, time.Hour, zap.NewNop())
	ctx := context.Background()

	record, err := store.Get(ctx, "nobody", entity.ActionLogin)
	require.NoError(t, err)
	assert.Nil(t, record)

	require.NoError(t, store.Increment(ctx, "p", entity.ActionLogin, time.Now()))
	require.NoError(t, store.Delete(ctx, "p", entity.ActionLogin))

	record, err = store.Get(ctx, "p", entity.ActionLogin)
	require.NoError(t, err)
	assert.Nil(t, record)
}

func TestRedisRateLimitStore_RedisDown(t *testing.T) {
	mr, client := setupMiniredis(t)
	store := NewRedisRateLimitStore(client, time.Hour, zap.NewNop())
	mr.Close()

	_, err := store.Get(context.Background(), "p", entity.ActionLogin)
	assert.Error(t, err)
}
