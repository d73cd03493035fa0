package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"familyvault/internal/config"
)

func newLimiter(t *testing.T) (*RedisLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisLimiter(client, 5, 10*time.Minute, time.Minute), mr
}

func TestRedisLimiter_AllowVerify(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, l.AllowVerify(ctx, "acc-1"))
	}
	assert.ErrorIs(t, l.AllowVerify(ctx, "acc-1"), ErrLimited)
	assert.NoError(t, l.AllowVerify(ctx, "acc-2"))

	ttl := mr.TTL(attemptsKey("acc-1"))
	assert.Equal(t, 10*time.Minute, ttl)

	mr.FastForward(10 * time.Minute)
	assert.NoError(t, l.AllowVerify(ctx, "acc-1"))
}

func TestRedisLimiter_AttemptWindowAlwaysExpires(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()
	key := attemptsKey("acc-1")

	for i := 1; i <= 7; i++ {
		_ = l.AllowVerify(ctx, "acc-1")
		assert.Greater(t, mr.TTL(key), time.Duration(0), "attempt %d left the counter without a TTL", i)
		mr.FastForward(time.Minute)
	}

	// Later attempts do not push the window out.
	assert.Equal(t, 3*time.Minute, mr.TTL(key))
	got, err := mr.Get(key)
	require.NoError(t, err)
	assert.Equal(t, "7", got)

	mr.FastForward(3 * time.Minute)
	assert.False(t, mr.Exists(key))
	assert.NoError(t, l.AllowVerify(ctx, "acc-1"))
}

func TestRedisLimiter_AllowResend(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()

	require.NoError(t, l.AllowResend(ctx, "acc-1"))
	assert.ErrorIs(t, l.AllowResend(ctx, "acc-1"), ErrLimited)

	mr.FastForward(time.Minute)
	assert.NoError(t, l.AllowResend(ctx, "acc-1"))
}

func TestRedisLimiter_Reset(t *testing.T) {
	l, mr := newLimiter(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		_ = l.AllowVerify(ctx, "acc-1")
	}
	require.NoError(t, l.Reset(ctx, "acc-1"))
	assert.False(t, mr.Exists(attemptsKey("acc-1")))
	assert.NoError(t, l.AllowVerify(ctx, "acc-1"))
}

func TestRedisLimiter_Unreachable(t *testing.T) {
	client := goredis.NewClient(&goredis.Options{
		Addr:         "127.0.0.1:0",
		DialTimeout:  50 * time.Millisecond,
		ReadTimeout:  50 * time.Millisecond,
		WriteTimeout: 50 * time.Millisecond,
	})
	defer client.Close()
	l := NewRedisLimiter(client, 5, time.Minute, time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err := l.AllowVerify(ctx, "acc-1")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrLimited)
	assert.Error(t, l.AllowResend(ctx, "acc-1"))
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), config.RedisConfig{URL: "redis://" + mr.Addr()})
	require.NoError(t, err)
	defer client.Close()

	_, err = NewRedisClient(context.Background(), config.RedisConfig{URL: "://invalid-url"})
	assert.ErrorContains(t, err, "parse redis url")
}

func TestNoop(t *testing.T) {
	var l Limiter = Noop{}
	ctx := context.Background()
	for i := 0; i < 100; i++ {
		assert.NoError(t, l.AllowVerify(ctx, "acc-1"))
		assert.NoError(t, l.AllowResend(ctx, "acc-1"))
	}
	assert.NoError(t, l.Reset(ctx, "acc-1"))
}
