// Package ratelimit throttles verification attempts and code resends per account.
package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"familyvault/internal/config"
)

// ErrLimited is returned when the caller must wait before trying again.
var ErrLimited = errors.New("too many attempts")

// Limiter guards the verification endpoints of a single account.
type Limiter interface {
	// AllowVerify records one verification attempt and fails with ErrLimited
	// once the attempt budget of the current window is spent.
	AllowVerify(ctx context.Context, accountID string) error
	// AllowResend fails with ErrLimited while the resend cooldown is running.
	AllowResend(ctx context.Context, accountID string) error
	// Reset clears the attempt counter after a successful verification.
	Reset(ctx context.Context, accountID string) error
}

// NewRedisClient connects to the Redis server described by cfg and pings it.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// RedisLimiter keeps fixed-window attempt counters and resend markers in Redis.
type RedisLimiter struct {
	client      *redis.Client
	maxAttempts int
	window      time.Duration
	cooldown    time.Duration
}

var _ Limiter = (*RedisLimiter)(nil)

// NewRedisLimiter returns a limiter allowing maxAttempts verifications per
// window and one resend per cooldown.
func NewRedisLimiter(client *redis.Client, maxAttempts int, window, cooldown time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:      client,
		maxAttempts: maxAttempts,
		window:      window,
		cooldown:    cooldown,
	}
}

func attemptsKey(accountID string) string { return "otp:attempts:" + accountID }
func resendKey(accountID string) string   { return "otp:resend:" + accountID }

func (l *RedisLimiter) AllowVerify(ctx context.Context, accountID string) error {
	key := attemptsKey(accountID)

	// The window is created with its TTL in the same transaction as the
	// increment, so a counter never exists without an expiry.
	var incr *redis.IntCmd
	_, err := l.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, l.window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return fmt.Errorf("count attempt: %w", err)
	}
	if incr.Val() > int64(l.maxAttempts) {
		return ErrLimited
	}
	return nil
}

func (l *RedisLimiter) AllowResend(ctx context.Context, accountID string) error {
	ok, err := l.client.SetNX(ctx, resendKey(accountID), 1, l.cooldown).Result()
	if err != nil {
		return fmt.Errorf("mark resend: %w", err)
	}
	if !ok {
		return ErrLimited
	}
	return nil
}

func (l *RedisLimiter) Reset(ctx context.Context, accountID string) error {
	return l.client.Del(ctx, attemptsKey(accountID), resendKey(accountID)).Err()
}

// Noop never limits. It is used when no Redis URL is configured.
type Noop struct{}

var _ Limiter = Noop{}

func (Noop) AllowVerify(context.Context, string) error { return nil }
func (Noop) AllowResend(context.Context, string) error { return nil }
func (Noop) Reset(context.Context, string) error       { return nil }
