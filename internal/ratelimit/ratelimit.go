package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docshare/internal/config"
)

// Package ratelimit bounds how often one (share, email) pair may request an
// OTP code. The counter lives in Redis so the bound holds across instances;
// without Redis configured the limiter allows everything.

// Limiter answers whether one more OTP send is allowed for a key.
type Limiter interface {
	// Allow increments the counter for key and reports whether it is still
	// within limit for the current window. Errors are advisory: callers
	// treat a failed limiter as allow (delivery is already best-effort).
	Allow(ctx context.Context, key string) (bool, error)
}

// AllowAll is a Limiter that never limits.
type AllowAll struct{}

func (AllowAll) Allow(ctx context.Context, key string) (bool, error) { return true, nil }

type redisLimiter struct {
	client *redis.Client
	limit  int
	window time.Duration
}

// NewRedis creates a fixed-window Redis limiter. An empty Addr yields
// AllowAll so deployments without Redis keep working.
func NewRedis(ctx context.Context, cfg config.RedisConfig, limit int, window time.Duration) (Limiter, error) {
	if cfg.Addr == "" {
		return AllowAll{}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &redisLimiter{client: client, limit: limit, window: window}, nil
}

func (l *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	rkey := "otp_send:" + key
	n, err := l.client.Incr(ctx, rkey).Result()
	if err != nil {
		return true, err
	}
	if n == 1 {
		// First hit opens the window.
		if err := l.client.Expire(ctx, rkey, l.window).Err(); err != nil {
			return true, err
		}
	}
	return n <= int64(l.limit), nil
}
