package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// OTPSendPrefix namespaces the per-phone OTP issue counters
const OTPSendPrefix = "otp:send:"

// redisLimiter is a fixed-window counter shared by every instance of the service
type redisLimiter struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

// NewRedisClient parses REDIS_URL and returns a connected client
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// NewRedisLimiter creates a limiter allowing limit events per window and key
func NewRedisLimiter(client *redis.Client, prefix string, limit int, window time.Duration) Limiter {
	return &redisLimiter{
		client: client,
		prefix: prefix,
		limit:  limit,
		window: window,
	}
}

func (r *redisLimiter) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := r.prefix + key

	count, err := r.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return true, fmt.Errorf("redis incr %s: %w", redisKey, err)
	}
	if count == 1 {
		if err := r.client.Expire(ctx, redisKey, r.window).Err(); err != nil {
			return true, fmt.Errorf("redis expire %s: %w", redisKey, err)
		}
	}
	return count <= int64(r.limit), nil
}
