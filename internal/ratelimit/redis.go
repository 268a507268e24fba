package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// slidingWindow keeps one sorted-set member per admitted request, scored by
// its arrival time in milliseconds.
var slidingWindow = redis.NewScript(`
local key = KEYS[1]
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', key, '-inf', now - window)

local current = redis.call('ZCARD', key)
local allowed = 0
if current < limit then
	redis.call('ZADD', key, now, now .. '-' .. ARGV[4])
	current = current + 1
	allowed = 1
end
redis.call('PEXPIRE', key, window)

local reset = now + window
local oldest = redis.call('ZRANGE', key, 0, 0, 'WITHSCORES')
if oldest[2] then
	reset = tonumber(oldest[2]) + window
end

return {allowed, current, reset}
`)

type RedisConfig struct {
	Client redis.Scripter
	Limit  int
	Window time.Duration
	Prefix string
}

// RedisRateLimiter is a sliding window limiter shared by every API replica.
type RedisRateLimiter struct {
	client redis.Scripter
	limit  int
	window time.Duration
	prefix string
	now    func() time.Time
}

func NewRedis(cfg RedisConfig) (*RedisRateLimiter, error) {
	if cfg.Client == nil {
		return nil, errors.New("redis client is required")
	}
	if err := validate(cfg.Limit, cfg.Window); err != nil {
		return nil, err
	}
	if cfg.Prefix == "" {
		cfg.Prefix = "devmeet:ratelimit:"
	}

	return &RedisRateLimiter{
		client: cfg.Client,
		limit:  cfg.Limit,
		window: cfg.Window,
		prefix: cfg.Prefix,
		now:    time.Now,
	}, nil
}

func (r *RedisRateLimiter) Allow(ctx context.Context, key string) (*RateLimitInfo, error) {
	now := r.now()

	result, err := slidingWindow.Run(ctx, r.client, []string{r.prefix + key},
		now.UnixMilli(),
		r.window.Milliseconds(),
		r.limit,
		uuid.NewString(),
	).Int64Slice()
	if err != nil {
		return nil, fmt.Errorf("redis rate limit check failed: %w", err)
	}
	if len(result) != 3 {
		return nil, errors.New("unexpected redis script result")
	}

	return &RateLimitInfo{
		Limit:     r.limit,
		Remaining: max(r.limit-int(result[1]), 0),
		ResetAt:   time.UnixMilli(result[2]),
		Allowed:   result[0] == 1,
	}, nil
}
