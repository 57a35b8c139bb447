package contact

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// allowScript increments the window counter unless the limit is reached.
// The first accepted attempt starts the window. It returns {allowed, ttl_ms}.
var allowScript = goredis.NewScript(`
local current = tonumber(redis.call("GET", KEYS[1]) or "0")
if current >= tonumber(ARGV[2]) then
	return {0, redis.call("PTTL", KEYS[1])}
end
current = redis.call("INCR", KEYS[1])
if current == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {1, redis.call("PTTL", KEYS[1])}
`)

// RedisLimiter is a fixed-window limiter shared by every instance connected
// to the same redis.
type RedisLimiter struct {
	client goredis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

func NewRedisLimiter(client goredis.UniversalClient, prefix string, limit int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "corpsite:contact:"
	}
	if limit <= 0 {
		limit = DefaultLimit
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RedisLimiter{client: client, prefix: prefix, limit: limit, window: window}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) error {
	result, err := allowScript.Run(ctx, l.client, []string{l.prefix + key}, l.window.Milliseconds(), l.limit).Int64Slice()
	if err != nil {
		return fmt.Errorf("contact: rate limiter: %w", err)
	}
	if len(result) != 2 {
		return fmt.Errorf("contact: rate limiter: unexpected reply %v", result)
	}
	if result[0] == 1 {
		return nil
	}
	retryAfter := time.Duration(result[1]) * time.Millisecond
	if retryAfter < 0 {
		retryAfter = 0
	}
	return &RateLimitError{RetryAfter: retryAfter}
}
