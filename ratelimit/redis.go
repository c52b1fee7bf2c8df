package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// allowScript atomically prunes expired entries, checks the window and
// records the request when allowed.
//
// KEYS[1] = counter key (sorted set of request timestamps)
// ARGV[1] = now in microseconds
// ARGV[2] = window in microseconds
// ARGV[3] = limit
// ARGV[4] = unique member token
//
// Returns {1} when allowed, or {0, oldestScore} when denied.
var allowScript = goredis.NewScript(`
local cutoff = tonumber(ARGV[1]) - tonumber(ARGV[2])
redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', cutoff)
local count = redis.call('ZCARD', KEYS[1])
if count < tonumber(ARGV[3]) then
    redis.call('ZADD', KEYS[1], ARGV[1], ARGV[4])
    redis.call('PEXPIRE', KEYS[1], math.ceil(tonumber(ARGV[2]) / 1000))
    return {1, 0}
end
local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {0, oldest[2]}
`)

// RedisLimiter is a Redis-backed sliding-window limiter. Counters live in a
// shared Redis instance, so every API replica observes the same counts and
// the limits hold across horizontal scaling.
type RedisLimiter struct {
	rdb goredis.UniversalClient
}

// NewRedisLimiter creates a limiter on top of an existing Redis client.
func NewRedisLimiter(rdb goredis.UniversalClient) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

// Allow implements Limiter.
func (l *RedisLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	if limit <= 0 {
		return true, 0, nil
	}

	now := time.Now()
	nowMicros := now.UnixMicro()
	member := strconv.FormatInt(nowMicros, 10) + "-" + strconv.FormatInt(now.UnixNano()%1e3, 10)

	res, err := allowScript.Run(ctx, l.rdb, []string{key},
		nowMicros,
		window.Microseconds(),
		limit,
		member,
	).Int64Slice()
	if err != nil {
		return false, 0, fmt.Errorf("ratelimit/redis: run allow script: %w", err)
	}
	if len(res) == 0 {
		return false, 0, fmt.Errorf("ratelimit/redis: empty script result")
	}

	if res[0] == 1 {
		return true, 0, nil
	}

	var retryAfter time.Duration
	if len(res) > 1 {
		oldest := time.UnixMicro(res[1])
		retryAfter = oldest.Add(window).Sub(now)
		if retryAfter < 0 {
			retryAfter = 0
		}
	}
	return false, retryAfter, nil
}

// Ping checks connectivity to the counter backend.
func (l *RedisLimiter) Ping(ctx context.Context) error {
	return l.rdb.Ping(ctx).Err()
}
