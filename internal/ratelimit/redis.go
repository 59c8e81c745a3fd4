package ratelimit

import (
	"context"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// fixedWindow runs the whole check-reset-increment in one script so concurrent
// callers never read-modify-write the counter. The clock comes from the caller.
//
// KEYS[1] counter hash; ARGV limit, window ms, now ms.
// Returns {allowed, remaining, retry_after_ms}.
var fixedWindow = redis.NewScript(`
local key = KEYS[1]
local limit = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local now = tonumber(ARGV[3])

local fields = redis.call('HMGET', key, 'window_start', 'count')
local start = nil
local count = 0
if fields[1] then start = tonumber(fields[1]) end
if fields[2] then count = tonumber(fields[2]) end

if start == nil or now - start >= window then
	start = now
	count = 0
	redis.call('HSET', key, 'window_start', start, 'count', 0)
	redis.call('PEXPIRE', key, window)
end

if count < limit then
	count = redis.call('HINCRBY', key, 'count', 1)
	return {1, limit - count, 0}
end
return {0, 0, start + window - now}
`)

// RedisLimiter shares counters across instances through Redis.
type RedisLimiter struct {
	client redis.Scripter
	logger *slog.Logger
	now    func() time.Time
}

// NewRedisLimiter returns a RedisLimiter. now may be nil.
func NewRedisLimiter(client redis.Scripter, logger *slog.Logger, now func() time.Time) *RedisLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	if now == nil {
		now = time.Now
	}
	return &RedisLimiter{client: client, logger: logger, now: now}
}

// CheckAndConsume fails open: if Redis is unreachable the action is allowed
// and the failure is logged.
func (r *RedisLimiter) CheckAndConsume(ctx context.Context, actorID, actionKey string, limit int, window time.Duration) (Decision, error) {
	if err := validate(actorID, actionKey, limit, window); err != nil {
		return Decision{}, err
	}

	res, err := fixedWindow.Run(ctx, r.client, []string{key(actorID, actionKey)},
		limit, window.Milliseconds(), r.now().UnixMilli()).Int64Slice()
	if err != nil || len(res) != 3 {
		r.logger.ErrorContext(ctx, "rate limiter unavailable, allowing request",
			slog.String("actor_id", actorID),
			slog.String("action", actionKey),
			slog.Any("error", err),
		)
		return Decision{Allowed: true}, nil
	}

	return Decision{
		Allowed:    res[0] == 1,
		Remaining:  int(res[1]),
		RetryAfter: time.Duration(res[2]) * time.Millisecond,
	}, nil
}
