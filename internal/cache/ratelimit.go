package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// searchLimitPrefix is the Redis key prefix for per-client search limits.
	searchLimitPrefix = "ratelimit:search:"
	// searchLimitTTL is how long an idle bucket survives. Anything beyond
	// a full refill period is wasted memory.
	searchLimitTTL = 10 * time.Second
)

// RateLimitResult contains the result of a rate limit check.
type RateLimitResult struct {
	Allowed    bool
	Remaining  int64
	ResetAt    time.Time
	RetryAfter time.Duration
}

// searchBucketScript is an atomic token bucket. The clock is passed in
// milliseconds so rapid successive checks still observe refill; returns
// {allowed, wait_ms, remaining}.
var searchBucketScript = redis.NewScript(`
	local bucket = KEYS[1]
	local rate = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local now_ms = tonumber(ARGV[3])
	local ttl = tonumber(ARGV[4])

	local state = redis.call('HMGET', bucket, 'level', 'ts')
	local level = tonumber(state[1])
	local ts = tonumber(state[2])
	if level == nil or ts == nil then
		level = capacity
		ts = now_ms
	end

	level = math.min(capacity, level + rate * (now_ms - ts) / 1000)

	local ok = 0
	local wait_ms = 0
	if level >= 1 then
		level = level - 1
		ok = 1
	else
		wait_ms = math.ceil((1 - level) * 1000 / rate)
	end

	redis.call('HSET', bucket, 'level', level, 'ts', now_ms)
	redis.call('EXPIRE', bucket, ttl)

	return {ok, wait_ms, math.floor(level)}
`)

// CheckSearchRateLimit consumes one token from the client's search bucket.
// The client IP is hashed before it becomes a key, so raw addresses never
// reach Redis. A non-positive rate disables the limiter; Redis failures
// fail open, since dropping searches over a cache outage is worse than
// briefly losing the limit.
func (c *Cache) CheckSearchRateLimit(ctx context.Context, ip string, ratePerSecond, burst int) (*RateLimitResult, error) {
	if ratePerSecond <= 0 {
		return unlimited(burst), nil
	}

	res, err := searchBucketScript.Run(ctx, c.client,
		[]string{searchLimitKey(ip)},
		ratePerSecond, burst, time.Now().UnixMilli(), int(searchLimitTTL.Seconds()),
	).Int64Slice()
	if err != nil || len(res) != 3 {
		return unlimited(burst), nil
	}

	return &RateLimitResult{
		Allowed:    res[0] == 1,
		Remaining:  res[2],
		ResetAt:    time.Now().Add(time.Second / time.Duration(ratePerSecond)),
		RetryAfter: time.Duration(res[1]) * time.Millisecond,
	}, nil
}

func unlimited(burst int) *RateLimitResult {
	return &RateLimitResult{
		Allowed:   true,
		Remaining: int64(burst),
		ResetAt:   time.Now().Add(time.Minute),
	}
}

// searchLimitKey hashes the client IP into a fixed-width bucket key.
func searchLimitKey(ip string) string {
	sum := sha256.Sum256([]byte(ip))
	return searchLimitPrefix + hex.EncodeToString(sum[:12])
}
