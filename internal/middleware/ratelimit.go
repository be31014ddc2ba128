package middleware

import (
	"crypto/sha1"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/aliyevr/timetrack/internal/config"
)

// Token bucket evaluated atomically in Redis.  KEYS[1] holds
// "tokens|last_ms"; ARGV: capacity, refill tokens, refill interval ms,
// now ms, ttl ms.  Returns 1 when the request is admitted.
var rateLimitScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
local tokens = tonumber(ARGV[1])
local last = tonumber(ARGV[4])
if v then
  local sep = string.find(v, '|')
  tokens = tonumber(string.sub(v, 1, sep-1))
  last = tonumber(string.sub(v, sep+1))
  local elapsed = tonumber(ARGV[4]) - last
  if elapsed > 0 then
    local refill = math.floor(elapsed / tonumber(ARGV[3])) * tonumber(ARGV[2])
    if refill > 0 then
      tokens = math.min(tokens + refill, tonumber(ARGV[1]))
      last = last + math.floor(elapsed / tonumber(ARGV[3])) * tonumber(ARGV[3])
    end
  end
end
local allowed = 0
if tokens > 0 then
  tokens = tokens - 1
  allowed = 1
end
redis.call('SET', KEYS[1], tokens .. '|' .. last, 'PX', tonumber(ARGV[5]))
return allowed
`)

// bucketKey derives the Redis key for a request from client IP, subject
// and route, hashed to keep key length fixed.  Without a "user_id" in
// context the subject falls back to "guest".
func bucketKey(c echo.Context, prefix string) string {
	user := "guest"
	if v := c.Get("user_id"); v != nil {
		user = fmt.Sprint(v)
	}
	sum := sha1.Sum([]byte(c.RealIP() + "|" + user + "|" + c.Path()))
	return fmt.Sprintf("%s:%x", prefix, sum[:])
}

// RateLimit returns a middleware that throttles requests per client IP,
// user and route using a Redis-backed token bucket, so the limit holds
// across replicas.  Register it after JWTAuth so the subject is part of
// the bucket key; unauthenticated callers are bucketed by IP alone.
// A nil client or disabled config yields a pass-through, and Redis
// errors fail open (throttling is protection, not correctness).
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return func(c echo.Context) error { return next(c) }
		}
	}
	intervalMS := cfg.RefillInterval.Milliseconds()
	ttlMS := cfg.TTL.Milliseconds()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := bucketKey(c, cfg.Prefix)

			now := time.Now().UnixMilli()
			allowed, err := rateLimitScript.Run(c.Request().Context(), rdb,
				[]string{key},
				cfg.Capacity, cfg.RefillTokens, intervalMS, now, ttlMS).Int()
			if err != nil {
				return next(c)
			}
			if allowed != 1 {
				retry := (cfg.RefillInterval + time.Second - 1) / time.Second
				c.Response().Header().Set("Retry-After", strconv.FormatInt(int64(retry), 10))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}
