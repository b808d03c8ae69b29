package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/logger"
)

// bucketScript refills and takes one token atomically. It returns
// {allowed, remaining, retry_after_ms}.
var bucketScript = redis.NewScript(`
local key = KEYS[1]
local now_ms = tonumber(ARGV[1])
local capacity = tonumber(ARGV[2])
local refill = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl = tonumber(ARGV[5])

local state = redis.call('HMGET', key, 'tokens', 'last_ms')
local tokens = tonumber(state[1])
local last = tonumber(state[2])
if tokens == nil or last == nil then
  tokens = capacity
  last = now_ms
end

local steps = math.floor(math.max(0, now_ms - last) / interval_ms)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  last = last + steps * interval_ms
end

local allowed = 0
local retry_ms = 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  retry_ms = math.max(0, interval_ms - (now_ms - last))
end

redis.call('HSET', key, 'tokens', tokens, 'last_ms', last)
redis.call('EXPIRE', key, ttl)
return {allowed, tokens, retry_ms}
`)

// verdict is the outcome of taking one token.
type verdict struct {
	allowed   bool
	remaining int64
	retry     time.Duration
}

// localBuckets is the in-process limiter used when Redis is absent or
// failing. Buckets are per key and are dropped after cfg.TTL of disuse.
type localBuckets struct {
	mu      sync.Mutex
	limit   rate.Limit
	burst   int
	ttl     time.Duration
	buckets map[string]*localBucket
	sweep   time.Time
}

type localBucket struct {
	lim  *rate.Limiter
	seen time.Time
}

func newLocalBuckets(cfg config.RateLimitConfig) *localBuckets {
	refill := max(cfg.RefillTokens, 1)
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}
	return &localBuckets{
		limit:   rate.Every(interval / time.Duration(refill)),
		burst:   max(cfg.Capacity, 1),
		ttl:     max(cfg.TTL, 5*interval),
		buckets: map[string]*localBucket{},
	}
}

func (l *localBuckets) take(key string, now time.Time) verdict {
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Sub(l.sweep) > l.ttl {
		for k, b := range l.buckets {
			if now.Sub(b.seen) > l.ttl {
				delete(l.buckets, k)
			}
		}
		l.sweep = now
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &localBucket{lim: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.seen = now

	r := b.lim.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		return verdict{retry: d}
	}
	return verdict{allowed: true, remaining: int64(b.lim.TokensAt(now))}
}

// NewTokenBucket limits requests per key (see rateKey) with a token bucket of
// cfg.Capacity tokens refilled by cfg.RefillTokens every cfg.RefillInterval.
// State lives in Redis so every replica shares it; when rdb is nil or a
// script call fails the request is judged by an in-process bucket instead.
func NewTokenBucket(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled {
		return passthrough
	}
	local := newLocalBuckets(cfg)
	log := logger.Get()

	take := func(c echo.Context, key string) verdict {
		now := time.Now()
		if rdb == nil {
			return local.take(key, now)
		}
		res, err := bucketScript.Run(c.Request().Context(), rdb, []string{key},
			now.UnixMilli(), cfg.Capacity, cfg.RefillTokens,
			cfg.RefillInterval.Milliseconds(), int64(cfg.TTL/time.Second)).Int64Slice()
		if err != nil || len(res) != 3 {
			log.WithError(err).WithField("key", key).Warn("rate limit script failed, using local bucket")
			return local.take(key, now)
		}
		return verdict{
			allowed:   res[0] == 1,
			remaining: res[1],
			retry:     time.Duration(res[2]) * time.Millisecond,
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			v := take(c, key)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(v.remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if v.allowed {
				return next(c)
			}

			secs := int(math.Ceil(v.retry.Seconds()))
			h.Set("Retry-After", strconv.Itoa(secs))
			if cfg.Debug {
				log.WithFields(logrus.Fields{"key": key, "retry_after": secs}).Info("rate limited")
			}
			return c.JSON(http.StatusTooManyRequests, echo.Map{
				"error":       "too_many_requests",
				"message":     "rate limit exceeded",
				"retry_after": secs,
			})
		}
	}
}

// rateKey builds the bucket key from the parts named by cfg.KeyStrategy.
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := clientIP(c)
	user := subject(c)
	route := c.Request().Method + " " + c.Path()

	parts := []string{cfg.Prefix}
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		parts = append(parts, "ip", ip)
	case "user":
		parts = append(parts, "user", user)
	case "route":
		parts = append(parts, "route", route)
	case "ip_user":
		parts = append(parts, "ip", ip, "user", user)
	case "ip_route":
		parts = append(parts, "ip", ip, "route", route)
	case "user_route":
		parts = append(parts, "user", user, "route", route)
	default:
		parts = append(parts, "ip", ip, "user", user, "route", route)
	}
	return strings.Join(parts, ":")
}
