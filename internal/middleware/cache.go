package middleware

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/logger"
)

// recorder tees the response to the client and keeps up to limit bytes of
// the body for the cache.
type recorder struct {
	http.ResponseWriter
	status    int
	body      bytes.Buffer
	limit     int64
	truncated bool
}

func (r *recorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *recorder) Write(b []byte) (int, error) {
	if !r.truncated {
		if r.limit > 0 && int64(r.body.Len()+len(b)) > r.limit {
			r.truncated = true
		} else {
			r.body.Write(b)
		}
	}
	return r.ResponseWriter.Write(b)
}

// cacheKey derives the Redis key for a request. Everything after the prefix
// is hashed so long query strings stay bounded.
func cacheKey(cfg config.CacheConfig, c echo.Context) string {
	r := c.Request()
	var parts []string
	switch strings.ToLower(cfg.KeyStrategy) {
	case "route":
		parts = []string{"route", c.Path()}
	case "method_route":
		parts = []string{"method", r.Method, "route", c.Path()}
	case "method_route_query":
		parts = []string{"method", r.Method, "route", c.Path(), "q", r.URL.RawQuery}
	case "path_query":
		parts = []string{"path", r.URL.Path, "q", r.URL.RawQuery}
	default:
		// Parameterised routes such as /v1/movies/:slug need the concrete
		// path, not the route pattern, to tell movies apart.
		parts = []string{"route", c.Path(), "path", r.URL.Path, "q", r.URL.RawQuery}
	}
	sum := sha1.Sum([]byte(strings.Join(parts, ":")))
	return fmt.Sprintf("%s:%x", cfg.Prefix, sum[:])
}

// encodeEntry packs a response as [status u32][header length u32][header JSON][body].
func encodeEntry(status int, header http.Header, body []byte) ([]byte, error) {
	hdr, err := json.Marshal(header)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 8, 8+len(hdr)+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(status))
	binary.BigEndian.PutUint32(out[4:8], uint32(len(hdr)))
	out = append(out, hdr...)
	return append(out, body...), nil
}

var errBadEntry = errors.New("malformed cache entry")

func decodeEntry(b []byte) (int, http.Header, []byte, error) {
	if len(b) < 8 {
		return 0, nil, nil, errBadEntry
	}
	status := int(binary.BigEndian.Uint32(b[0:4]))
	n := int(binary.BigEndian.Uint32(b[4:8]))
	if n < 0 || 8+n > len(b) {
		return 0, nil, nil, errBadEntry
	}
	header := http.Header{}
	if n > 0 {
		if err := json.Unmarshal(b[8:8+n], &header); err != nil {
			return 0, nil, nil, errBadEntry
		}
	}
	return status, header, b[8+n:], nil
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

// NewRedisCache replays cached 200 responses, headers included, for the
// configured methods. It is a no-op when caching is disabled or rdb is nil.
// Responses carry X-Cache: HIT or MISS.
func NewRedisCache(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	log := logger.Get()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !cfg.Methods[strings.ToUpper(c.Request().Method)] {
				return next(c)
			}
			ctx := c.Request().Context()
			key := cacheKey(cfg, c)

			raw, err := rdb.Get(ctx, key).Bytes()
			switch {
			case err == nil:
				if status, header, body, derr := decodeEntry(raw); derr == nil {
					for k, vals := range header {
						if strings.EqualFold(k, echo.HeaderContentLength) {
							continue
						}
						for _, v := range vals {
							c.Response().Header().Add(k, v)
						}
					}
					c.Response().Header().Set("X-Cache", "HIT")
					c.Response().WriteHeader(status)
					_, werr := c.Response().Write(body)
					return werr
				}
			case !errors.Is(err, redis.Nil):
				log.WithError(err).WithField("key", key).Warn("cache read failed")
			}

			rec := &recorder{ResponseWriter: c.Response().Writer, status: http.StatusOK, limit: int64(cfg.MaxBodyBytes)}
			c.Response().Writer = rec
			c.Response().Header().Set("X-Cache", "MISS")
			if err := next(c); err != nil {
				return err
			}
			if rec.status != http.StatusOK || rec.truncated {
				return nil
			}

			header := c.Response().Header().Clone()
			header.Del("X-Cache")
			entry, err := encodeEntry(rec.status, header, rec.body.Bytes())
			if err != nil {
				return nil
			}
			if err := rdb.Set(context.WithoutCancel(ctx), key, entry, ttl).Err(); err != nil {
				log.WithError(err).WithField("key", key).Warn("cache write failed")
			}
			return nil
		}
	}
}

// PurgeCache deletes every cached response under prefix and reports how many
// keys went.
func PurgeCache(ctx context.Context, rdb *redis.Client, prefix string) (int, error) {
	var (
		cursor  uint64
		removed int
	)
	for {
		keys, next, err := rdb.Scan(ctx, cursor, prefix+":*", 200).Result()
		if err != nil {
			return removed, err
		}
		if len(keys) > 0 {
			n, err := rdb.Del(ctx, keys...).Result()
			if err != nil {
				return removed, err
			}
			removed += int(n)
		}
		if next == 0 {
			return removed, nil
		}
		cursor = next
	}
}

// PurgeCacheOnWrite clears the public response cache after every successful
// non-GET request so catalog edits show up immediately.
func PurgeCacheOnWrite(cfg config.CacheConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return passthrough
	}
	log := logger.Get()
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil || c.Request().Method == http.MethodGet {
				return err
			}
			if st := c.Response().Status; st < 200 || st >= 300 {
				return nil
			}
			n, perr := PurgeCache(context.WithoutCancel(c.Request().Context()), rdb, cfg.Prefix)
			if perr != nil {
				log.WithError(perr).Warn("cache purge failed")
				return nil
			}
			log.WithField("keys", n).Debug("cache purged")
			return nil
		}
	}
}
