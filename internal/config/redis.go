package config

import (
	"context"
	"crypto/tls"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-catalog/internal/logger"
)

// RedisOptions builds client options from REDIS_ADDR, or REDIS_HOST plus
// REDIS_PORT, together with REDIS_PASSWORD, REDIS_DB and REDIS_TLS.
func RedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if host, port := os.Getenv("REDIS_HOST"), os.Getenv("REDIS_PORT"); host != "" && port != "" {
		addr = host + ":" + port
	}
	if addr == "" {
		addr = "localhost:6379"
	}
	var tlsConf *tls.Config
	if envBool("REDIS_TLS", false) {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	return &redis.Options{
		Addr:      addr,
		Password:  os.Getenv("REDIS_PASSWORD"),
		DB:        envInt("REDIS_DB", 0),
		TLSConfig: tlsConf,
	}
}

// NewRedisClient connects to Redis and pings it. It returns nil when the
// server is unreachable; callers then run without the response cache and
// fall back to the in-process rate limiter.
func NewRedisClient() *redis.Client {
	opts := RedisOptions()
	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Get().WithError(err).WithField("addr", opts.Addr).Warn("redis unavailable, cache disabled")
		_ = client.Close()
		return nil
	}
	logger.Get().WithField("addr", strings.TrimSpace(opts.Addr)).Info("connected to redis")
	return client
}
