package config

import (
	"strings"
	"time"
)

// CacheConfig defines settings for the public response cache. When Enabled
// is false or Redis is unreachable, responses are served uncached.
// KeyStrategy decides which parts of the request make up the cache key.
type CacheConfig struct {
	Enabled      bool
	Methods      map[string]bool
	TTL          time.Duration
	KeyStrategy  string
	Prefix       string
	MaxBodyBytes int
}

// LoadCacheConfig reads CACHE_* variables. Admin writes, votes and reviews
// purge the cache; the TTL bounds staleness from writes made outside the API.
func LoadCacheConfig() CacheConfig {
	methods := map[string]bool{}
	for _, m := range envList("CACHE_METHODS", "GET") {
		methods[strings.ToUpper(m)] = true
	}
	return CacheConfig{
		Enabled:      envBool("CACHE_ENABLED", true),
		Methods:      methods,
		TTL:          envDur("CACHE_TTL", 30*time.Second),
		KeyStrategy:  envStr("CACHE_KEY_STRATEGY", "route_query"),
		Prefix:       envStr("CACHE_PREFIX", "catalog:cache"),
		MaxBodyBytes: envInt("CACHE_MAX_BODY_BYTES", 1<<20),
	}
}
