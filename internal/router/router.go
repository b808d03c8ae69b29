// Package router mounts the catalog handlers and their middleware on echo.
package router

import (
	"errors"
	"net"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/logger"
	"github.com/iliyamo/movie-catalog/internal/middleware"
)

// Deps is everything the routes need.
type Deps struct {
	Public    *handler.PublicHandler
	Admin     *handler.AdminHandler
	DB        handler.Pinger
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client

	// TrustedProxies may set X-Forwarded-For. When empty the TCP peer is
	// the client address.
	TrustedProxies []*net.IPNet
}

// New builds an echo instance with the JSON error handler, request logging
// and every route registered.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = ErrorHandler
	e.IPExtractor = IPExtractor(d.TrustedProxies)
	e.Use(middleware.RequestLogger(logger.Get()))

	RegisterRoutes(e, d.DB)
	RegisterPublic(e, d.Public, d.Cache, d.RateLimit, d.Redis)
	RegisterAdmin(e, d.Admin, d.JWTSecret, d.Cache, d.Redis)
	return e
}

// IPExtractor decides the client address used for votes and rate limit
// keys. Forwarding headers are honoured only when the peer is a trusted proxy.
func IPExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// RegisterRoutes registers the health checks.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterPublic registers the browse endpoints behind the response cache
// and the vote and review endpoints behind the rate limiter. A stored vote or
// review purges the cache, since movie pages embed both.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache config.CacheConfig, rl config.RateLimitConfig, rdb *redis.Client) {
	g := e.Group("/v1")

	cached := middleware.NewRedisCache(cache, rdb)
	g.GET("/categories", p.ListCategories, cached)
	g.GET("/genres", p.ListGenres, cached)
	g.GET("/rating-stars", p.ListRatingStars, cached)
	g.GET("/movies", p.ListMovies, cached)
	g.GET("/movies/:slug", p.GetMovie, cached)
	g.GET("/actors/:id", p.GetActor, cached)

	limited := middleware.NewTokenBucket(rl, rdb)
	purge := middleware.PurgeCacheOnWrite(cache, rdb)
	g.POST("/movies/:slug/ratings", p.RateMovie, limited, purge)
	g.POST("/movies/:slug/reviews", p.PostReview, limited, purge)
}

// RegisterAdmin registers the admin API under /v1/admin. Every route needs
// an ADMIN bearer token, and successful writes purge the public cache.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string, cache config.CacheConfig, rdb *redis.Client) {
	g := e.Group("/v1/admin",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole(middleware.RoleAdmin),
		middleware.PurgeCacheOnWrite(cache, rdb),
	)
	a.Register(g)
}

// ErrorHandler renders every error as {"error": message}, matching the
// bodies the handlers write themselves.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	msg := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			msg = m
		} else {
			msg = http.StatusText(code)
		}
	} else {
		logger.Get().WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled error")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, echo.Map{"error": msg})
}
