package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/iliyamo/movie-catalog/internal/config"
	"github.com/iliyamo/movie-catalog/internal/database"
	"github.com/iliyamo/movie-catalog/internal/handler"
	"github.com/iliyamo/movie-catalog/internal/logger"
	"github.com/iliyamo/movie-catalog/internal/queue"
	"github.com/iliyamo/movie-catalog/internal/router"
	"github.com/iliyamo/movie-catalog/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Get().Info("no .env file found, using process environment")
	}
	logger.Init(os.Getenv("LOG_LEVEL"))
	log := logger.Get()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connection failed")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.AutoSchema {
		if err := database.EnsureSchema(ctx, db); err != nil {
			log.WithError(err).Fatal("schema setup failed")
		}
	}

	rdb := config.NewRedisClient()
	if rdb != nil {
		defer rdb.Close()
	}

	var events service.Publisher = service.NopPublisher{}
	if cfg.Events {
		events = service.NewRabbitPublisher(cfg.AMQPURL)
		go func() {
			err := queue.NewConsumer(cfg.AMQPURL, "logs").Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.WithError(err).Error("event consumer stopped")
			}
		}()
	}

	repos := handler.NewRepos(db)
	e := router.New(router.Deps{
		Public:    handler.NewPublicHandler(repos, events),
		Admin:     handler.NewAdminHandler(repos),
		DB:        db,
		JWTSecret: cfg.JWTSecret,
		Cache:     config.LoadCacheConfig(),
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,

		TrustedProxies: config.LoadTrustedProxies(),
	})

	addr := ":" + cfg.Port
	go func() {
		log.WithField("addr", addr).WithField("env", cfg.Env).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
	log.Info("server stopped")
}
