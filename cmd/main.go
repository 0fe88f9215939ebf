package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	usercmd "github.com/userdir/user-service/internal/command"
	"github.com/userdir/user-service/internal/config"
	"github.com/userdir/user-service/internal/handler"
	userqry "github.com/userdir/user-service/internal/query"
	"github.com/userdir/user-service/internal/repository"
	"github.com/userdir/user-service/shared/events"
	"github.com/userdir/user-service/shared/logger"
	"github.com/userdir/user-service/shared/middleware"
	"github.com/userdir/user-service/shared/models"
	redisClient "github.com/userdir/user-service/shared/redis"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Init("info")
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Document store (write + list reads)
	store, err := repository.Open(ctx, repository.StoreOptions{
		Driver:         cfg.StoreDriver,
		MongoURI:       cfg.MongoURI,
		MongoDatabase:  cfg.MongoDatabase,
		PostgresURL:    cfg.DatabaseURL,
		MaxOpenConns:   cfg.MaxOpenConns,
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("failed to open store")
	}
	log.Info().Str("driver", cfg.StoreDriver).Msg("store connected")

	// Redis connection (read model cache + event streaming), optional
	var (
		views     repository.ViewCache   = repository.NopViewCache{}
		publisher usercmd.EventPublisher = events.NopPublisher{}
		health                           = handler.Pingers{store.Users}
		redis     *redisClient.Client
	)
	if cfg.RedisEnabled() {
		redis, err = redisClient.NewClient(ctx, redisClient.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			PoolSize: cfg.RedisPoolSize,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to redis")
		}
		views = redisClient.NewViewCache[models.User](redis.Redis(), repository.UserViewNamespace, cfg.CacheTTL)
		publisher = events.NewPublisher(redis.Redis(), events.UserEventsStream, events.WithMaxLen(cfg.EventsMaxLen))
		health = append(health, redis)
		log.Info().Str("addr", cfg.RedisAddr).Msg("redis connected")
	} else {
		log.Info().Msg("REDIS_ADDR not set, view cache and events disabled")
	}

	// --- CQRS wiring ---
	readRepo := repository.NewUserReadRepository(store.Users, views)

	commandSvc := usercmd.NewUserCommandService(store.Users, readRepo, publisher)
	querySvc := userqry.NewUserQueryService(readRepo)

	userHandler := handler.NewUserHandler(commandSvc, querySvc, health)

	// Setup router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORSOrigins))
	userHandler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Msg("user service starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("server stopped")
			stop()
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	exitCode := 0
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
		exitCode = 1
	}
	if err := store.Close(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("store close")
		exitCode = 1
	}
	if redis != nil {
		if err := redis.Close(); err != nil {
			log.Error().Err(err).Msg("redis close")
		}
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}
