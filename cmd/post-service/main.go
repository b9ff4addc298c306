package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/internal/bootstrap"
	"github.com/umanagarjuna/go-social-feed/internal/config"
	"github.com/umanagarjuna/go-social-feed/internal/post/handler"
	"github.com/umanagarjuna/go-social-feed/internal/post/repository"
	"github.com/umanagarjuna/go-social-feed/internal/post/service"
	"github.com/umanagarjuna/go-social-feed/pkg/cache"
	"github.com/umanagarjuna/go-social-feed/pkg/dbmigrate"
	"github.com/umanagarjuna/go-social-feed/pkg/events"
	"github.com/umanagarjuna/go-social-feed/pkg/logging"
	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
	"github.com/umanagarjuna/go-social-feed/pkg/server"
	"github.com/umanagarjuna/go-social-feed/pkg/validator"
)

const serviceName = "post-service"

func main() {
	// Load configuration
	cfg, err := config.Load(serviceName)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	logger, err := logging.New(serviceName, cfg.IsDevelopment())
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer logger.Sync()

	// Apply schema migrations
	if err := dbmigrate.Up(cfg.Database.URL(), repository.Migrations, repository.MigrationsDir, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize database
	db, err := bootstrap.InitDB(cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Initialize Redis
	redisClient := bootstrap.InitRedis(cfg.Redis)
	defer redisClient.Close()

	collector := metrics.NewCollector(bootstrap.MetricsNamespace(serviceName))

	// Initialize Kafka publisher
	publisher, err := events.NewKafkaPublisher(bootstrap.KafkaConfig(cfg.Kafka), serviceName, logger, collector)
	if err != nil {
		logger.Fatal("Failed to initialize event publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Initialize dependencies
	repo := repository.NewPostgresRepository(db, cfg.Database.QueryTimeout)
	cacheClient := cache.NewRedisClient(redisClient, bootstrap.CacheConfig(cfg.Cache), logger)

	postService := service.NewPostService(
		repo,
		cacheClient,
		validator.NewDefaultValidator(),
		publisher,
		logger,
		collector,
		service.Config{
			EntityTTL:     cfg.Cache.EntityTTL,
			CollectionTTL: cfg.Cache.CollectionTTL,
		},
	)

	router := server.NewRouter(logger, collector,
		server.Check{Name: "database", Critical: true, Probe: db.PingContext},
		server.Check{Name: "cache", Probe: cacheClient.Ping},
	)
	// Limits only the API routes registered after it.
	if cfg.RateLimit.Enabled {
		limiter := server.NewRateLimiter(redisClient, serviceName, bootstrap.RateLimitConfig(cfg.RateLimit, cfg.Cache))
		router.Use(server.RateLimit(limiter, logger))
	}
	handler.NewHTTPHandler(postService, logger).RegisterRoutes(router)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start HTTP server
	errChan := make(chan error, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := server.Run(ctx, cfg.Server.HTTPPort, router, cfg.Server.ShutdownTimeout, logger); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		logger.Fatal("Server error", zap.Error(err))
	case sig := <-sigChan:
		logger.Info("Received shutdown signal", zap.String("signal", sig.String()))
	}

	cancel()
	<-done

	logger.Info("Server stopped")
}
