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
	"github.com/umanagarjuna/go-social-feed/internal/search/handler"
	"github.com/umanagarjuna/go-social-feed/internal/search/repository"
	"github.com/umanagarjuna/go-social-feed/internal/search/service"
	"github.com/umanagarjuna/go-social-feed/pkg/cache"
	"github.com/umanagarjuna/go-social-feed/pkg/dbmigrate"
	"github.com/umanagarjuna/go-social-feed/pkg/logging"
	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
	"github.com/umanagarjuna/go-social-feed/pkg/server"
	"github.com/umanagarjuna/go-social-feed/pkg/validator"
)

const serviceName = "search-service"

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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Apply schema migrations
	if err := dbmigrate.Up(cfg.Database.URL(), repository.Migrations, repository.MigrationsDir, logger); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}

	// Initialize database
	pool, err := repository.Connect(ctx, cfg.Database.URL(), cfg.Database.MaxOpenConns)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer pool.Close()

	// Initialize Redis
	redisClient := bootstrap.InitRedis(cfg.Redis)
	defer redisClient.Close()

	collector := metrics.NewCollector(bootstrap.MetricsNamespace(serviceName))

	// Initialize dependencies
	repo := repository.NewPostgresRepository(pool, cfg.Database.QueryTimeout)
	cacheClient := cache.NewRedisClient(redisClient, bootstrap.CacheConfig(cfg.Cache), logger)

	searchService := service.NewSearchService(
		repo,
		cacheClient,
		validator.NewDefaultValidator(),
		logger,
		collector,
		cfg.Cache.QueryTTL,
	)
	projector := service.NewProjector(repo, cacheClient, logger, collector)

	// Initialize Kafka subscribers
	subscribers, err := bootstrap.Subscribe(bootstrap.KafkaConfig(cfg.Kafka), serviceName, projector.Handlers(), logger, collector)
	if err != nil {
		logger.Fatal("Failed to initialize event subscribers", zap.Error(err))
	}

	router := server.NewRouter(logger, collector,
		server.Check{Name: "database", Critical: true, Probe: repo.Ping},
		server.Check{Name: "cache", Probe: cacheClient.Ping},
	)
	// Limits only the API routes registered after it.
	if cfg.RateLimit.Enabled {
		limiter := server.NewRateLimiter(redisClient, serviceName, bootstrap.RateLimitConfig(cfg.RateLimit, cfg.Cache))
		router.Use(server.RateLimit(limiter, logger))
	}
	handler.NewHTTPHandler(searchService, logger).RegisterRoutes(router)

	errChan := make(chan error, len(subscribers)+1)

	// Start consumers
	waitSubscribers := bootstrap.RunSubscribers(ctx, subscribers, errChan, logger)

	// Start HTTP server
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
	waitSubscribers()

	logger.Info("Server stopped")
}
