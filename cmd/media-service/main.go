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
	"github.com/umanagarjuna/go-social-feed/internal/media/repository"
	"github.com/umanagarjuna/go-social-feed/internal/media/service"
	"github.com/umanagarjuna/go-social-feed/pkg/dbmigrate"
	"github.com/umanagarjuna/go-social-feed/pkg/events"
	"github.com/umanagarjuna/go-social-feed/pkg/logging"
	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
	"github.com/umanagarjuna/go-social-feed/pkg/server"
)

const serviceName = "media-service"

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

	collector := metrics.NewCollector(bootstrap.MetricsNamespace(serviceName))

	repo := repository.NewPostgresRepository(db, cfg.Database.QueryTimeout)
	cleaner := service.NewCleaner(repo, logger)

	// Initialize Kafka subscribers
	subscribers, err := bootstrap.Subscribe(
		bootstrap.KafkaConfig(cfg.Kafka),
		serviceName,
		map[events.EventType]events.Handler{events.PostDeleted: cleaner.HandlePostDeleted},
		logger,
		collector,
	)
	if err != nil {
		logger.Fatal("Failed to initialize event subscribers", zap.Error(err))
	}

	router := server.NewRouter(logger, collector,
		server.Check{Name: "database", Critical: true, Probe: repo.Ping},
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

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
