// Package bootstrap wires configuration into the shared infrastructure
// clients every service binary starts with.
package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/internal/config"
	"github.com/umanagarjuna/go-social-feed/pkg/cache"
	"github.com/umanagarjuna/go-social-feed/pkg/events"
	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
	"github.com/umanagarjuna/go-social-feed/pkg/server"
)

func InitDB(cfg config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return db, nil
}

func InitRedis(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func CacheConfig(cfg config.CacheConfig) cache.RedisConfig {
	return cache.RedisConfig{
		OpTimeout: cfg.OpTimeout,
		Breaker: cache.BreakerConfig{
			Name:             "redis",
			MaxRequests:      cfg.Breaker.MaxRequests,
			Interval:         cfg.Breaker.Interval,
			Timeout:          cfg.Breaker.Timeout,
			FailureThreshold: cfg.Breaker.FailureThreshold,
			MinRequests:      cfg.Breaker.MinRequests,
		},
	}
}

func KafkaConfig(cfg config.KafkaConfig) events.KafkaConfig {
	return events.KafkaConfig{
		Brokers:       cfg.Brokers,
		ClientID:      cfg.ClientID,
		InitialOffset: cfg.InitialOffset,
	}
}

func RateLimitConfig(cfg config.RateLimitConfig, cache config.CacheConfig) server.RateLimitConfig {
	return server.RateLimitConfig{
		Requests: cfg.Requests,
		Window:   cfg.Window,
		Timeout:  cache.OpTimeout,
	}
}

// MetricsNamespace turns a service name into a valid metric prefix.
func MetricsNamespace(service string) string {
	return strings.ReplaceAll(service, "-", "_")
}

// Subscribe creates one consumer group per handled event type.
func Subscribe(
	cfg events.KafkaConfig,
	service string,
	handlers map[events.EventType]events.Handler,
	logger *zap.Logger,
	recorder metrics.Recorder,
) ([]*events.Subscriber, error) {
	subs := make([]*events.Subscriber, 0, len(handlers))
	for eventType, handler := range handlers {
		topic := eventType.Topic()

		group, err := events.NewConsumerGroup(cfg, events.GroupID(service, topic))
		if err != nil {
			for _, s := range subs {
				_ = s.Close()
			}
			return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
		}

		subs = append(subs, events.NewSubscriber(group, topic, handler, logger, recorder))
	}

	return subs, nil
}

// RunSubscribers starts every subscriber and returns a function that waits
// for all of them to stop and closes their groups. Subscriber failures are
// sent to errChan.
func RunSubscribers(ctx context.Context, subs []*events.Subscriber, errChan chan<- error, logger *zap.Logger) func() {
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *events.Subscriber) {
			defer wg.Done()
			if err := sub.Run(ctx); err != nil {
				errChan <- fmt.Errorf("subscriber error: %w", err)
			}
		}(sub)
	}

	return func() {
		wg.Wait()
		for _, sub := range subs {
			if err := sub.Close(); err != nil {
				logger.Warn("Failed to close subscriber", zap.Error(err))
			}
		}
	}
}
