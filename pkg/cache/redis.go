package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	defaultOpTimeout = 250 * time.Millisecond
	scanCount        = 100
	deleteBatchSize  = 500
)

// RedisConfig tunes the per-operation timeout and the circuit breaker that
// guard every call to the backend.
type RedisConfig struct {
	OpTimeout time.Duration
	Breaker   BreakerConfig
}

type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

func DefaultRedisConfig() RedisConfig {
	return RedisConfig{
		OpTimeout: defaultOpTimeout,
		Breaker: BreakerConfig{
			Name:             "redis",
			MaxRequests:      5,
			Interval:         30 * time.Second,
			Timeout:          10 * time.Second,
			FailureThreshold: 0.6,
			MinRequests:      10,
		},
	}
}

type RedisClient struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
}

func NewRedisClient(client *redis.Client, cfg RedisConfig, logger *zap.Logger) *RedisClient {
	if cfg.OpTimeout <= 0 {
		cfg.OpTimeout = defaultOpTimeout
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Breaker.Name,
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    cfg.Breaker.Interval,
		Timeout:     cfg.Breaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.Breaker.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.Breaker.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Cache circuit breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// A miss is a healthy answer from the backend.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, redis.Nil)
		},
	})

	return &RedisClient{
		client:  client,
		breaker: breaker,
		timeout: cfg.OpTimeout,
	}
}

func (c *RedisClient) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return c.client.Get(ctx, key).Bytes()
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get error: %w", err)
	}

	return val.([]byte), nil
}

func (c *RedisClient) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, c.client.Set(ctx, key, value, ttl).Err()
	})
	if err != nil {
		return fmt.Errorf("cache set error: %w", err)
	}

	return nil
}

func (c *RedisClient) Delete(ctx context.Context, key string) error {
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, c.client.Del(ctx, key).Err()
	})
	if err != nil {
		return fmt.Errorf("cache delete error: %w", err)
	}

	return nil
}

func (c *RedisClient) DeleteMany(ctx context.Context, keys ...string) error {
	for start := 0; start < len(keys); start += deleteBatchSize {
		end := start + deleteBatchSize
		if end > len(keys) {
			end = len(keys)
		}
		batch := keys[start:end]

		_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
			return nil, c.client.Del(ctx, batch...).Err()
		})
		if err != nil {
			return fmt.Errorf("cache delete multiple error: %w", err)
		}
	}

	return nil
}

// ListKeysByPrefix walks the keyspace with SCAN so a large namespace never
// blocks the server the way KEYS would. The op timeout applies to each page,
// not to the whole walk.
func (c *RedisClient) ListKeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	match := escapePattern(prefix) + "*"

	var keys []string
	var cursor uint64
	for {
		val, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
			page, next, err := c.client.Scan(ctx, cursor, match, scanCount).Result()
			return scanPage{keys: page, next: next}, err
		})
		if err != nil {
			return nil, fmt.Errorf("cache scan error: %w", err)
		}

		page := val.(scanPage)
		keys = append(keys, page.keys...)
		if page.next == 0 {
			return keys, nil
		}
		cursor = page.next
	}
}

type scanPage struct {
	keys []string
	next uint64
}

func (c *RedisClient) Ping(ctx context.Context) error {
	_, err := c.execute(ctx, func(ctx context.Context) (interface{}, error) {
		return nil, c.client.Ping(ctx).Err()
	})
	if err != nil {
		return fmt.Errorf("cache ping error: %w", err)
	}

	return nil
}

func (c *RedisClient) execute(ctx context.Context, op func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	return c.breaker.Execute(func() (interface{}, error) {
		return op(ctx)
	})
}

var patternEscaper = strings.NewReplacer(
	`\`, `\\`,
	`*`, `\*`,
	`?`, `\?`,
	`[`, `\[`,
	`]`, `\]`,
)

func escapePattern(prefix string) string {
	return patternEscaper.Replace(prefix)
}
