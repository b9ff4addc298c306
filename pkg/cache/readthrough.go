package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
)

// ReadThrough serves reads from the cache and falls back to a loader.
// Concurrent misses on the same key within the process share one load.
type ReadThrough struct {
	client  Client
	ns      Namespace
	logger  *zap.Logger
	metrics metrics.Recorder
	group   singleflight.Group
}

func NewReadThrough(client Client, ns Namespace, logger *zap.Logger, m metrics.Recorder) *ReadThrough {
	if m == nil {
		m = metrics.Nop{}
	}
	return &ReadThrough{
		client:  client,
		ns:      ns,
		logger:  logger,
		metrics: m,
	}
}

func (r *ReadThrough) Namespace() Namespace {
	return r.ns
}

// LoadFunc queries the source of truth.
type LoadFunc[T any] func(ctx context.Context) (T, error)

// Fetch returns the cached value for key, or runs load and caches its result
// for ttl. A hit is returned as stored, without re-checking the source.
// Load errors (including not-found) are returned as is and never cached.
// Cancelling one caller's ctx does not fail the others waiting on the same
// load.
func Fetch[T any](ctx context.Context, r *ReadThrough, key string, ttl time.Duration, load LoadFunc[T]) (T, error) {
	if cached, ok := lookup[T](ctx, r, key); ok {
		r.metrics.CacheHit(r.ns.Name)
		return cached, nil
	}
	r.metrics.CacheMiss(r.ns.Name)

	// The shared load outlives any single caller. Loaders bound it with
	// their own query timeout; each caller waits only as long as its ctx.
	ch := r.group.DoChan(key, func() (interface{}, error) {
		loadCtx := context.WithoutCancel(ctx)
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		r.store(loadCtx, key, value, ttl)
		return value, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}

func lookup[T any](ctx context.Context, r *ReadThrough, key string) (T, bool) {
	var value T

	data, err := r.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrMiss) {
			r.metrics.CacheError("get")
			r.logger.Warn("Cache get failed",
				zap.Error(err), zap.String("key", key))
		}
		return value, false
	}

	if err := json.Unmarshal(data, &value); err != nil {
		r.logger.Warn("Discarding undecodable cache entry",
			zap.Error(err), zap.String("key", key))
		return value, false
	}

	return value, true
}

func (r *ReadThrough) store(ctx context.Context, key string, value any, ttl time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		r.logger.Warn("Failed to encode cache entry",
			zap.Error(err), zap.String("key", key))
		return
	}

	if err := r.client.SetWithTTL(ctx, key, data, ttl); err != nil {
		r.metrics.CacheError("set")
		r.logger.Warn("Failed to update cache",
			zap.Error(err), zap.String("key", key))
	}
}
