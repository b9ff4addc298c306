package cache

import (
	"context"

	"go.uber.org/zap"

	"github.com/umanagarjuna/go-social-feed/pkg/metrics"
)

// Policy purges the keys a mutation makes stale.
type Policy struct {
	client  Client
	ns      Namespace
	logger  *zap.Logger
	metrics metrics.Recorder
}

func NewPolicy(client Client, ns Namespace, logger *zap.Logger, m metrics.Recorder) *Policy {
	if m == nil {
		m = metrics.Nop{}
	}
	return &Policy{
		client:  client,
		ns:      ns,
		logger:  logger,
		metrics: m,
	}
}

// Invalidate deletes the entity key for entityID (when given) and then every
// key under the collection prefix. Page and query keys are not tracked
// individually, so the whole collection prefix goes.
//
// Callers run it after the source of truth has committed. Failures are
// logged and swallowed; the entry's TTL bounds staleness in that case.
func (p *Policy) Invalidate(ctx context.Context, entityID string) {
	purged := 0

	if entityID != "" && p.ns.EntityPrefix != "" {
		key := p.ns.EntityKey(entityID)
		if err := p.client.Delete(ctx, key); err != nil {
			p.metrics.CacheError("delete")
			p.logger.Warn("Failed to invalidate entity cache key",
				zap.Error(err), zap.String("key", key))
		} else {
			purged++
		}
	}

	keys, err := p.client.ListKeysByPrefix(ctx, p.ns.CollectionPrefix)
	if err != nil {
		p.metrics.CacheError("scan")
		p.logger.Warn("Failed to list collection cache keys",
			zap.Error(err), zap.String("prefix", p.ns.CollectionPrefix))
		p.metrics.KeysInvalidated(p.ns.Name, purged)
		return
	}

	if len(keys) > 0 {
		if err := p.client.DeleteMany(ctx, keys...); err != nil {
			p.metrics.CacheError("delete")
			p.logger.Warn("Failed to invalidate collection cache keys",
				zap.Error(err),
				zap.String("prefix", p.ns.CollectionPrefix),
				zap.Int("keys", len(keys)))
		} else {
			purged += len(keys)
		}
	}

	p.metrics.KeysInvalidated(p.ns.Name, purged)
	p.logger.Debug("Cache invalidated",
		zap.String("cache", p.ns.Name),
		zap.String("entity_id", entityID),
		zap.Int("keys", purged))
}
