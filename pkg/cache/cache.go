// Package cache implements the read-through and invalidation protocol the
// services use on top of the shared key-value cache.
//
// Reads go through ReadThrough: check the cache, fall back to the source of
// truth on a miss, and populate the entry with a TTL. Writes call
// Policy.Invalidate after the source of truth has committed, which deletes
// the entity key and every key under the namespace's collection prefix.
//
// The cache is an optimization layer. Backend failures never reach callers of
// ReadThrough or Policy: reads degrade to a miss and invalidations to a
// logged warning.
package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// ErrMiss is returned by Client.Get when the key does not exist.
var ErrMiss = errors.New("cache miss")

// Client is the contract over the external cache service.
// Delete and DeleteMany are idempotent; deleting an absent key is not an error.
type Client interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeleteMany(ctx context.Context, keys ...string) error
	ListKeysByPrefix(ctx context.Context, prefix string) ([]string, error)
}

// Namespace groups the keys a service owns.
//
// EntityPrefix + id addresses one entity (e.g. "post:42"). Every key derived
// from a query (pages, search strings) lives under CollectionPrefix and is
// purged wholesale on any mutation. An empty EntityPrefix means the service
// has no per-entity keys.
type Namespace struct {
	Name             string
	EntityPrefix     string
	CollectionPrefix string
}

func (n Namespace) EntityKey(id string) string {
	return n.EntityPrefix + id
}

// CollectionKey joins the discriminator parts with ":" under the collection
// prefix: CollectionKey("1", "10") on "posts:" gives "posts:1:10".
func (n Namespace) CollectionKey(parts ...string) string {
	return n.CollectionPrefix + strings.Join(parts, ":")
}
