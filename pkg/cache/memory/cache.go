// Package memory implements an in-process cache.Store on ristretto.
// It is meant as an L1 in front of a durable store.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/ristretto/v2"

	"github.com/pario-ai/sous/pkg/cache"
	"github.com/pario-ai/sous/pkg/models"
)

// Cache wraps a ristretto cache keyed by (feature, identifier).
type Cache struct {
	c      *ristretto.Cache[string, []byte]
	maxTTL time.Duration
}

var _ cache.Store = (*Cache)(nil)

// New creates a ristretto-backed cache. maxCostBytes bounds the total size
// of cached payloads; maxTTL, when positive, caps every entry's lifetime.
func New(maxCostBytes int64, maxTTL time.Duration) (*Cache, error) {
	if maxCostBytes <= 0 {
		maxCostBytes = 16 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, []byte]{
		NumCounters: maxCostBytes / 100 * 10, // ~10x expected items
		MaxCost:     maxCostBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create l1 cache: %w", err)
	}
	return &Cache{c: c, maxTTL: maxTTL}, nil
}

// Get retrieves a value; ristretto drops expired items on read.
func (c *Cache) Get(_ context.Context, feature models.Feature, identifier string) ([]byte, bool, error) {
	val, found := c.c.Get(cache.Key(feature, identifier))
	if !found {
		return nil, false, nil
	}
	return val, true, nil
}

// Put stores a value with the given TTL, clamped to maxTTL.
// The write is visible to Get once Put returns.
func (c *Cache) Put(_ context.Context, feature models.Feature, identifier string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	if c.maxTTL > 0 && ttl > c.maxTTL {
		ttl = c.maxTTL
	}
	c.c.SetWithTTL(cache.Key(feature, identifier), payload, int64(len(payload)), ttl)
	c.c.Wait()
	return nil
}

// Delete removes a value from the cache.
func (c *Cache) Delete(feature models.Feature, identifier string) {
	c.c.Del(cache.Key(feature, identifier))
}

// Close shuts down the cache and releases resources.
func (c *Cache) Close() {
	c.c.Close()
}
