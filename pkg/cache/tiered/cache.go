// Package tiered combines an in-process L1 with a durable L2 store.
package tiered

import (
	"context"
	"time"

	"github.com/pario-ai/sous/pkg/cache"
	"github.com/pario-ai/sous/pkg/models"
)

// EntryStore is an L2 that can report when an entry expires, so an L1
// backfill never outlives the durable copy.
type EntryStore interface {
	cache.Store
	Lookup(ctx context.Context, feature models.Feature, identifier string) (models.CacheEntry, bool, error)
}

// Cache checks L1 first, then L2 (backfilling L1 on L2 hit).
// Put writes L2 first so a failed durable write never leaves L1 ahead of it.
type Cache struct {
	l1       cache.Store
	l2       EntryStore
	l1Expire time.Duration
	now      func() time.Time
}

var _ cache.Store = (*Cache)(nil)

// New creates a tiered cache. l1Expire caps how long backfilled entries live in L1.
func New(l1 cache.Store, l2 EntryStore, l1Expire time.Duration) *Cache {
	return &Cache{l1: l1, l2: l2, l1Expire: l1Expire, now: time.Now}
}

// Get checks L1, then L2. On L2 hit, backfills L1 for at most the entry's remaining life.
func (c *Cache) Get(ctx context.Context, feature models.Feature, identifier string) ([]byte, bool, error) {
	if val, found, err := c.l1.Get(ctx, feature, identifier); err == nil && found {
		return val, true, nil
	}

	entry, found, err := c.l2.Lookup(ctx, feature, identifier)
	if err != nil || !found {
		return nil, false, err
	}

	ttl := entry.ExpiresAt.Sub(c.now())
	if c.l1Expire > 0 && ttl > c.l1Expire {
		ttl = c.l1Expire
	}
	_ = c.l1.Put(ctx, feature, identifier, entry.Payload, ttl)
	return entry.Payload, true, nil
}

// Put writes to L2, then L1.
func (c *Cache) Put(ctx context.Context, feature models.Feature, identifier string, payload []byte, ttl time.Duration) error {
	if err := c.l2.Put(ctx, feature, identifier, payload, ttl); err != nil {
		return err
	}
	l1TTL := ttl
	if c.l1Expire > 0 && l1TTL > c.l1Expire {
		l1TTL = c.l1Expire
	}
	return c.l1.Put(ctx, feature, identifier, payload, l1TTL)
}
