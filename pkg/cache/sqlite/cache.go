package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/pario-ai/sous/pkg/cache"
	"github.com/pario-ai/sous/pkg/models"
)

// Cache is the durable result store backed by SQLite.
type Cache struct {
	db     *sql.DB
	now    func() time.Time
	hits   atomic.Int64
	misses atomic.Int64

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

var _ cache.Store = (*Cache)(nil)

const createCacheTable = `
CREATE TABLE IF NOT EXISTS ai_cache (
	feature TEXT NOT NULL,
	identifier TEXT NOT NULL,
	payload BLOB NOT NULL,
	created_at INTEGER NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (feature, identifier)
);
CREATE INDEX IF NOT EXISTS idx_ai_cache_expires ON ai_cache(expires_at);
`

// New opens the cache database at dbPath and runs auto-migration.
func New(dbPath string) (*Cache, error) {
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open cache db: %w", err)
	}

	if _, err := db.Exec(createCacheTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate cache db: %w", err)
	}

	return &Cache{db: db, now: time.Now, done: make(chan struct{})}, nil
}

// Get returns the payload stored for the key if it has not expired.
func (c *Cache) Get(ctx context.Context, feature models.Feature, identifier string) ([]byte, bool, error) {
	entry, ok, err := c.Lookup(ctx, feature, identifier)
	if err != nil || !ok {
		return nil, false, err
	}
	return entry.Payload, true, nil
}

// Lookup is Get returning the full entry, including its expiry.
// Expired rows found here are deleted on the way out.
func (c *Cache) Lookup(ctx context.Context, feature models.Feature, identifier string) (models.CacheEntry, bool, error) {
	var payload []byte
	var expiresAt int64

	err := c.db.QueryRowContext(ctx,
		`SELECT payload, expires_at FROM ai_cache WHERE feature = ? AND identifier = ?`,
		string(feature), identifier,
	).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		c.misses.Add(1)
		return models.CacheEntry{}, false, nil
	}
	if err != nil {
		return models.CacheEntry{}, false, fmt.Errorf("%w: get: %v", cache.ErrUnavailable, err)
	}

	entry := models.CacheEntry{
		Feature:    feature,
		Identifier: identifier,
		Payload:    payload,
		ExpiresAt:  time.Unix(0, expiresAt),
	}
	now := c.now()
	if !entry.Valid(now) {
		c.misses.Add(1)
		_, _ = c.db.ExecContext(ctx,
			`DELETE FROM ai_cache WHERE feature = ? AND identifier = ? AND expires_at <= ?`,
			string(feature), identifier, now.UnixNano(),
		)
		return models.CacheEntry{}, false, nil
	}

	c.hits.Add(1)
	return entry, true, nil
}

// Put upserts the payload with expiresAt = now + ttl.
func (c *Cache) Put(ctx context.Context, feature models.Feature, identifier string, payload []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	now := c.now()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO ai_cache (feature, identifier, payload, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(feature, identifier) DO UPDATE SET
			payload = excluded.payload,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		string(feature), identifier, payload, now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("%w: put: %v", cache.ErrUnavailable, err)
	}
	return nil
}

// Sweep deletes every expired entry and reports how many were removed.
func (c *Cache) Sweep(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM ai_cache WHERE expires_at <= ?`, c.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("cache sweep: %w", err)
	}
	n, _ := res.RowsAffected()
	return n, nil
}

// StartSweeper runs Sweep every interval until Close.
func (c *Cache) StartSweeper(interval time.Duration, log *slog.Logger) {
	if interval <= 0 {
		return
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-c.done:
				return
			case <-ticker.C:
				n, err := c.Sweep(context.Background())
				if err != nil {
					log.Warn("cache sweep failed", "error", err)
					continue
				}
				if n > 0 {
					log.Debug("cache sweep", "removed", n)
				}
			}
		}
	}()
}

// Stats returns cache performance metrics.
func (c *Cache) Stats(ctx context.Context) (models.CacheStats, error) {
	var stats models.CacheStats
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COALESCE(SUM(CASE WHEN expires_at <= ? THEN 1 ELSE 0 END), 0) FROM ai_cache`,
		c.now().UnixNano(),
	).Scan(&stats.Entries, &stats.Expired)
	if err != nil {
		return models.CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	stats.Hits = c.hits.Load()
	stats.Misses = c.misses.Load()
	return stats, nil
}

// Clear removes cache entries. If expiredOnly is true, only expired entries are removed.
func (c *Cache) Clear(ctx context.Context, expiredOnly bool) error {
	if expiredOnly {
		_, err := c.Sweep(ctx)
		return err
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM ai_cache`); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	return nil
}

// Close stops the sweeper and releases the database connection.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() { close(c.done) })
	c.wg.Wait()
	return c.db.Close()
}
