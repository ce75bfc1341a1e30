package sqlite

import (
	"context"
	"encoding/json"
	"time"

	"github.com/tarslinks/linkhive/internal/models"
	"github.com/tarslinks/linkhive/internal/store"
)

// cacheStore implements store.CacheStore over the search_cache table.
// It shares the owning DB's write mutex so cache writes and
// invalidations are serialized with document writes; Get takes no lock.
type cacheStore struct {
	db *DB
}

var _ store.CacheStore = (*cacheStore)(nil)

func (c *cacheStore) Get(ctx context.Context, key models.SearchCacheKey) (*models.SearchCacheEntry, error) {
	var payload string
	var totalCount int
	var createdAt, expiresAt int64

	err := c.db.db.QueryRowContext(ctx, `
		SELECT payload, total_count, created_at, expires_at FROM search_cache
		WHERE query_hash = ? AND kw_weight = ? AND vw_weight = ?
	`, key.QueryHash, key.KeywordWt, key.VectorWt).Scan(&payload, &totalCount, &createdAt, &expiresAt)
	if err != nil {
		return nil, nil // miss is silent, not an error
	}

	entry := &models.SearchCacheEntry{
		Key:        key,
		TotalCount: totalCount,
		CreatedAt:  time.Unix(createdAt, 0).UTC(),
		ExpiresAt:  time.Unix(expiresAt, 0).UTC(),
	}
	if err := json.Unmarshal([]byte(payload), &entry.Results); err != nil {
		return nil, nil
	}
	if entry.Expired(time.Now().UTC()) {
		return nil, nil
	}
	return entry, nil
}

func (c *cacheStore) Put(ctx context.Context, entry models.SearchCacheEntry) error {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	payload, err := json.Marshal(entry.Results)
	if err != nil {
		return err
	}
	_, err = c.db.db.ExecContext(ctx, `
		INSERT INTO search_cache (query_hash, kw_weight, vw_weight, payload, total_count, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(query_hash, kw_weight, vw_weight) DO UPDATE SET
			payload = excluded.payload,
			total_count = excluded.total_count,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, entry.Key.QueryHash, entry.Key.KeywordWt, entry.Key.VectorWt, string(payload),
		entry.TotalCount, entry.CreatedAt.Unix(), entry.ExpiresAt.Unix())
	if err != nil {
		return wrapDBErr("cache_put", err)
	}
	return nil
}

func (c *cacheStore) InvalidateAll(ctx context.Context) (int, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()
	return c.invalidateAllLockedCount(ctx)
}

func (c *cacheStore) invalidateAllLockedCount(ctx context.Context) (int, error) {
	res, err := c.db.db.ExecContext(ctx, "DELETE FROM search_cache")
	if err != nil {
		return 0, wrapDBErr("cache_invalidate_all", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

// invalidateAllLocked is called by document-write methods that already
// hold d.mu; it discards the count, which callers of those methods
// never need since invalidation on write is fire-and-forget.
func (c *cacheStore) invalidateAllLocked(ctx context.Context) error {
	_, err := c.db.db.ExecContext(ctx, "DELETE FROM search_cache")
	if err != nil {
		return wrapDBErr("cache_invalidate_all", err)
	}
	return nil
}

func (c *cacheStore) PurgeExpired(ctx context.Context) (int, error) {
	c.db.mu.Lock()
	defer c.db.mu.Unlock()

	res, err := c.db.db.ExecContext(ctx, "DELETE FROM search_cache WHERE expires_at < ?", time.Now().UTC().Unix())
	if err != nil {
		return 0, wrapDBErr("cache_purge_expired", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
