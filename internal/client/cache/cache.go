package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	apperrors "github.com/pulseboard/realtime-backend/internal/core/errors"
)

// Cache is a small sqlite-backed store for the last known server state, so a
// client coming back from an outage can render something immediately while
// the refetch is in flight. Entries are scoped to the tenant the cache was
// opened for; reads for any other tenant are refused.
type Cache struct {
	db       *sql.DB
	tenantID uuid.UUID
}

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	tenant_id  TEXT NOT NULL,
	cache_key  TEXT NOT NULL,
	value      BLOB NOT NULL,
	expires_at INTEGER NOT NULL,
	PRIMARY KEY (tenant_id, cache_key)
);
`

// Open opens (or creates) the cache file for one tenant.
func Open(path string, tenantID uuid.UUID) (*Cache, error) {
	if tenantID == uuid.Nil {
		return nil, fmt.Errorf("cache requires a tenant")
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	return &Cache{db: db, tenantID: tenantID}, nil
}

// Put stores a value under the key with a time-to-live.
func (c *Cache) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	expiresAt := time.Now().Add(ttl).Unix()
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO cache_entries (tenant_id, cache_key, value, expires_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (tenant_id, cache_key) DO UPDATE SET
			value = excluded.value,
			expires_at = excluded.expires_at`,
		c.tenantID.String(), key, value, expiresAt)
	return err
}

// Get returns the cached value for the key if it is fresh. The tenant must
// match the one the cache was opened for; a mismatch is an error rather than
// a miss so the caller notices the bug.
func (c *Cache) Get(ctx context.Context, tenantID uuid.UUID, key string) ([]byte, bool, error) {
	if tenantID != c.tenantID {
		return nil, false, apperrors.ErrTenantMismatch
	}

	var (
		value     []byte
		expiresAt int64
	)
	err := c.db.QueryRowContext(ctx,
		`SELECT value, expires_at FROM cache_entries
		 WHERE tenant_id = ? AND cache_key = ?`,
		c.tenantID.String(), key).Scan(&value, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	if time.Now().Unix() >= expiresAt {
		// Expired entries count as misses; cleanup is best effort.
		_, _ = c.db.ExecContext(ctx,
			`DELETE FROM cache_entries WHERE tenant_id = ? AND cache_key = ?`,
			c.tenantID.String(), key)
		return nil, false, nil
	}

	return value, true, nil
}

// Purge drops every expired entry.
func (c *Cache) Purge(ctx context.Context) error {
	_, err := c.db.ExecContext(ctx,
		`DELETE FROM cache_entries WHERE expires_at <= ?`, time.Now().Unix())
	return err
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}
