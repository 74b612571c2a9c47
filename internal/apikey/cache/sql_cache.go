package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/allisson/keyguard/internal/database"
	apperrors "github.com/allisson/keyguard/internal/errors"
)

type sqlCacheQueries struct {
	get    string
	upsert string
	delete string
	purge  string
}

var sqlCacheDialects = map[string]sqlCacheQueries{
	database.DriverPostgres: {
		get: `SELECT value FROM credential_cache WHERE cache_key = $1 AND expires_at > $2`,
		upsert: `INSERT INTO credential_cache (cache_key, value, expires_at) VALUES ($1, $2, $3)
				 ON CONFLICT (cache_key) DO UPDATE SET value = EXCLUDED.value, expires_at = EXCLUDED.expires_at`,
		delete: `DELETE FROM credential_cache WHERE cache_key = $1`,
		purge:  `DELETE FROM credential_cache WHERE expires_at <= $1`,
	},
	database.DriverMySQL: {
		get: `SELECT value FROM credential_cache WHERE cache_key = ? AND expires_at > ?`,
		upsert: `INSERT INTO credential_cache (cache_key, value, expires_at) VALUES (?, ?, ?)
				 ON DUPLICATE KEY UPDATE value = VALUES(value), expires_at = VALUES(expires_at)`,
		delete: `DELETE FROM credential_cache WHERE cache_key = ?`,
		purge:  `DELETE FROM credential_cache WHERE expires_at <= ?`,
	},
	database.DriverSQLite: {
		get: `SELECT value FROM credential_cache WHERE cache_key = ? AND expires_at > ?`,
		upsert: `INSERT INTO credential_cache (cache_key, value, expires_at) VALUES (?, ?, ?)
				 ON CONFLICT (cache_key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at`,
		delete: `DELETE FROM credential_cache WHERE cache_key = ?`,
		purge:  `DELETE FROM credential_cache WHERE expires_at <= ?`,
	},
}

// SQLCache is a DistributedCache backed by the credential_cache table, so
// instances that share a database also share validated-key lookups.
type SQLCache struct {
	db      *sql.DB
	queries sqlCacheQueries
	clock   clockwork.Clock
}

// Get returns the value for key if it has not expired.
func (s *SQLCache) Get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx, s.queries.get, key, s.now()).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, apperrors.Wrap(err, "failed to get cache entry")
	}
	return value, nil
}

// Set stores value under key until now + ttl.
func (s *SQLCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if _, err := s.db.ExecContext(ctx, s.queries.upsert, key, value, s.now().Add(ttl)); err != nil {
		return apperrors.Wrap(err, "failed to set cache entry")
	}
	return nil
}

// Delete removes key.
func (s *SQLCache) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, s.queries.delete, key); err != nil {
		return apperrors.Wrap(err, "failed to delete cache entry")
	}
	return nil
}

// PurgeExpired deletes expired rows and returns how many were removed.
func (s *SQLCache) PurgeExpired(ctx context.Context) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.queries.purge, s.now())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to purge cache entries")
	}

	count, err := result.RowsAffected()
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to get affected rows")
	}
	return count, nil
}

// now truncates to microseconds, the precision MySQL and PostgreSQL keep.
func (s *SQLCache) now() time.Time {
	return s.clock.Now().UTC().Truncate(time.Microsecond)
}

// NewSQLCache creates a SQL-backed distributed cache for the given driver.
func NewSQLCache(db *sql.DB, driver string, clock clockwork.Clock) (*SQLCache, error) {
	queries, ok := sqlCacheDialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported cache driver: %s", driver)
	}
	return &SQLCache{db: db, queries: queries, clock: clock}, nil
}
