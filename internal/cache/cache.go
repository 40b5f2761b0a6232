// Package cache keeps arXiv API result pages in a local SQLite database so
// that repeated exports of the same search skip the network and the
// client's rate limit.
package cache

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"
	_ "modernc.org/sqlite"

	"github.com/Epistemic-Technology/arxiv-export/arxiv"
)

// DefaultTTL is how long a cached page stays fresh.
const DefaultTTL = time.Hour

// Cache wraps the SQLite database holding cached pages.
type Cache struct {
	db     *sql.DB
	logger zerolog.Logger
	now    func() time.Time
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used for cache hits and write failures.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Cache) {
		c.logger = logger
	}
}

// WithClock replaces time.Now for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		c.now = now
	}
}

// DefaultPath returns the cache database location under the user cache
// directory.
func DefaultPath() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "arxiv-export", "cache.db")
}

// Open opens or creates the cache database at path.
func Open(path string, opts ...Option) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}

	c := &Cache{db: db, logger: zerolog.Nop(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	return c.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS pages (
			key TEXT PRIMARY KEY,
			query TEXT NOT NULL,
			start INTEGER NOT NULL,
			results_json BLOB NOT NULL,
			stored_at INTEGER NOT NULL,
			expires_at INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_pages_expires ON pages(expires_at);
	`
	_, err := db.Exec(schema)
	return err
}

// Key identifies a page by the API endpoint and every parameter that
// changes the response.
func Key(endpoint string, params arxiv.SearchParams) string {
	h := sha256.New()
	for _, part := range []string{
		endpoint,
		params.Query,
		strings.Join(params.IdList, ","),
		strconv.Itoa(params.Start),
		strconv.Itoa(params.MaxResults),
		string(params.SortBy),
		string(params.SortOrder),
	} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the page stored under key. Expired pages are reported as
// missing.
func (c *Cache) Get(ctx context.Context, key string) (arxiv.SearchResults, bool, error) {
	var data []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT results_json FROM pages WHERE key = ? AND expires_at > ?`,
		key, c.now().UnixNano(),
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return arxiv.SearchResults{}, false, nil
	}
	if err != nil {
		return arxiv.SearchResults{}, false, fmt.Errorf("reading cached page: %w", err)
	}

	var results arxiv.SearchResults
	if err := json.Unmarshal(data, &results); err != nil {
		return arxiv.SearchResults{}, false, fmt.Errorf("decoding cached page: %w", err)
	}
	return results, true, nil
}

// Put stores results under key for ttl.
func (c *Cache) Put(ctx context.Context, key string, results arxiv.SearchResults, ttl time.Duration) error {
	data, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("encoding page: %w", err)
	}
	now := c.now()
	_, err = c.db.ExecContext(ctx, `
		INSERT INTO pages (key, query, start, results_json, stored_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			results_json = excluded.results_json,
			stored_at = excluded.stored_at,
			expires_at = excluded.expires_at`,
		key, results.Params.Query, results.Params.Start, data, now.UnixNano(), now.Add(ttl).UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("storing page: %w", err)
	}
	return nil
}

// Purge deletes expired pages and returns how many were removed.
func (c *Cache) Purge(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM pages WHERE expires_at <= ?`, c.now().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("purging cache: %w", err)
	}
	return res.RowsAffected()
}

// Clear deletes every page.
func (c *Cache) Clear(ctx context.Context) (int64, error) {
	res, err := c.db.ExecContext(ctx, `DELETE FROM pages`)
	if err != nil {
		return 0, fmt.Errorf("clearing cache: %w", err)
	}
	return res.RowsAffected()
}

// Len returns the number of stored pages, fresh or not.
func (c *Cache) Len(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM pages`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting cached pages: %w", err)
	}
	return n, nil
}

// Interceptor serves searches sent to endpoint from the cache and stores
// successful responses for ttl. Cache failures are logged and never fail a
// search.
func (c *Cache) Interceptor(endpoint string, ttl time.Duration) arxiv.Interceptor {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return func(ctx context.Context, params arxiv.SearchParams, next arxiv.SearchFunc) (arxiv.SearchResults, error) {
		key := Key(endpoint, params)
		results, ok, err := c.Get(ctx, key)
		if err != nil {
			c.logger.Warn().Err(err).Msg("cache lookup failed")
		}
		if ok {
			c.logger.Debug().Str("query", params.Query).Int("start", params.Start).Msg("cache hit")
			results.Params = params
			return results, nil
		}

		results, err = next(ctx, params)
		if err != nil {
			return results, err
		}
		if err := c.Put(ctx, key, results, ttl); err != nil {
			c.logger.Warn().Err(err).Msg("cache write failed")
		}
		return results, nil
	}
}
