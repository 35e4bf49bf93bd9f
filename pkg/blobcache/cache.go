// Package blobcache stores fetched image bytes keyed by request URL and keeps
// the total size under a budget.
package blobcache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"time"

	"github.com/lepinkainen/tabskin/pkg/database"
	"github.com/lepinkainen/tabskin/pkg/errs"
	httputil "github.com/lepinkainen/tabskin/pkg/http"
)

const schema = `
CREATE TABLE IF NOT EXISTS blobs (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL UNIQUE,
	body BLOB NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	stored_at_ms INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_blobs_stored_at ON blobs(stored_at_ms, seq);`

// Entry describes one cached blob without its body
type Entry struct {
	// Seq is the insertion sequence, used to order entries stored in the same millisecond
	Seq         int64
	URL         string
	Size        int64
	ContentType string
	StoredAt    time.Time
}

// Fetcher retrieves the bytes to cache
type Fetcher interface {
	GetWithContext(ctx context.Context, url string) (*http.Response, error)
}

// Cache is an origin-scoped binary cache backed by the profile database
type Cache struct {
	db      *database.Database
	fetcher Fetcher
	policy  Policy
	now     func() time.Time
}

// New creates the blobs table if needed
func New(db *database.Database, fetcher Fetcher, policy Policy) (*Cache, error) {
	if err := db.ExecuteSchema(schema); err != nil {
		return nil, fmt.Errorf("failed to create blobs table: %w", err)
	}

	return &Cache{
		db:      db,
		fetcher: fetcher,
		policy:  policy,
		now:     time.Now,
	}, nil
}

// Ensure caches url if it is not cached yet and then applies the size policy.
// Failures are logged and swallowed. It reports whether a new entry was stored.
func (c *Cache) Ensure(ctx context.Context, url string) bool {
	if ok, err := c.has(ctx, url); err != nil {
		slog.Warn("Failed to check image cache", "url", url, "error", err)
		return false
	} else if ok {
		slog.Debug("Image already cached", "url", url)
		return false
	}

	if err := c.fetchAndStore(ctx, url); err != nil {
		slog.Warn("Failed to cache image", "url", url, "error", err)
		return false
	}
	slog.Debug("Image added to cache", "url", url)

	if result, err := c.Evict(ctx); err != nil {
		slog.Warn("Cache eviction failed", "error", err)
	} else if result.Removed > 0 {
		slog.Info("Evicted cached images",
			"removed", result.Removed,
			"freed_bytes", result.FreedBytes,
			"total_bytes", result.TotalBytes)
	}
	return true
}

func (c *Cache) fetchAndStore(ctx context.Context, url string) error {
	resp, err := c.fetcher.GetWithContext(ctx, url)
	if err != nil {
		return err
	}

	if !httputil.IsSuccess(resp.StatusCode) {
		httputil.DrainAndClose(resp)
		return errs.Upstream(resp.StatusCode, url)
	}

	storedAt := c.now()
	if date := resp.Header.Get("Date"); date != "" {
		if parsed, err := http.ParseTime(date); err == nil {
			storedAt = parsed
		}
	}
	contentType := httputil.GetContentType(resp)

	body, err := httputil.ReadResponseBody(resp)
	if err != nil {
		return errs.Network(err, url)
	}

	return c.Put(ctx, url, body, contentType, storedAt)
}

// Put stores body under url. An existing entry for url is kept unchanged.
func (c *Cache) Put(ctx context.Context, url string, body []byte, contentType string, storedAt time.Time) error {
	_, err := c.db.DB().ExecContext(ctx,
		`INSERT INTO blobs (url, body, content_type, stored_at_ms) VALUES (?, ?, ?, ?)
		 ON CONFLICT(url) DO NOTHING`,
		url, body, contentType, storedAt.UnixMilli())
	if err != nil {
		return errs.CacheWrite(err, url)
	}
	return nil
}

func (c *Cache) has(ctx context.Context, url string) (bool, error) {
	var one int
	err := c.db.DB().QueryRowContext(ctx, "SELECT 1 FROM blobs WHERE url = ?", url).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Match returns the cached bytes for url
func (c *Cache) Match(ctx context.Context, url string) ([]byte, bool, error) {
	var body []byte
	err := c.db.DB().QueryRowContext(ctx, "SELECT body FROM blobs WHERE url = ?", url).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached image: %w", err)
	}
	return body, true, nil
}

// Entries enumerates the cache in insertion order. Each call starts a new enumeration.
func (c *Cache) Entries(ctx context.Context) iter.Seq2[Entry, error] {
	return func(yield func(Entry, error) bool) {
		rows, err := c.db.DB().QueryContext(ctx,
			"SELECT seq, url, length(body), content_type, stored_at_ms FROM blobs ORDER BY seq")
		if err != nil {
			yield(Entry{}, fmt.Errorf("failed to list cached images: %w", err))
			return
		}
		defer func() { _ = rows.Close() }()

		for rows.Next() {
			var e Entry
			var storedAtMs int64
			if err := rows.Scan(&e.Seq, &e.URL, &e.Size, &e.ContentType, &storedAtMs); err != nil {
				yield(Entry{}, fmt.Errorf("failed to scan cached image: %w", err))
				return
			}
			e.StoredAt = time.UnixMilli(storedAtMs)
			if !yield(e, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(Entry{}, fmt.Errorf("failed to list cached images: %w", err))
		}
	}
}

// Delete removes the entry for url; a missing entry is not an error
func (c *Cache) Delete(ctx context.Context, url string) error {
	if _, err := c.db.DB().ExecContext(ctx, "DELETE FROM blobs WHERE url = ?", url); err != nil {
		return fmt.Errorf("failed to delete cached image: %w", err)
	}
	return nil
}

// Clear removes every entry and reclaims the space on disk
func (c *Cache) Clear(ctx context.Context) error {
	if _, err := c.db.DB().ExecContext(ctx, "DELETE FROM blobs"); err != nil {
		return fmt.Errorf("failed to clear image cache: %w", err)
	}

	if err := database.VacuumDatabase(c.db); err != nil {
		slog.Warn("Failed to reclaim space after clearing cache", "error", err)
	}

	slog.Info("Image cache cleared")
	return nil
}

// TotalBytes sums the size of every stored blob. It touches every row and is
// meant for display and eviction, not hot paths.
func (c *Cache) TotalBytes(ctx context.Context) (int64, error) {
	var total int64
	for e, err := range c.Entries(ctx) {
		if err != nil {
			return 0, err
		}
		total += e.Size
	}
	return total, nil
}

// Evict applies the size policy
func (c *Cache) Evict(ctx context.Context) (Result, error) {
	var entries []Entry
	var total int64
	for e, err := range c.Entries(ctx) {
		if err != nil {
			return Result{}, err
		}
		entries = append(entries, e)
		total += e.Size
	}

	result := Result{TotalBytes: total}
	for _, e := range c.policy.Plan(entries) {
		if err := c.Delete(ctx, e.URL); err != nil {
			return result, err
		}
		result.Removed++
		result.FreedBytes += e.Size
		result.TotalBytes -= e.Size
		slog.Debug("Evicted cached image", "url", e.URL, "size", e.Size, "stored_at", e.StoredAt)
	}
	return result, nil
}

// GetStats returns entry count and total size
func (c *Cache) GetStats() (map[string]any, error) {
	var count int
	var total sql.NullInt64
	err := c.db.DB().QueryRow("SELECT COUNT(*), SUM(length(body)) FROM blobs").Scan(&count, &total)
	if err != nil {
		return nil, fmt.Errorf("failed to read cache stats: %w", err)
	}
	return map[string]any{
		"entries":     count,
		"total_bytes": total.Int64,
		"limit_bytes": c.policy.Limit,
	}, nil
}
