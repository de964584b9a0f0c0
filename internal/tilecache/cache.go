// Package tilecache fetches raster and vector map tiles over HTTP and keeps
// them in an on-disk cache keyed by (origin, z, x, y).
package tilecache

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// rateLimitBackoff is how long to wait before retrying a 429 response.
const rateLimitBackoff = 5 * time.Second

// Cache is a read-through disk cache for map tiles. Raster tiles live at
// <dir>/<origin-encoded>/<z>_<x>_<y>.png, vector tiles at
// <dir>/<z>_<x>_<y>.pbf.
type Cache struct {
	dir    string
	http   *http.Client
	sleep  func(time.Duration)
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the cache logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// WithSleep replaces the backoff sleep, used by tests to avoid real waits.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *Cache) { c.sleep = fn }
}

// WithHTTPClient replaces the transport.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Cache) { c.http = h }
}

// New creates a tile cache rooted at dir.
func New(dir string, opts ...Option) *Cache {
	c := &Cache{
		dir:    dir,
		http:   &http.Client{Timeout: 5 * time.Second},
		sleep:  time.Sleep,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// encodeOrigin flattens a tile origin URL into a directory name.
func encodeOrigin(origin string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '-':
			return r
		default:
			return '_'
		}
	}, origin)
}

// RasterPath returns the on-disk location of a raster tile.
func (c *Cache) RasterPath(origin string, z, x, y int) string {
	return filepath.Join(c.dir, encodeOrigin(origin), fmt.Sprintf("%d_%d_%d.png", z, x, y))
}

// VectorPath returns the on-disk location of a vector tile.
func (c *Cache) VectorPath(z, x, y int) string {
	return filepath.Join(c.dir, fmt.Sprintf("%d_%d_%d.pbf", z, x, y))
}

// rasterURL builds the fetch URL for a raster tile. Origins containing
// "google" use the query-parameter addressing scheme, everything else the
// slippy path scheme.
func rasterURL(origin string, z, x, y int) string {
	if strings.Contains(origin, "google") {
		return fmt.Sprintf("%s&x=%d&y=%d&z=%d", origin, x, y, z)
	}
	return fmt.Sprintf("%s/%d/%d/%d.png", strings.TrimSuffix(origin, "/"), z, x, y)
}

func vectorURL(origin string, z, x, y int) string {
	return fmt.Sprintf("%s/%d/%d/%d.pbf", strings.TrimSuffix(origin, "/"), z, x, y)
}

// Raster returns the raster tile bytes, fetching and caching on miss.
// Cached tiles are returned unchanged.
func (c *Cache) Raster(ctx context.Context, origin string, z, x, y int) ([]byte, error) {
	return c.get(ctx, c.RasterPath(origin, z, x, y), rasterURL(origin, z, x, y))
}

// Vector returns the vector tile bytes, fetching and caching on miss.
func (c *Cache) Vector(ctx context.Context, origin string, z, x, y int) ([]byte, error) {
	return c.get(ctx, c.VectorPath(z, x, y), vectorURL(origin, z, x, y))
}

func (c *Cache) get(ctx context.Context, path, url string) ([]byte, error) {
	if data, err := os.ReadFile(path); err == nil {
		return data, nil
	}

	data, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create tile cache dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("write cached tile: %w", err)
	}
	return data, nil
}

// fetch downloads a tile. A 429 response sleeps and retries; any other
// non-200 status abandons the tile with empty bytes and an error.
func (c *Cache) fetch(ctx context.Context, url string) ([]byte, error) {
	for attempt := 1; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("tile fetch failed: %w", err)
		}
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("tile fetch failed: %w", err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			return body, nil
		case http.StatusTooManyRequests:
			c.logger.Warn("tile server rate limited, backing off",
				"url", url,
				"attempt", attempt,
				"backoff", rateLimitBackoff,
			)
			c.sleep(rateLimitBackoff)
		default:
			return nil, fmt.Errorf("tile server returned status %d", resp.StatusCode)
		}

		if err := ctx.Err(); err != nil {
			return nil, err
		}
	}
}
