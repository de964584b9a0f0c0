package tilecache

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MeKo-Tech/mapscope/internal/geo"
	"github.com/MeKo-Tech/mapscope/internal/worker"
)

// TileRange is the inclusive rectangle of tile indices covering a bound at
// one zoom level.
type TileRange struct {
	Zoom                   int
	MinX, MinY, MaxX, MaxY int
}

// Count returns the number of tiles in the range.
func (r TileRange) Count() int {
	return (r.MaxX - r.MinX + 1) * (r.MaxY - r.MinY + 1)
}

// RangeForBound returns the tile range covering a geographic bound. Note
// that tile y grows southward, so the bound's max latitude maps to min y.
func RangeForBound(b geo.Bound, zoom int) TileRange {
	minX, maxY := geo.NewCoord(b.MinLat, b.MinLon).Tile(zoom)
	maxX, minY := geo.NewCoord(b.MaxLat, b.MaxLon).Tile(zoom)
	return TileRange{Zoom: zoom, MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}
}

// Prefetcher warms the cache for a region in the background, sharing the
// bounded-concurrency discipline of the request worker.
type Prefetcher struct {
	cache  *Cache
	worker *worker.Worker
	logger *slog.Logger
}

// NewPrefetcher creates a prefetcher over the given cache. A nil logger uses
// the default.
func NewPrefetcher(cache *Cache, slots int, logger *slog.Logger) *Prefetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Prefetcher{
		cache:  cache,
		worker: worker.New(slots, logger),
		logger: logger,
	}
}

// Worker exposes the underlying worker for ticking and draining.
func (p *Prefetcher) Worker() *worker.Worker { return p.worker }

// Prefetch queues one fetch task per tile in the range. Tasks run as worker
// slots free up; already cached tiles are cheap no-ops.
func (p *Prefetcher) Prefetch(ctx context.Context, origin string, r TileRange) int {
	for x := r.MinX; x <= r.MaxX; x++ {
		for y := r.MinY; y <= r.MaxY; y++ {
			p.worker.Submit(worker.Task{
				Name: fmt.Sprintf("tile %d/%d/%d", r.Zoom, x, y),
				Run: func(ctx context.Context) error {
					_, err := p.cache.Raster(ctx, origin, r.Zoom, x, y)
					return err
				},
			})
		}
	}
	p.worker.Tick(ctx)
	return r.Count()
}

// PrefetchBound queues fetches for all tiles covering the bound and blocks
// until the queue drains or ctx expires.
func (p *Prefetcher) PrefetchBound(ctx context.Context, origin string, b geo.Bound, zoom int) (int, error) {
	r := RangeForBound(b, zoom)
	n := p.Prefetch(ctx, origin, r)
	p.logger.Info("prefetching tiles", "zoom", zoom, "tiles", n)
	return n, p.worker.Drain(ctx)
}
