package tilecache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/MeKo-Tech/mapscope/internal/mbtiles"
)

// Export writes every cached raster tile for the origin into an MBTiles
// database at dbPath and returns the number of tiles exported.
func (c *Cache) Export(origin, dbPath string) (int, error) {
	dir := filepath.Join(c.dir, encodeOrigin(origin))
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read tile cache: %w", err)
	}

	minZoom, maxZoom := 0, 0
	type cachedTile struct {
		path    string
		z, x, y int
	}
	var tiles []cachedTile
	for _, entry := range entries {
		z, x, y, ok := parseTileName(entry.Name())
		if !ok {
			continue
		}
		if len(tiles) == 0 || z < minZoom {
			minZoom = z
		}
		if z > maxZoom {
			maxZoom = z
		}
		tiles = append(tiles, cachedTile{path: filepath.Join(dir, entry.Name()), z: z, x: x, y: y})
	}
	if len(tiles) == 0 {
		return 0, fmt.Errorf("no cached tiles for origin %q", origin)
	}

	store, err := mbtiles.Create(dbPath, mbtiles.Metadata{
		Name:        encodeOrigin(origin),
		Format:      "png",
		Description: "exported from tile cache",
		MinZoom:     minZoom,
		MaxZoom:     maxZoom,
	})
	if err != nil {
		return 0, err
	}

	for _, t := range tiles {
		data, err := os.ReadFile(t.path)
		if err != nil {
			store.Close()
			return 0, fmt.Errorf("read cached tile: %w", err)
		}
		if err := store.WriteTile(t.z, t.x, t.y, data); err != nil {
			store.Close()
			return 0, err
		}
	}
	return len(tiles), store.Close()
}

// parseTileName splits a cache file name of the form <z>_<x>_<y>.png.
func parseTileName(name string) (z, x, y int, ok bool) {
	name, found := strings.CutSuffix(name, ".png")
	if !found {
		return 0, 0, 0, false
	}
	if _, err := fmt.Sscanf(name, "%d_%d_%d", &z, &x, &y); err != nil {
		return 0, 0, 0, false
	}
	return z, x, y, true
}
