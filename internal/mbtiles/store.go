// Package mbtiles reads and writes MBTiles databases, used to export the
// tile cache as a single portable file.
package mbtiles

import (
	"bytes"
	"compress/gzip"
	"database/sql"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	_ "modernc.org/sqlite" // SQLite driver
)

// batchSize is the number of tiles buffered before flushing to the database.
const batchSize = 100

// Metadata holds the MBTiles metadata fields this tool cares about.
type Metadata struct {
	Name        string
	Format      string // png or pbf
	Description string
	Bounds      [4]float64 // minLon, minLat, maxLon, maxLat
	MinZoom     int
	MaxZoom     int
}

func (m Metadata) rows() map[string]string {
	rows := map[string]string{}
	if m.Name != "" {
		rows["name"] = m.Name
	}
	if m.Format != "" {
		rows["format"] = m.Format
	}
	if m.Description != "" {
		rows["description"] = m.Description
	}
	if m.Bounds != [4]float64{} {
		rows["bounds"] = fmt.Sprintf("%.6f,%.6f,%.6f,%.6f",
			m.Bounds[0], m.Bounds[1], m.Bounds[2], m.Bounds[3])
	}
	if m.MinZoom > 0 {
		rows["minzoom"] = strconv.Itoa(m.MinZoom)
	}
	if m.MaxZoom > 0 {
		rows["maxzoom"] = strconv.Itoa(m.MaxZoom)
	}
	return rows
}

// Store is an open MBTiles database. Writes are batched; tile data is gzip
// compressed on disk and transparently decompressed on read. Tile
// coordinates use the XYZ scheme and are converted to TMS internally.
type Store struct {
	db    *sql.DB
	mu    sync.Mutex
	batch []tileEntry
}

type tileEntry struct {
	data []byte
	z    int
	x    int
	y    int
}

// Create opens (creating if needed) an MBTiles database for writing and
// replaces its metadata.
func Create(path string, meta Metadata) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open mbtiles: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS metadata (name TEXT NOT NULL, value TEXT);
		CREATE TABLE IF NOT EXISTS tiles (
			zoom_level INTEGER NOT NULL,
			tile_column INTEGER NOT NULL,
			tile_row INTEGER NOT NULL,
			tile_data BLOB NOT NULL
		);
		CREATE UNIQUE INDEX IF NOT EXISTS tile_index
			ON tiles (zoom_level, tile_column, tile_row);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create mbtiles schema: %w", err)
	}

	if _, err := db.Exec("DELETE FROM metadata"); err != nil {
		db.Close()
		return nil, fmt.Errorf("reset metadata: %w", err)
	}
	for name, value := range meta.rows() {
		if _, err := db.Exec("INSERT INTO metadata (name, value) VALUES (?, ?)", name, value); err != nil {
			db.Close()
			return nil, fmt.Errorf("insert metadata %q: %w", name, err)
		}
	}

	return &Store{db: db}, nil
}

// Open opens an existing MBTiles database read-only.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("open mbtiles: %w", err)
	}

	var count int
	if err := db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='tiles'",
	).Scan(&count); err != nil {
		db.Close()
		return nil, fmt.Errorf("verify mbtiles schema: %w", err)
	}
	if count == 0 {
		db.Close()
		return nil, fmt.Errorf("%s is not an mbtiles database", path)
	}

	return &Store{db: db}, nil
}

// WriteTile buffers a tile; full batches flush automatically.
func (s *Store) WriteTile(z, x, y int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.batch = append(s.batch, tileEntry{data: data, z: z, x: x, y: y})
	if len(s.batch) >= batchSize {
		return s.flushLocked()
	}
	return nil
}

// Flush writes any buffered tiles.
func (s *Store) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushLocked()
}

func (s *Store) flushLocked() error {
	if len(s.batch) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tile batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.Prepare(
		"INSERT OR REPLACE INTO tiles (zoom_level, tile_column, tile_row, tile_data) VALUES (?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare tile insert: %w", err)
	}
	defer stmt.Close()

	for _, t := range s.batch {
		tmsY := (1 << t.z) - 1 - t.y

		var buf bytes.Buffer
		gw := gzip.NewWriter(&buf)
		if _, err := gw.Write(t.data); err != nil {
			gw.Close()
			return fmt.Errorf("compress tile %d/%d/%d: %w", t.z, t.x, t.y, err)
		}
		if err := gw.Close(); err != nil {
			return fmt.Errorf("compress tile %d/%d/%d: %w", t.z, t.x, t.y, err)
		}

		if _, err := stmt.Exec(t.z, t.x, tmsY, buf.Bytes()); err != nil {
			return fmt.Errorf("insert tile %d/%d/%d: %w", t.z, t.x, t.y, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tile batch: %w", err)
	}
	s.batch = s.batch[:0]
	return nil
}

// ReadTile returns the decompressed tile data at z/x/y.
func (s *Store) ReadTile(z, x, y int) ([]byte, error) {
	tmsY := (1 << z) - 1 - y

	var compressed []byte
	err := s.db.QueryRow(
		"SELECT tile_data FROM tiles WHERE zoom_level=? AND tile_column=? AND tile_row=?",
		z, x, tmsY,
	).Scan(&compressed)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("tile not found: %d/%d/%d", z, x, y)
	}
	if err != nil {
		return nil, fmt.Errorf("query tile %d/%d/%d: %w", z, x, y, err)
	}

	gr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("decompress tile %d/%d/%d: %w", z, x, y, err)
	}
	defer gr.Close()

	data, err := io.ReadAll(gr)
	if err != nil {
		return nil, fmt.Errorf("decompress tile %d/%d/%d: %w", z, x, y, err)
	}
	return data, nil
}

// TileCount returns the number of stored tiles.
func (s *Store) TileCount() (int, error) {
	if err := s.Flush(); err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM tiles").Scan(&n); err != nil {
		return 0, fmt.Errorf("count tiles: %w", err)
	}
	return n, nil
}

// Metadata reads the metadata table.
func (s *Store) Metadata() (Metadata, error) {
	rows, err := s.db.Query("SELECT name, value FROM metadata")
	if err != nil {
		return Metadata{}, fmt.Errorf("query metadata: %w", err)
	}
	defer rows.Close()

	kv := map[string]string{}
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return Metadata{}, fmt.Errorf("scan metadata: %w", err)
		}
		kv[name] = value
	}
	if err := rows.Err(); err != nil {
		return Metadata{}, fmt.Errorf("iterate metadata: %w", err)
	}

	meta := Metadata{
		Name:        kv["name"],
		Format:      kv["format"],
		Description: kv["description"],
	}
	meta.MinZoom, _ = strconv.Atoi(kv["minzoom"])
	meta.MaxZoom, _ = strconv.Atoi(kv["maxzoom"])
	if parts := strings.Split(kv["bounds"], ","); len(parts) == 4 {
		for i, part := range parts {
			meta.Bounds[i], _ = strconv.ParseFloat(strings.TrimSpace(part), 64)
		}
	}
	return meta, nil
}

// Close flushes buffered tiles and closes the database.
func (s *Store) Close() error {
	if err := s.Flush(); err != nil {
		s.db.Close()
		return err
	}
	return s.db.Close()
}
