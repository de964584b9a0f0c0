// Package geo provides the coordinate model shared by the whole application:
// geodetic coordinates, Web Mercator and slippy-tile conversions, and the
// movable-origin "game" plane used by the renderer.
package geo

import "math"

const (
	// MercatorHalfCircumference is half the Earth's equatorial circumference
	// in meters, the extent of the Web Mercator plane (EPSG:3857).
	MercatorHalfCircumference = 20037508.34

	// EarthRadius is the mean Earth radius in meters used for great-circle math.
	EarthRadius = 6371000.0

	// MaxMercatorLat is the latitude limit of the Web Mercator projection.
	// Tile math is undefined beyond it; callers clamp before querying.
	MaxMercatorLat = 85.0511
)

// Coord is a geodetic (latitude, longitude) pair in degrees.
type Coord struct {
	Lat float32 `json:"lat"`
	Lon float32 `json:"lon"`
}

// NewCoord returns a coordinate with the longitude normalized to (-180, 180].
func NewCoord(lat, lon float64) Coord {
	return Coord{Lat: float32(lat), Lon: float32(NormalizeLon(lon))}
}

// NormalizeLon folds a longitude into (-180, 180] by repeated wrapping.
func NormalizeLon(lon float64) float64 {
	for lon > 180 {
		lon -= 360
	}
	for lon <= -180 {
		lon += 360
	}
	return lon
}

// ClampLat limits a latitude to the Web Mercator domain.
func ClampLat(lat float64) float64 {
	if lat > MaxMercatorLat {
		return MaxMercatorLat
	}
	if lat < -MaxMercatorLat {
		return -MaxMercatorLat
	}
	return lat
}

// Mercator projects the coordinate onto the Web Mercator plane.
// Returns (x, y) in meters, both within ±MercatorHalfCircumference.
func (c Coord) Mercator() (float64, float64) {
	lonRad := NormalizeLon(float64(c.Lon)) * math.Pi / 180
	latRad := ClampLat(float64(c.Lat)) * math.Pi / 180

	x := lonRad * MercatorHalfCircumference / math.Pi
	y := math.Asinh(math.Tan(latRad)) * MercatorHalfCircumference / math.Pi
	return x, y
}

// Tile returns the slippy-map tile indices containing the coordinate at the
// given zoom level, floored.
func (c Coord) Tile(zoom int) (int, int) {
	n := math.Exp2(float64(zoom))
	lon := NormalizeLon(float64(c.Lon))
	latRad := ClampLat(float64(c.Lat)) * math.Pi / 180

	x := math.Floor((lon + 180) / 360 * n)
	y := math.Floor((1 - math.Asinh(math.Tan(latRad))/math.Pi) / 2 * n)
	return int(x), int(y)
}

// TileToCoord returns the northwest corner of a slippy-map tile.
func TileToCoord(x, y, zoom int) Coord {
	n := math.Exp2(float64(zoom))
	lon := float64(x)/n*360 - 180
	lat := math.Atan(math.Sinh(math.Pi*(1-2*float64(y)/n))) * 180 / math.Pi
	return NewCoord(lat, lon)
}

// MetersPerTile returns the Web Mercator extent of one tile at a zoom level.
func MetersPerTile(zoom int) float64 {
	return 2 * MercatorHalfCircumference / math.Exp2(float64(zoom))
}

// GameCoord converts the coordinate into the planar "game" frame anchored at
// reference: Mercator offset from the reference scaled so one tile spans
// tileQuality units. The frame moves with the reference when zoom changes.
func (c Coord) GameCoord(reference Coord, zoom int, tileQuality float64) (float64, float64) {
	cx, cy := c.Mercator()
	rx, ry := reference.Mercator()
	scale := MetersPerTile(zoom) / tileQuality
	return (cx - rx) / scale, (cy - ry) / scale
}

// CoordFromGame inverts GameCoord for the same reference, zoom and quality.
func CoordFromGame(gx, gy float64, reference Coord, zoom int, tileQuality float64) Coord {
	rx, ry := reference.Mercator()
	scale := MetersPerTile(zoom) / tileQuality

	x := gx*scale + rx
	y := gy*scale + ry

	lon := x / MercatorHalfCircumference * 180
	lat := math.Atan(math.Sinh(y/MercatorHalfCircumference*math.Pi)) * 180 / math.Pi
	return NewCoord(lat, lon)
}
