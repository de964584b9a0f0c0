package geo

import "fmt"

// Bound is a geographic bounding box in WGS84 degrees.
type Bound struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// NewBound returns the bound spanning two coordinates in any order.
func NewBound(a, b Coord) Bound {
	bd := Bound{
		MinLat: float64(a.Lat), MaxLat: float64(a.Lat),
		MinLon: float64(a.Lon), MaxLon: float64(a.Lon),
	}
	return bd.ExtendCoord(b)
}

// BoundOf returns the envelope of a set of coordinates.
// The zero Bound is returned for an empty set.
func BoundOf(coords []Coord) Bound {
	if len(coords) == 0 {
		return Bound{}
	}
	b := NewBound(coords[0], coords[0])
	for _, c := range coords[1:] {
		b = b.ExtendCoord(c)
	}
	return b
}

// ExtendCoord grows the bound to include a coordinate.
func (b Bound) ExtendCoord(c Coord) Bound {
	if float64(c.Lat) < b.MinLat {
		b.MinLat = float64(c.Lat)
	}
	if float64(c.Lat) > b.MaxLat {
		b.MaxLat = float64(c.Lat)
	}
	if float64(c.Lon) < b.MinLon {
		b.MinLon = float64(c.Lon)
	}
	if float64(c.Lon) > b.MaxLon {
		b.MaxLon = float64(c.Lon)
	}
	return b
}

// Union returns the smallest bound covering both bounds.
func (b Bound) Union(o Bound) Bound {
	if o.MinLat < b.MinLat {
		b.MinLat = o.MinLat
	}
	if o.MinLon < b.MinLon {
		b.MinLon = o.MinLon
	}
	if o.MaxLat > b.MaxLat {
		b.MaxLat = o.MaxLat
	}
	if o.MaxLon > b.MaxLon {
		b.MaxLon = o.MaxLon
	}
	return b
}

// Contains reports whether the coordinate lies inside the bound (inclusive).
func (b Bound) Contains(c Coord) bool {
	lat, lon := float64(c.Lat), float64(c.Lon)
	return lat >= b.MinLat && lat <= b.MaxLat && lon >= b.MinLon && lon <= b.MaxLon
}

// Intersects reports whether two bounds overlap.
func (b Bound) Intersects(o Bound) bool {
	return b.MinLat <= o.MaxLat && b.MaxLat >= o.MinLat &&
		b.MinLon <= o.MaxLon && b.MaxLon >= o.MinLon
}

// Center returns the midpoint of the bound.
func (b Bound) Center() Coord {
	return NewCoord((b.MinLat+b.MaxLat)/2, (b.MinLon+b.MaxLon)/2)
}

// Min and Max return the bound's corners as (lon, lat) pairs for
// rtree-style APIs where axis 0 is longitude.
func (b Bound) Min() [2]float64 { return [2]float64{b.MinLon, b.MinLat} }

// Max returns the northeast corner, see Min.
func (b Bound) Max() [2]float64 { return [2]float64{b.MaxLon, b.MaxLat} }

// IsZero reports whether the bound is the zero value.
func (b Bound) IsZero() bool {
	return b == Bound{}
}

func (b Bound) String() string {
	return fmt.Sprintf("bbox(%.6f,%.6f,%.6f,%.6f)", b.MinLat, b.MinLon, b.MaxLat, b.MaxLon)
}
