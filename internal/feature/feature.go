// Package feature holds the map feature model and the spatially indexed
// per-request feature store.
package feature

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/MeKo-Tech/mapscope/internal/geo"
)

// Feature is a geometric object parsed from a data request: a single exterior
// ring with attached key/value properties. Features compare equal by ID.
type Feature struct {
	ID         string         `json:"id"`
	Properties map[string]any `json:"properties"`
	Closed     bool           `json:"closed"`
	Ring       []geo.Coord    `json:"ring"`
}

// Bound returns the envelope of the feature's geometry. The envelope is
// stable once the feature is inserted into a store; mutating the ring
// requires remove-then-insert.
func (f *Feature) Bound() geo.Bound {
	return geo.BoundOf(f.Ring)
}

// Centroid returns the centroid of the feature's geometry (not the envelope
// midpoint). Closed rings use the area centroid, open lines the
// length-weighted centroid. Degenerate geometry falls back to the envelope
// center.
func (f *Feature) Centroid() geo.Coord {
	if len(f.Ring) == 0 {
		return geo.Coord{}
	}
	if len(f.Ring) == 1 {
		return f.Ring[0]
	}

	var g orb.Geometry
	if f.Closed && len(f.Ring) >= 3 {
		ring := make(orb.Ring, 0, len(f.Ring)+1)
		for _, c := range f.Ring {
			ring = append(ring, orb.Point{float64(c.Lon), float64(c.Lat)})
		}
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		g = orb.Polygon{ring}
	} else {
		line := make(orb.LineString, 0, len(f.Ring))
		for _, c := range f.Ring {
			line = append(line, orb.Point{float64(c.Lon), float64(c.Lat)})
		}
		g = line
	}

	centroid, area := planar.CentroidArea(g)
	if f.Closed && area == 0 {
		return f.Bound().Center()
	}
	return geo.NewCoord(centroid.Lat(), centroid.Lon())
}

// Tag returns a string property value, if present.
func (f *Feature) Tag(key string) (string, bool) {
	v, ok := f.Properties[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}
