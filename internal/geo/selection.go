package geo

import (
	"encoding/json"
	"fmt"
	"math"
)

// SelectionKind identifies the shape of a workspace selection.
type SelectionKind string

const (
	SelectionNone      SelectionKind = "None"
	SelectionRectangle SelectionKind = "Rectangle"
	SelectionCircle    SelectionKind = "Circle"
	SelectionPolygon   SelectionKind = "Polygon"
)

// Selection is the geographic region a workspace was created from.
// Rectangle holds two opposite corners, Circle a center and an edge point,
// Polygon an ordered ring of vertices (closed implicitly).
type Selection struct {
	Kind   SelectionKind
	Start  Coord   // rectangle corner / circle center
	End    Coord   // rectangle corner / circle edge
	Points []Coord // polygon ring
}

// NewRectangle returns a rectangle selection from two opposite corners.
func NewRectangle(start, end Coord) Selection {
	return Selection{Kind: SelectionRectangle, Start: start, End: end}
}

// NewCircle returns a circle selection from a center and an edge point.
func NewCircle(center, edge Coord) Selection {
	return Selection{Kind: SelectionCircle, Start: center, End: edge}
}

// NewPolygon returns a polygon selection from an ordered ring of vertices.
func NewPolygon(points []Coord) Selection {
	return Selection{Kind: SelectionPolygon, Points: points}
}

// RadiusMeters returns the great-circle radius of a circle selection.
func (s Selection) RadiusMeters() float64 {
	if s.Kind != SelectionCircle {
		return 0
	}
	return DistanceBetween(s.Start, s.End).Meters()
}

// Bound returns the lat/long envelope of the selection, used to index
// workspaces spatially. A None selection yields the zero bound.
func (s Selection) Bound() Bound {
	switch s.Kind {
	case SelectionRectangle:
		return NewBound(s.Start, s.End)
	case SelectionCircle:
		r := s.RadiusMeters()
		lat := float64(s.Start.Lat)
		dLat := r / 111320.0
		dLon := dLat
		if cos := math.Cos(lat * math.Pi / 180); cos > 1e-9 {
			dLon = dLat / cos
		}
		return Bound{
			MinLat: lat - dLat,
			MaxLat: lat + dLat,
			MinLon: float64(s.Start.Lon) - dLon,
			MaxLon: float64(s.Start.Lon) + dLon,
		}
	case SelectionPolygon:
		return BoundOf(s.Points)
	default:
		return Bound{}
	}
}

type rectangleJSON struct {
	Start Coord `json:"start"`
	End   Coord `json:"end"`
}

type circleJSON struct {
	Center Coord `json:"center"`
	Edge   Coord `json:"edge"`
}

type polygonJSON struct {
	Points []Coord `json:"points"`
}

// MarshalJSON encodes the selection as a single-key tagged object, e.g.
// {"Rectangle":{"start":...,"end":...}} or "None".
func (s Selection) MarshalJSON() ([]byte, error) {
	switch s.Kind {
	case SelectionRectangle:
		return json.Marshal(map[string]rectangleJSON{
			string(SelectionRectangle): {Start: s.Start, End: s.End},
		})
	case SelectionCircle:
		return json.Marshal(map[string]circleJSON{
			string(SelectionCircle): {Center: s.Start, Edge: s.End},
		})
	case SelectionPolygon:
		return json.Marshal(map[string]polygonJSON{
			string(SelectionPolygon): {Points: s.Points},
		})
	default:
		return json.Marshal(string(SelectionNone))
	}
}

// UnmarshalJSON decodes the tagged form produced by MarshalJSON.
func (s *Selection) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != string(SelectionNone) {
			return fmt.Errorf("unknown selection tag %q", tag)
		}
		*s = Selection{Kind: SelectionNone}
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid selection: %w", err)
	}
	if len(raw) != 1 {
		return fmt.Errorf("selection must have exactly one variant, got %d", len(raw))
	}

	for tag, body := range raw {
		switch SelectionKind(tag) {
		case SelectionRectangle:
			var r rectangleJSON
			if err := json.Unmarshal(body, &r); err != nil {
				return fmt.Errorf("invalid rectangle selection: %w", err)
			}
			*s = NewRectangle(r.Start, r.End)
		case SelectionCircle:
			var c circleJSON
			if err := json.Unmarshal(body, &c); err != nil {
				return fmt.Errorf("invalid circle selection: %w", err)
			}
			*s = NewCircle(c.Center, c.Edge)
		case SelectionPolygon:
			var p polygonJSON
			if err := json.Unmarshal(body, &p); err != nil {
				return fmt.Errorf("invalid polygon selection: %w", err)
			}
			*s = NewPolygon(p.Points)
		default:
			return fmt.Errorf("unknown selection tag %q", tag)
		}
	}
	return nil
}
