package feature

import (
	"github.com/tidwall/rtree"

	"github.com/MeKo-Tech/mapscope/internal/geo"
)

// Store is a spatially indexed set of features backed by an R-tree keyed on
// the feature envelopes. One store exists per data request; it is a derived
// view, rebuilt from the request's raw bytes on load.
type Store struct {
	tree rtree.RTreeG[*Feature]
}

// NewStore returns an empty feature store.
func NewStore() *Store {
	return &Store{}
}

// Insert adds a feature under its geometry envelope.
func (s *Store) Insert(f *Feature) {
	b := f.Bound()
	s.tree.Insert(b.Min(), b.Max(), f)
}

// InsertAll adds a batch of features.
func (s *Store) InsertAll(features []*Feature) {
	for _, f := range features {
		s.Insert(f)
	}
}

// Remove deletes a feature previously inserted under the same envelope.
func (s *Store) Remove(f *Feature) {
	b := f.Bound()
	s.tree.Delete(b.Min(), b.Max(), f)
}

// Len returns the number of indexed features.
func (s *Store) Len() int {
	return s.tree.Len()
}

// Search returns all features whose envelopes intersect the bound.
func (s *Store) Search(b geo.Bound) []*Feature {
	var out []*Feature
	s.tree.Search(b.Min(), b.Max(), func(_, _ [2]float64, f *Feature) bool {
		out = append(out, f)
		return true
	})
	return out
}

// At returns all features whose envelopes contain the point.
func (s *Store) At(c geo.Coord) []*Feature {
	p := [2]float64{float64(c.Lon), float64(c.Lat)}
	var out []*Feature
	s.tree.Search(p, p, func(_, _ [2]float64, f *Feature) bool {
		out = append(out, f)
		return true
	})
	return out
}

// ByID returns the feature with the given id via a linear scan, or nil.
func (s *Store) ByID(id string) *Feature {
	var found *Feature
	s.tree.Scan(func(_, _ [2]float64, f *Feature) bool {
		if f.ID == id {
			found = f
			return false
		}
		return true
	})
	return found
}

// All returns every indexed feature.
func (s *Store) All() []*Feature {
	out := make([]*Feature, 0, s.tree.Len())
	s.tree.Scan(func(_, _ [2]float64, f *Feature) bool {
		out = append(out, f)
		return true
	})
	return out
}

// InPolygon returns the features whose geometry centroid lies inside the ring.
// Candidates are narrowed with an envelope query first, then tested with
// even-odd ray casting.
func (s *Store) InPolygon(ring []geo.Coord) []*Feature {
	if len(ring) < 3 {
		return nil
	}

	var out []*Feature
	for _, f := range s.Search(geo.BoundOf(ring)) {
		if PointInRing(f.Centroid(), ring) {
			out = append(out, f)
		}
	}
	return out
}
