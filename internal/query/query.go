// Package query answers spatial questions over the active workspace's
// rendered features.
package query

import (
	"fmt"
	"sort"

	"github.com/MeKo-Tech/mapscope/internal/feature"
	"github.com/MeKo-Tech/mapscope/internal/geo"
	"github.com/MeKo-Tech/mapscope/internal/workspace"
)

// API wraps a workspace context with the read-only query surface.
type API struct {
	ctx *workspace.Context
}

// New wraps a workspace context.
func New(ctx *workspace.Context) *API {
	return &API{ctx: ctx}
}

// Info summarizes the active workspace.
type Info struct {
	Workspace     string            `json:"workspace"`
	SelectionKind geo.SelectionKind `json:"selection_kind"`
	Bound         geo.Bound         `json:"bound"`
	Requests      int               `json:"requests"`
	Rendered      int               `json:"rendered"`
	Features      int               `json:"features"`
}

// Info returns feature count and selection metadata for the active workspace.
func (a *API) Info() (Info, error) {
	active := a.ctx.Active()
	if active == nil {
		return Info{}, fmt.Errorf("no active workspace")
	}

	rendered := a.ctx.RenderedRequests()
	features := 0
	for _, req := range rendered {
		features += req.FeatureCount()
	}

	return Info{
		Workspace:     active.Name,
		SelectionKind: active.Selection.Kind,
		Bound:         active.Bound(),
		Requests:      len(active.Requests),
		Rendered:      len(rendered),
		Features:      features,
	}, nil
}

// renderedFeatures flattens the rendered requests' feature stores.
func (a *API) renderedFeatures() []*feature.Feature {
	var out []*feature.Feature
	for _, req := range a.ctx.RenderedRequests() {
		out = append(out, req.Processed.All()...)
	}
	return out
}

// FeatureTags returns the properties of the feature with the given id, if
// present in any rendered request.
func (a *API) FeatureTags(id string) (map[string]any, bool) {
	for _, req := range a.ctx.RenderedRequests() {
		if f := req.Processed.ByID(id); f != nil {
			return f.Properties, true
		}
	}
	return nil, false
}

// NearbyPoint returns the features whose geometry centroid lies within
// radiusMeters of center, by haversine distance.
func (a *API) NearbyPoint(center geo.Coord, radiusMeters float64) []*feature.Feature {
	var out []*feature.Feature
	for _, f := range a.renderedFeatures() {
		if geo.Haversine(center, f.Centroid()) <= radiusMeters {
			out = append(out, f)
		}
	}
	return out
}

// InBBox returns the features whose envelopes intersect the bounding box,
// via the per-request R-trees.
func (a *API) InBBox(b geo.Bound) []*feature.Feature {
	var out []*feature.Feature
	for _, req := range a.ctx.RenderedRequests() {
		out = append(out, req.Processed.Search(b)...)
	}
	return out
}

// InPolygon returns the features whose centroids fall inside the ring.
func (a *API) InPolygon(ring []geo.Coord) []*feature.Feature {
	var out []*feature.Feature
	for _, req := range a.ctx.RenderedRequests() {
		out = append(out, req.Processed.InPolygon(ring)...)
	}
	return out
}

// Nearest returns the feature whose centroid is closest to c by haversine,
// scanning all rendered features. Ties keep the first encountered.
func (a *API) Nearest(c geo.Coord) (*feature.Feature, float64, bool) {
	var (
		best     *feature.Feature
		bestDist float64
	)
	for _, f := range a.renderedFeatures() {
		d := geo.Haversine(c, f.Centroid())
		if best == nil || d < bestDist {
			best, bestDist = f, d
		}
	}
	if best == nil {
		return nil, 0, false
	}
	return best, bestDist, true
}

// Summary is the result of Summarize: how many features fall in the radius
// and how often each tag key occurs among them.
type Summary struct {
	Count int            `json:"count"`
	Tags  map[string]int `json:"tags"`
}

// Summarize counts the features within radiusMeters of center and tallies
// their tag keys.
func (a *API) Summarize(center geo.Coord, radiusMeters float64) Summary {
	s := Summary{Tags: make(map[string]int)}
	for _, f := range a.NearbyPoint(center, radiusMeters) {
		s.Count++
		for key := range f.Properties {
			s.Tags[key]++
		}
	}
	return s
}

// TopTags returns the summary's tag keys sorted by occurrence, then name.
func (s Summary) TopTags() []string {
	keys := make([]string, 0, len(s.Tags))
	for k := range s.Tags {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if s.Tags[keys[i]] != s.Tags[keys[j]] {
			return s.Tags[keys[i]] > s.Tags[keys[j]]
		}
		return keys[i] < keys[j]
	})
	return keys
}

// DistanceBetween returns the haversine distance between two coordinates in
// meters.
func (a *API) DistanceBetween(x, y geo.Coord) float64 {
	return geo.Haversine(x, y)
}
