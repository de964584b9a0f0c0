// Package osm decodes Overpass API responses and GeoJSON documents into map
// features.
package osm

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/MeKo-Tech/mapscope/internal/feature"
	"github.com/MeKo-Tech/mapscope/internal/geo"
)

// overpassElement mirrors one entry of an `[out:json]; ... out body geom;`
// response.
type overpassElement struct {
	ID       int64           `json:"id"`
	Type     string          `json:"type"`
	Tags     map[string]any  `json:"tags"`
	Geometry []overpassPoint `json:"geometry"`
}

type overpassPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

// ParseOverpass decodes an Overpass JSON response into features. Elements
// without geometry are skipped. Each feature carries the element's tags
// verbatim (an empty object when absent) and a single ring built from the
// element's geometry list, closed implicitly.
func ParseOverpass(raw []byte) ([]*feature.Feature, error) {
	var resp overpassResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal overpass json: %w", err)
	}

	features := make([]*feature.Feature, 0, len(resp.Elements))
	for _, el := range resp.Elements {
		if len(el.Geometry) == 0 {
			continue
		}

		ring := make([]geo.Coord, 0, len(el.Geometry))
		for _, p := range el.Geometry {
			ring = append(ring, geo.NewCoord(p.Lat, p.Lon))
		}

		props := el.Tags
		if props == nil {
			props = map[string]any{}
		}

		features = append(features, &feature.Feature{
			ID:         strconv.FormatInt(el.ID, 10),
			Properties: props,
			Closed:     true,
			Ring:       ring,
		})
	}
	return features, nil
}
