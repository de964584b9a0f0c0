package osm

import (
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/MeKo-Tech/mapscope/internal/feature"
	"github.com/MeKo-Tech/mapscope/internal/geo"
)

// ParseGeoJSON decodes a GeoJSON FeatureCollection (e.g. a dropped file) into
// features. Polygon, LineString and MultiPolygon geometries are supported;
// other geometry types are skipped. For MultiPolygon only the last ring
// parsed is retained.
func ParseGeoJSON(raw []byte) ([]*feature.Feature, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal geojson: %w", err)
	}

	features := make([]*feature.Feature, 0, len(fc.Features))
	for i, gf := range fc.Features {
		if gf.Geometry == nil {
			continue
		}

		var ring []geo.Coord
		closed := false

		switch g := gf.Geometry.(type) {
		case orb.Polygon:
			if len(g) == 0 {
				continue
			}
			ring = fromOrbRing(g[0])
			closed = true
		case orb.LineString:
			ring = fromOrbLine(g)
		case orb.MultiPolygon:
			for _, poly := range g {
				for _, r := range poly {
					ring = fromOrbRing(r)
				}
			}
			closed = true
		default:
			continue
		}

		if len(ring) == 0 {
			continue
		}

		props := map[string]any(gf.Properties)
		if props == nil {
			props = map[string]any{}
		}

		features = append(features, &feature.Feature{
			ID:         geojsonID(gf, i),
			Properties: props,
			Closed:     closed,
			Ring:       ring,
		})
	}
	return features, nil
}

// fromOrbRing converts an orb ring, dropping the repeated closing vertex.
func fromOrbRing(r orb.Ring) []geo.Coord {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	out := make([]geo.Coord, 0, n)
	for _, p := range r[:n] {
		out = append(out, geo.NewCoord(p.Lat(), p.Lon()))
	}
	return out
}

func fromOrbLine(l orb.LineString) []geo.Coord {
	out := make([]geo.Coord, 0, len(l))
	for _, p := range l {
		out = append(out, geo.NewCoord(p.Lat(), p.Lon()))
	}
	return out
}

func geojsonID(gf *geojson.Feature, index int) string {
	if gf.ID != nil {
		return fmt.Sprint(gf.ID)
	}
	if id, ok := gf.Properties["id"]; ok {
		return fmt.Sprint(id)
	}
	return fmt.Sprintf("feature/%d", index)
}
