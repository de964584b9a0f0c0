package overpass

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/mapscope/internal/geo"
)

// ErrNoValidSettings is returned when no enabled (category, subkey) pair
// produces a query clause; such a request must never be sent.
var ErrNoValidSettings = errors.New("no valid settings enabled")

// ErrNoSelection is returned when the selection has no geometry to bound the
// query.
var ErrNoSelection = errors.New("selection has no geometry")

// BuildQuery assembles an Overpass QL query for the selection and settings
// tree: `[out:json];` prefix, one union of way/node/relation clauses per
// enabled pair, `out body geom;` suffix. Category names and subkeys are
// emitted lowercase.
func BuildQuery(sel geo.Selection, settings Settings) (string, error) {
	bounds, err := formatBounds(sel)
	if err != nil {
		return "", err
	}

	pairs := settings.enabledPairs()
	if len(pairs) == 0 {
		return "", ErrNoValidSettings
	}

	var b strings.Builder
	b.WriteString("[out:json];")
	for _, p := range pairs {
		cat := strings.ToLower(p.category)
		var filter string
		if p.subkey == Wildcard {
			filter = fmt.Sprintf("[%q]", cat)
		} else {
			filter = fmt.Sprintf("[%q=%q]", cat, strings.ToLower(p.subkey))
		}

		b.WriteString("(")
		for _, kind := range []string{"way", "node", "relation"} {
			fmt.Fprintf(&b, "%s%s(%s);", kind, filter, bounds)
		}
		b.WriteString(");")
	}
	b.WriteString("out body geom;")
	return b.String(), nil
}

// formatBounds renders the selection geometry as an Overpass spatial filter.
func formatBounds(sel geo.Selection) (string, error) {
	switch sel.Kind {
	case geo.SelectionRectangle:
		b := sel.Bound()
		// Four corners explicitly, clockwise from the southwest row.
		return fmt.Sprintf("poly:%q", strings.Join([]string{
			coordPair(b.MinLat, b.MinLon),
			coordPair(b.MinLat, b.MaxLon),
			coordPair(b.MaxLat, b.MaxLon),
			coordPair(b.MaxLat, b.MinLon),
		}, " ")), nil

	case geo.SelectionCircle:
		radius := math.Round(sel.RadiusMeters()*100) / 100
		return fmt.Sprintf("around:%s,%s,%s",
			formatFloat64(radius),
			formatCoord(sel.Start.Lat),
			formatCoord(sel.Start.Lon)), nil

	case geo.SelectionPolygon:
		if len(sel.Points) == 0 {
			return "", ErrNoSelection
		}
		parts := make([]string, 0, len(sel.Points))
		for _, p := range sel.Points {
			parts = append(parts, coordPair(float64(p.Lat), float64(p.Lon)))
		}
		return fmt.Sprintf("poly:%q", strings.Join(parts, " ")), nil

	default:
		return "", ErrNoSelection
	}
}

func coordPair(lat, lon float64) string {
	return formatCoord(float32(lat)) + " " + formatCoord(float32(lon))
}

// formatCoord renders a coordinate component with the shortest representation
// that survives a float32 round trip, keeping queries stable across saves.
func formatCoord(v float32) string {
	return strconv.FormatFloat(float64(v), 'f', -1, 32)
}

func formatFloat64(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
