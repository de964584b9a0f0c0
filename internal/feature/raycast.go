package feature

import "github.com/MeKo-Tech/mapscope/internal/geo"

// PointInRing reports whether p lies inside the polygon ring using even-odd
// ray casting: a horizontal ray cast east of p must cross an odd number of
// ring edges. The ring is an ordered vertex list without a repeated closing
// vertex. Points exactly on an edge count as inside. Rings with fewer than
// three vertices contain nothing; self-intersecting rings get even-odd fill.
func PointInRing(p geo.Coord, ring []geo.Coord) bool {
	n := len(ring)
	if n < 3 {
		return false
	}

	px, py := float64(p.Lon), float64(p.Lat)

	inside := false
	j := n - 1
	for i := 0; i < n; i++ {
		xi, yi := float64(ring[i].Lon), float64(ring[i].Lat)
		xj, yj := float64(ring[j].Lon), float64(ring[j].Lat)

		if onSegment(px, py, xi, yi, xj, yj) {
			return true
		}

		if (yi > py) != (yj > py) {
			// Longitude where the edge crosses the ray's latitude.
			crossX := xi + (py-yi)*(xj-xi)/(yj-yi)
			if crossX > px {
				inside = !inside
			}
		}
		j = i
	}
	return inside
}

// onSegment reports whether (px, py) lies on the segment (x1, y1)-(x2, y2).
func onSegment(px, py, x1, y1, x2, y2 float64) bool {
	const eps = 1e-12

	cross := (x2-x1)*(py-y1) - (y2-y1)*(px-x1)
	if cross > eps || cross < -eps {
		return false
	}

	dot := (px-x1)*(x2-x1) + (py-y1)*(y2-y1)
	if dot < 0 {
		return false
	}
	lenSq := (x2-x1)*(x2-x1) + (y2-y1)*(y2-y1)
	return dot <= lenSq
}
