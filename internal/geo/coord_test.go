package geo

import (
	"math"
	"testing"
)

func TestNormalizeLon(t *testing.T) {
	tests := []struct {
		in       float64
		expected float64
	}{
		{0, 0},
		{180, 180},
		{-180, 180},
		{181, -179},
		{-181, 179},
		{540, 180},
		{-540, 180},
		{720.5, 0.5},
	}

	for _, tt := range tests {
		got := NormalizeLon(tt.in)
		if math.Abs(got-tt.expected) > 1e-9 {
			t.Errorf("NormalizeLon(%v) = %v, want %v", tt.in, got, tt.expected)
		}
		if got <= -180 || got > 180 {
			t.Errorf("NormalizeLon(%v) = %v outside (-180, 180]", tt.in, got)
		}
	}
}

func TestCoordTile(t *testing.T) {
	// Central London at zoom 14.
	c := NewCoord(51.5074, -0.1278)
	x, y := c.Tile(14)
	if x != 8186 || y != 5448 {
		t.Errorf("Tile(14) = (%d, %d), want (8186, 5448)", x, y)
	}
}

func TestTileToCoordInverse(t *testing.T) {
	c := TileToCoord(8186, 5448, 14)
	if math.Abs(float64(c.Lat)-51.5087) > 0.001 {
		t.Errorf("lat = %v, want ~51.5087", c.Lat)
	}
	if math.Abs(float64(c.Lon)+0.13184) > 0.001 {
		t.Errorf("lon = %v, want ~-0.13184", c.Lon)
	}
}

func TestTileRoundTrip(t *testing.T) {
	// tile -> coord -> tile is exact; coord -> tile -> coord is within one
	// tile's span at that zoom.
	coords := []Coord{
		NewCoord(51.5074, -0.1278),
		NewCoord(52.3745, 9.7386),
		NewCoord(-33.8688, 151.2093),
		NewCoord(0, 0),
	}

	for _, c := range coords {
		for _, zoom := range []int{4, 10, 14, 18} {
			x, y := c.Tile(zoom)
			nw := TileToCoord(x, y, zoom)

			span := 360 / math.Exp2(float64(zoom))
			if math.Abs(float64(nw.Lon)-float64(c.Lon)) > span {
				t.Errorf("z%d lon drift %v > tile span %v", zoom, float64(nw.Lon)-float64(c.Lon), span)
			}

			x2, y2 := nw.Tile(zoom)
			if x2 != x || y2 != y {
				t.Errorf("z%d tile round trip (%d,%d) -> (%d,%d)", zoom, x, y, x2, y2)
			}
		}
	}
}

func TestMercatorRange(t *testing.T) {
	tests := []struct {
		name string
		c    Coord
	}{
		{"origin", NewCoord(0, 0)},
		{"date line", NewCoord(0, 180)},
		{"north limit", NewCoord(85.0511, 0)},
		{"beyond pole clamps", NewCoord(89.9, 10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := tt.c.Mercator()
			if math.Abs(x) > MercatorHalfCircumference+1 {
				t.Errorf("x = %v out of Mercator range", x)
			}
			if math.Abs(y) > MercatorHalfCircumference+1 {
				t.Errorf("y = %v out of Mercator range", y)
			}
		})
	}

	x, y := NewCoord(0, 0).Mercator()
	if x != 0 || y != 0 {
		t.Errorf("Mercator(0,0) = (%v, %v), want (0, 0)", x, y)
	}
}

func TestGameCoordRoundTrip(t *testing.T) {
	ref := NewCoord(52.2, 0.13)
	coords := []Coord{
		NewCoord(52.2, 0.13),
		NewCoord(52.205, 0.145),
		NewCoord(51.5074, -0.1278),
	}

	for _, c := range coords {
		for _, zoom := range []int{8, 14} {
			gx, gy := c.GameCoord(ref, zoom, 256)
			back := CoordFromGame(gx, gy, ref, zoom, 256)

			if math.Abs(float64(back.Lat)-float64(c.Lat)) > 1e-5 {
				t.Errorf("z%d lat round trip %v -> %v", zoom, c.Lat, back.Lat)
			}
			if math.Abs(float64(back.Lon)-float64(c.Lon)) > 1e-5 {
				t.Errorf("z%d lon round trip %v -> %v", zoom, c.Lon, back.Lon)
			}
		}
	}
}

func TestGameCoordReferenceOrigin(t *testing.T) {
	ref := NewCoord(48.1, 11.5)
	gx, gy := ref.GameCoord(ref, 12, 256)
	if gx != 0 || gy != 0 {
		t.Errorf("reference must map to the origin, got (%v, %v)", gx, gy)
	}
}
