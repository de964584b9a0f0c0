package tilecache

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/maptile"
	"golang.org/x/image/vector"
)

// Tile layer palette. Roads are stroked, the rest are filled.
var (
	colorBackground = color.NRGBA{R: 248, G: 246, B: 240, A: 255}
	colorWater      = color.NRGBA{R: 170, G: 211, B: 223, A: 255}
	colorPark       = color.NRGBA{R: 200, G: 224, B: 196, A: 255}
	colorBuilding   = color.NRGBA{R: 211, G: 211, B: 211, A: 255}
	colorRoad       = color.NRGBA{R: 140, G: 140, B: 140, A: 255}
)

var gzipMagic = []byte{0x1f, 0x8b}

// RenderVector rasterizes an MVT vector tile into a styled RGBA8 image of
// the given edge length. Recognized layers are painted back to front: water,
// parks, buildings, then roads; unknown layers are skipped.
func RenderVector(data []byte, z, x, y, edge int) (*image.NRGBA, error) {
	if edge <= 0 {
		return nil, fmt.Errorf("invalid tile edge %d", edge)
	}

	var (
		layers mvt.Layers
		err    error
	)
	if bytes.HasPrefix(data, gzipMagic) {
		layers, err = mvt.UnmarshalGzipped(data)
	} else {
		layers, err = mvt.Unmarshal(data)
	}
	if err != nil {
		return nil, fmt.Errorf("decode vector tile: %w", err)
	}
	layers.ProjectToWGS84(maptile.New(uint32(x), uint32(y), maptile.Zoom(z)))

	p := &painter{
		zoom: z,
		edge: edge,
		offX: float64(x) * float64(edge),
		offY: float64(y) * float64(edge),
		dst:  image.NewNRGBA(image.Rect(0, 0, edge, edge)),
	}
	draw.Draw(p.dst, p.dst.Bounds(), image.NewUniform(colorBackground), image.Point{}, draw.Src)

	// Paint fills before strokes so roads stay visible over area features.
	for _, pass := range []struct {
		fill  color.NRGBA
		names map[string]bool
	}{
		{colorWater, map[string]bool{"water": true, "waterway": true, "ocean": true}},
		{colorPark, map[string]bool{"park": true, "parks": true, "landuse": true, "leisure": true}},
		{colorBuilding, map[string]bool{"building": true, "buildings": true}},
	} {
		for _, layer := range layers {
			if pass.names[layer.Name] {
				p.paintAreas(layer, pass.fill)
			}
		}
	}
	for _, layer := range layers {
		switch layer.Name {
		case "road", "roads", "highway", "transportation":
			p.paintLines(layer, colorRoad)
		}
	}

	return p.dst, nil
}

// painter draws projected WGS84 geometry onto a single tile canvas using
// global pixel space at the tile's zoom.
type painter struct {
	zoom int
	edge int
	offX float64
	offY float64
	dst  *image.NRGBA
}

func (p *painter) paintAreas(layer *mvt.Layer, fill color.NRGBA) {
	for _, f := range layer.Features {
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			p.fillPolygon(g, fill)
		case orb.MultiPolygon:
			for _, poly := range g {
				p.fillPolygon(poly, fill)
			}
		case orb.Ring:
			p.fillPolygon(orb.Polygon{g}, fill)
		}
	}
}

func (p *painter) paintLines(layer *mvt.Layer, stroke color.NRGBA) {
	width := roadStrokeWidth(p.zoom)
	for _, f := range layer.Features {
		switch g := f.Geometry.(type) {
		case orb.LineString:
			p.strokeLine(g, width, stroke)
		case orb.MultiLineString:
			for _, ls := range g {
				p.strokeLine(ls, width, stroke)
			}
		case orb.Polygon:
			for _, ring := range g {
				p.strokeLine(orb.LineString(ring), width, stroke)
			}
		}
	}
}

// roadStrokeWidth thins roads out at low zoom.
func roadStrokeWidth(zoom int) float64 {
	switch {
	case zoom <= 11:
		return 1
	case zoom <= 14:
		return 2
	default:
		return 3
	}
}

func (p *painter) fillPolygon(poly orb.Polygon, fill color.NRGBA) {
	if len(poly) == 0 {
		return
	}

	ras := vector.NewRasterizer(p.edge, p.edge)
	for _, ring := range poly {
		if len(ring) < 3 {
			continue
		}
		for i, pt := range ring {
			px, py := p.toLocalPx(pt)
			if i == 0 {
				ras.MoveTo(float32(px), float32(py))
			} else {
				ras.LineTo(float32(px), float32(py))
			}
		}
		ras.ClosePath()
	}
	ras.Draw(p.dst, p.dst.Bounds(), image.NewUniform(fill), image.Point{})
}

// strokeLine stamps discs along each segment, which avoids the joint
// artifacts of naive thick-line drawing.
func (p *painter) strokeLine(ls orb.LineString, width float64, stroke color.NRGBA) {
	if len(ls) < 2 {
		return
	}
	radius := width / 2

	for i := 0; i < len(ls)-1; i++ {
		x0, y0 := p.toLocalPx(ls[i])
		x1, y1 := p.toLocalPx(ls[i+1])

		segLen := math.Hypot(x1-x0, y1-y0)
		if segLen == 0 {
			p.stampDisc(x0, y0, radius, stroke)
			continue
		}
		steps := int(math.Ceil(segLen / 0.75))
		for s := 0; s <= steps; s++ {
			t := float64(s) / float64(steps)
			p.stampDisc(x0+(x1-x0)*t, y0+(y1-y0)*t, radius, stroke)
		}
	}
}

func (p *painter) stampDisc(cx, cy, radius float64, c color.NRGBA) {
	minX := max(int(math.Floor(cx-radius)), 0)
	minY := max(int(math.Floor(cy-radius)), 0)
	maxX := min(int(math.Ceil(cx+radius)), p.edge-1)
	maxY := min(int(math.Ceil(cy+radius)), p.edge-1)

	r2 := radius * radius
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			dx := float64(x) + 0.5 - cx
			dy := float64(y) + 0.5 - cy
			if dx*dx+dy*dy <= r2 {
				p.dst.SetNRGBA(x, y, c)
			}
		}
	}
}

// toLocalPx maps a WGS84 point into canvas pixels: Web Mercator global pixel
// space at the painter's zoom, minus the tile's pixel offset.
func (p *painter) toLocalPx(pt orb.Point) (float64, float64) {
	n := math.Exp2(float64(p.zoom)) * float64(p.edge)

	gx := (pt[0] + 180) / 360 * n

	latRad := pt[1] * math.Pi / 180
	mercY := math.Log(math.Tan(math.Pi/4 + latRad/2))
	gy := (1 - mercY/math.Pi) / 2 * n

	return gx - p.offX, gy - p.offY
}
