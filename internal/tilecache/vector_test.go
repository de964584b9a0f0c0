package tilecache

import (
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/mvt"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/maptile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// encodeTile builds an MVT tile for z0/x0/y0 with a large water polygon and
// one road crossing it.
func encodeTile(t *testing.T) []byte {
	t.Helper()

	water := geojson.NewFeatureCollection()
	water.Append(geojson.NewFeature(orb.Polygon{{
		{-120, -60}, {120, -60}, {120, 60}, {-120, 60}, {-120, -60},
	}}))

	roads := geojson.NewFeatureCollection()
	roads.Append(geojson.NewFeature(orb.LineString{{-120, 0}, {120, 0}}))

	layers := mvt.NewLayers(map[string]*geojson.FeatureCollection{
		"water": water,
		"road":  roads,
	})
	layers.ProjectToTile(maptile.New(0, 0, 0))

	data, err := mvt.Marshal(layers)
	require.NoError(t, err)
	return data
}

func TestRenderVector(t *testing.T) {
	img, err := RenderVector(encodeTile(t), 0, 0, 0, 64)
	require.NoError(t, err)
	require.Equal(t, 64, img.Bounds().Dx())

	// The road runs through the tile center, painted over the water fill.
	center := img.NRGBAAt(32, 32)
	assert.Equal(t, colorRoad, center)

	// Off the road but inside the polygon: water.
	assert.Equal(t, colorWater, img.NRGBAAt(32, 40))

	// The far corner (high latitude, lon -180) is outside the polygon.
	assert.Equal(t, colorBackground, img.NRGBAAt(1, 1))
}

func TestRenderVectorUnknownLayersSkipped(t *testing.T) {
	fc := geojson.NewFeatureCollection()
	fc.Append(geojson.NewFeature(orb.Polygon{{
		{-120, -60}, {120, -60}, {120, 60}, {-120, 60}, {-120, -60},
	}}))
	layers := mvt.NewLayers(map[string]*geojson.FeatureCollection{"poi": fc})
	layers.ProjectToTile(maptile.New(0, 0, 0))
	data, err := mvt.Marshal(layers)
	require.NoError(t, err)

	img, err := RenderVector(data, 0, 0, 0, 32)
	require.NoError(t, err)
	assert.Equal(t, colorBackground, img.NRGBAAt(16, 16))
}

func TestRenderVectorErrors(t *testing.T) {
	_, err := RenderVector([]byte("garbage"), 0, 0, 0, 64)
	assert.Error(t, err)

	_, err = RenderVector(encodeTile(t), 0, 0, 0, 0)
	assert.Error(t, err)
}
