package tilecache

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encodePNG(t *testing.T, edge int, c color.NRGBA) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, edge, edge))
	for y := 0; y < edge; y++ {
		for x := 0; x < edge; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDecodeRasterKeepsNativeSize(t *testing.T) {
	data := encodePNG(t, 256, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	img, err := DecodeRaster(data, 256)
	require.NoError(t, err)
	assert.Equal(t, 256, img.Bounds().Dx())
	assert.Equal(t, 256, img.Bounds().Dy())
	assert.Equal(t, color.NRGBA{R: 10, G: 20, B: 30, A: 255}, img.NRGBAAt(100, 100))
}

func TestDecodeRasterResizes(t *testing.T) {
	data := encodePNG(t, 256, color.NRGBA{R: 200, G: 0, B: 0, A: 255})

	img, err := DecodeRaster(data, 128)
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 128, img.Bounds().Dy())
	assert.Equal(t, color.NRGBA{R: 200, G: 0, B: 0, A: 255}, img.NRGBAAt(64, 64))
}

func TestDecodeRasterErrors(t *testing.T) {
	_, err := DecodeRaster([]byte("not a png"), 256)
	assert.Error(t, err)

	_, err = DecodeRaster(encodePNG(t, 8, color.NRGBA{}), 0)
	assert.Error(t, err)
}
