package tilecache

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/disintegration/gift"
)

// DecodeRaster decodes PNG tile bytes into an RGBA8 image with the requested
// edge length, resampling when the source tile is a different size.
func DecodeRaster(data []byte, edge int) (*image.NRGBA, error) {
	if edge <= 0 {
		return nil, fmt.Errorf("invalid tile edge %d", edge)
	}

	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode tile png: %w", err)
	}

	g := gift.New()
	b := src.Bounds()
	if b.Dx() != edge || b.Dy() != edge {
		g.Add(gift.Resize(edge, edge, gift.LanczosResampling))
	}

	dst := image.NewNRGBA(g.Bounds(src.Bounds()))
	g.Draw(dst, src)
	return dst, nil
}
