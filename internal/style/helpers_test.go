package style

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func solidImage(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

// bandedImage stacks horizontal bands of the given heights and colours.
func bandedImage(w int, heights []int, colors []color.NRGBA) *image.NRGBA {
	total := 0
	for _, h := range heights {
		total += h
	}
	img := image.NewNRGBA(image.Rect(0, 0, w, total))
	y := 0
	for i, h := range heights {
		for ; h > 0; h-- {
			for x := 0; x < w; x++ {
				img.SetNRGBA(x, y, colors[i])
			}
			y++
		}
	}
	return img
}

func pngBytes(t *testing.T, img image.Image) []byte {
	t.Helper()
	buf := new(bytes.Buffer)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func testExtractor() *Extractor {
	return NewExtractor(DefaultAnalysisSize, DefaultMaxColors, PaletteHistogram, zerolog.Nop())
}

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
	white = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)
