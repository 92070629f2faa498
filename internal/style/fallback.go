package style

import (
	"image"
)

// Fallback draws a diagonal gradient: red follows x, green follows y and blue
// follows x+y. It is used when composing fails.
func Fallback(size image.Point) *image.NRGBA {
	w, h := max(size.X, 0), max(size.Y, 0)
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			i := x * 4
			row[i] = uint8(255 * x / w)
			row[i+1] = uint8(255 * y / h)
			row[i+2] = uint8(255 * (x + y) / (w + h))
			row[i+3] = 255
		}
	}
	return img
}
