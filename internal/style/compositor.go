package style

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math/rand"

	"chat-style-studio/internal/model"
	"github.com/disintegration/imaging"
)

var ErrInvalidCanvas = errors.New("style: canvas size must be positive")

// Compose paints randomly placed shapes over a white canvas of the given size.
// Each shape is rasterised onto its own transparent layer and composited with
// the "over" operator, so pixels outside the shape are left untouched.
func Compose(style model.StyleDescriptor, size image.Point, rng *rand.Rand) (canvas *image.NRGBA, err error) {
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidCanvas, size.X, size.Y)
	}
	defer func() {
		if r := recover(); r != nil {
			canvas, err = nil, fmt.Errorf("style: compose: %v", r)
		}
	}()

	canvas = imaging.New(size.X, size.Y, color.NRGBA{R: 255, G: 255, B: 255, A: 255})
	iterations := intIn(rng, minIterations, maxIterations)
	for i := 0; i < iterations; i++ {
		shape := randomShape(style, size.X, size.Y, rng)
		compositeShape(canvas, shape, rng)
	}
	return canvas, nil
}

func compositeShape(canvas *image.NRGBA, shape Shape, rng *rand.Rand) {
	b := canvas.Bounds()
	strokes := shape.rasterize(b.Dx(), b.Dy(), rng)
	if len(strokes) == 0 {
		return
	}

	area := image.Rect(strokes[0].x, strokes[0].y, strokes[0].x+1, strokes[0].y+1)
	for _, s := range strokes[1:] {
		area = area.Union(image.Rect(s.x, s.y, s.x+1, s.y+1))
	}

	fill := shape.Fill()
	layer := image.NewNRGBA(area)
	for _, s := range strokes {
		layer.SetNRGBA(s.x, s.y, color.NRGBA{R: fill.R, G: fill.G, B: fill.B, A: s.alpha})
	}
	draw.Draw(canvas, area, layer, area.Min, draw.Over)
}
