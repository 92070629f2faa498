package style

import (
	"image"
	"math/rand"

	"chat-style-studio/internal/model"
)

type ShapeKind int

const (
	ShapeCircle ShapeKind = iota
	ShapeRect
	ShapeLine
	shapeKinds
)

func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapeRect:
		return "rect"
	default:
		return "line"
	}
}

const (
	minRadius     = 10
	maxRadius     = 100
	minRectSide   = 20
	maxRectSide   = 150
	minFillAlpha  = 50
	maxFillAlpha  = 150
	minLineAlpha  = 100
	maxLineAlpha  = 200
	lineSamples   = 100
	minIterations = 50
	maxIterations = 200
)

// Shape is one primitive placed during a compose run.
type Shape interface {
	Kind() ShapeKind
	Fill() model.RGB
	// rasterize lists the pixels the shape covers inside a w×h canvas, in paint
	// order, each with its own alpha. A pixel may repeat; the last entry wins.
	rasterize(w, h int, rng *rand.Rand) []stroke
}

type stroke struct {
	x, y  int
	alpha uint8
}

type Circle struct {
	Center image.Point
	Radius int
	Color  model.RGB
}

func (c Circle) Kind() ShapeKind  { return ShapeCircle }
func (c Circle) Fill() model.RGB { return c.Color }

func (c Circle) rasterize(w, h int, rng *rand.Rand) []stroke {
	r := c.Radius
	var out []stroke
	for x := max(0, c.Center.X-r); x < min(w, c.Center.X+r); x++ {
		for y := max(0, c.Center.Y-r); y < min(h, c.Center.Y+r); y++ {
			dx, dy := x-c.Center.X, y-c.Center.Y
			if dx*dx+dy*dy <= r*r {
				out = append(out, stroke{x: x, y: y, alpha: uint8(intIn(rng, minFillAlpha, maxFillAlpha))})
			}
		}
	}
	return out
}

type Rect struct {
	Origin image.Point
	Width  int
	Height int
	Color  model.RGB
}

func (r Rect) Kind() ShapeKind  { return ShapeRect }
func (r Rect) Fill() model.RGB { return r.Color }

func (r Rect) rasterize(w, h int, rng *rand.Rand) []stroke {
	var out []stroke
	for x := max(0, r.Origin.X); x < min(w, r.Origin.X+r.Width); x++ {
		for y := max(0, r.Origin.Y); y < min(h, r.Origin.Y+r.Height); y++ {
			out = append(out, stroke{x: x, y: y, alpha: uint8(intIn(rng, minFillAlpha, maxFillAlpha))})
		}
	}
	return out
}

// Line is drawn as a fixed number of interpolated samples, so long lines show
// gaps and short lines repaint the same pixels.
type Line struct {
	P1, P2 image.Point
	Color  model.RGB
}

func (l Line) Kind() ShapeKind  { return ShapeLine }
func (l Line) Fill() model.RGB { return l.Color }

func (l Line) rasterize(w, h int, rng *rand.Rand) []stroke {
	out := make([]stroke, 0, lineSamples)
	for i := 0; i < lineSamples; i++ {
		t := float64(i) / lineSamples
		x := int(float64(l.P1.X) + t*float64(l.P2.X-l.P1.X))
		y := int(float64(l.P1.Y) + t*float64(l.P2.Y-l.P1.Y))
		if x >= 0 && x < w && y >= 0 && y < h {
			out = append(out, stroke{x: x, y: y, alpha: uint8(intIn(rng, minLineAlpha, maxLineAlpha))})
		}
	}
	return out
}

// randomShape draws the parameters of one layering iteration.
func randomShape(style model.StyleDescriptor, w, h int, rng *rand.Rand) Shape {
	x1 := intIn(rng, 0, w)
	y1 := intIn(rng, 0, h)
	x2 := intIn(rng, 0, w)
	y2 := intIn(rng, 0, h)

	var c model.RGB
	if n := len(style.DominantColors); n > 0 {
		c = style.DominantColors[rng.Intn(n)]
	} else {
		c = randomRGB(rng)
	}

	switch ShapeKind(rng.Intn(int(shapeKinds))) {
	case ShapeCircle:
		return Circle{Center: image.Pt(x1, y1), Radius: intIn(rng, minRadius, maxRadius), Color: c}
	case ShapeRect:
		rw := intIn(rng, minRectSide, maxRectSide)
		rh := intIn(rng, minRectSide, maxRectSide)
		return Rect{Origin: image.Pt(x1, y1), Width: rw, Height: rh, Color: c}
	default:
		return Line{P1: image.Pt(x1, y1), P2: image.Pt(x2, y2), Color: c}
	}
}
