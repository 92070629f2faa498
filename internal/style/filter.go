package style

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand"

	"chat-style-studio/internal/model"
	"github.com/disintegration/imaging"
)

var ErrStyleOutOfRange = errors.New("style: descriptor scalar out of range")

const (
	tintRatio        = 0.1
	blurSigma        = 0.5
	contrastBoost    = 1.1
	saturationBoost  = 1.2
	maxEffectsPerRun = 2
)

var (
	smoothKernel      = [9]float64{1, 1, 1, 1, 5, 1, 1, 1, 1}
	edgeEnhanceKernel = [9]float64{-1, -1, -1, -1, 10, -1, -1, -1, -1}
)

// Effect is one optional post-processing step.
type Effect struct {
	Name  string
	Apply func(img *image.NRGBA) *image.NRGBA
}

// Effects lists the optional post effects in catalogue order. Filter picks one
// or two of them per run.
var Effects = []Effect{
	{Name: "gaussian-blur", Apply: func(img *image.NRGBA) *image.NRGBA { return imaging.Blur(img, blurSigma) }},
	{Name: "smooth", Apply: smooth},
	{Name: "edge-enhance", Apply: func(img *image.NRGBA) *image.NRGBA {
		return imaging.Convolve3x3(img, edgeEnhanceKernel, &imaging.ConvolveOptions{Normalize: true})
	}},
	{Name: "contrast", Apply: func(img *image.NRGBA) *image.NRGBA { return enhanceContrast(img, contrastBoost) }},
	{Name: "saturation", Apply: func(img *image.NRGBA) *image.NRGBA { return enhanceColor(img, saturationBoost) }},
}

// Filter applies brightness, sharpness, a tint toward the first dominant colour
// and a random pick of Effects. It returns the names of the effects applied.
func Filter(canvas *image.NRGBA, style model.StyleDescriptor, rng *rand.Rand) (out *image.NRGBA, applied []string, err error) {
	if canvas == nil || canvas.Bounds().Empty() {
		return nil, nil, errors.New("style: filter: empty canvas")
	}
	if !inRange(style.Brightness, MinBrightness, MaxBrightness) {
		return nil, nil, fmt.Errorf("%w: brightness %v", ErrStyleOutOfRange, style.Brightness)
	}
	if !inRange(style.Sharpness, MinSharpness, MaxSharpness) {
		return nil, nil, fmt.Errorf("%w: sharpness %v", ErrStyleOutOfRange, style.Sharpness)
	}
	defer func() {
		if r := recover(); r != nil {
			out, applied, err = nil, nil, fmt.Errorf("style: filter: %v", r)
		}
	}()

	out = enhanceBrightness(canvas, style.Brightness)
	out = enhanceSharpness(out, style.Sharpness)
	if len(style.DominantColors) > 0 {
		out = tint(out, style.DominantColors[0], tintRatio)
	}

	n := intIn(rng, 1, maxEffectsPerRun)
	for _, idx := range rng.Perm(len(Effects))[:n] {
		out = Effects[idx].Apply(out)
		applied = append(applied, Effects[idx].Name)
	}
	return out, applied, nil
}

func inRange(v, lo, hi float64) bool {
	return v >= lo && v <= hi
}

// enhanceBrightness scales every channel by factor, i.e. blends with black.
func enhanceBrightness(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampUint8(float64(c.R) * factor),
			G: clampUint8(float64(c.G) * factor),
			B: clampUint8(float64(c.B) * factor),
			A: c.A,
		}
	})
}

// enhanceSharpness interpolates between a smoothed copy (factor 0) and the
// original (factor 1); factors above 1 sharpen.
func enhanceSharpness(img *image.NRGBA, factor float64) *image.NRGBA {
	return blend(smooth(img), img, factor)
}

func enhanceContrast(img *image.NRGBA, factor float64) *image.NRGBA {
	var sum float64
	b := img.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			sum += luma(row[x], row[x+1], row[x+2])
		}
	}
	mean := math.Floor(sum/float64(b.Dx()*b.Dy()) + 0.5)
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		return color.NRGBA{
			R: clampUint8(mean + (float64(c.R)-mean)*factor),
			G: clampUint8(mean + (float64(c.G)-mean)*factor),
			B: clampUint8(mean + (float64(c.B)-mean)*factor),
			A: c.A,
		}
	})
}

// enhanceColor pushes each pixel away from its own grey level.
func enhanceColor(img *image.NRGBA, factor float64) *image.NRGBA {
	return imaging.AdjustFunc(img, func(c color.NRGBA) color.NRGBA {
		l := math.Floor(luma(c.R, c.G, c.B))
		return color.NRGBA{
			R: clampUint8(l + (float64(c.R)-l)*factor),
			G: clampUint8(l + (float64(c.G)-l)*factor),
			B: clampUint8(l + (float64(c.B)-l)*factor),
			A: c.A,
		}
	})
}

func smooth(img *image.NRGBA) *image.NRGBA {
	return imaging.Convolve3x3(img, smoothKernel, &imaging.ConvolveOptions{Normalize: true})
}

func tint(img *image.NRGBA, c model.RGB, ratio float64) *image.NRGBA {
	b := img.Bounds()
	layer := imaging.New(b.Dx(), b.Dy(), color.NRGBA{R: c.R, G: c.G, B: c.B, A: 255})
	return imaging.Overlay(img, layer, image.Pt(0, 0), ratio)
}

// blend returns a*(1-alpha) + b*alpha per channel. a and b share bounds.
func blend(a, b *image.NRGBA, alpha float64) *image.NRGBA {
	bounds := b.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	for y := 0; y < bounds.Dy(); y++ {
		ra := a.Pix[y*a.Stride : y*a.Stride+bounds.Dx()*4]
		rb := b.Pix[y*b.Stride : y*b.Stride+bounds.Dx()*4]
		ro := out.Pix[y*out.Stride : y*out.Stride+bounds.Dx()*4]
		for i := 0; i < len(ro); i += 4 {
			ro[i] = clampUint8(float64(ra[i])*(1-alpha) + float64(rb[i])*alpha)
			ro[i+1] = clampUint8(float64(ra[i+1])*(1-alpha) + float64(rb[i+1])*alpha)
			ro[i+2] = clampUint8(float64(ra[i+2])*(1-alpha) + float64(rb[i+2])*alpha)
			ro[i+3] = rb[i+3]
		}
	}
	return out
}

func luma(r, g, b uint8) float64 {
	return (299*float64(r) + 587*float64(g) + 114*float64(b)) / 1000
}

func clampUint8(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v + 0.5)
}
