package style

import (
	"bytes"
	"fmt"
	"image"
	"math/rand"

	"chat-style-studio/internal/model"
	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
)

type Extractor struct {
	AnalysisSize int
	MaxColors    int
	Method       PaletteMethod
	Logger       zerolog.Logger
}

func NewExtractor(analysisSize, maxColors int, method PaletteMethod, logger zerolog.Logger) *Extractor {
	if analysisSize <= 0 {
		analysisSize = DefaultAnalysisSize
	}
	if maxColors <= 0 {
		maxColors = DefaultMaxColors
	}
	return &Extractor{AnalysisSize: analysisSize, MaxColors: maxColors, Method: method, Logger: logger}
}

// ExtractBytes decodes data and extracts its style. Undecodable input yields
// the randomised fallback descriptor.
func (e *Extractor) ExtractBytes(data []byte, rng *rand.Rand) model.StyleDescriptor {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		e.Logger.Warn().Err(err).Msg("style: decode failed, using random palette")
		return fallbackDescriptor(rng)
	}
	return e.Extract(img, rng)
}

// Extract never fails: any problem with img produces the fallback descriptor.
// Brightness and sharpness are drawn at random on every call and say nothing
// about the image itself.
func (e *Extractor) Extract(img image.Image, rng *rand.Rand) (desc model.StyleDescriptor) {
	defer func() {
		if r := recover(); r != nil {
			e.Logger.Warn().Str("panic", fmt.Sprint(r)).Msg("style: extraction panicked, using random palette")
			desc = fallbackDescriptor(rng)
		}
	}()

	if img == nil || img.Bounds().Empty() {
		return fallbackDescriptor(rng)
	}
	colors, ok := e.palette(img)
	if !ok || len(colors) == 0 {
		e.Logger.Debug().Str("method", e.Method.String()).Msg("style: palette unavailable, using random palette")
		return fallbackDescriptor(rng)
	}

	b := img.Bounds()
	return model.StyleDescriptor{
		DominantColors: colors,
		Brightness:     floatIn(rng, MinBrightness, MaxBrightness),
		Sharpness:      floatIn(rng, MinSharpness, MaxSharpness),
		Width:          b.Dx(),
		Height:         b.Dy(),
	}
}

// analysisFilter is bicubic (Catmull-Rom). Lanczos rings more at hard edges
// and the extra colours can displace real ones from the top of the histogram.
var analysisFilter = imaging.CatmullRom

func (e *Extractor) palette(img image.Image) ([]model.RGB, bool) {
	small := imaging.Resize(img, e.AnalysisSize, e.AnalysisSize, analysisFilter)
	switch e.Method {
	case PaletteDominant:
		return dominantPalette(small, PaletteSize)
	case PaletteKMeans:
		return kmeansPalette(small, PaletteSize)
	default:
		return histogramPalette(small, PaletteSize, e.MaxColors)
	}
}

func fallbackDescriptor(rng *rand.Rand) model.StyleDescriptor {
	colors := randomPalette(rng, PaletteSize)
	return model.StyleDescriptor{
		DominantColors: colors,
		Brightness:     floatIn(rng, MinBrightness, MaxBrightness),
		Sharpness:      floatIn(rng, MinSharpness, MaxSharpness),
		Width:          TargetSize,
		Height:         TargetSize,
	}
}
