// Package style derives colour/stylistic descriptors from images, pools them,
// and synthesizes abstract artwork driven by a pooled descriptor.
//
// Nothing in this package keeps state between calls. Every random draw goes
// through the *rand.Rand passed in by the caller, so a fixed seed reproduces
// a run exactly.
package style

import (
	"math/rand"
	"time"

	"chat-style-studio/internal/model"
)

const (
	MinBrightness = 0.8
	MaxBrightness = 1.2
	MinSharpness  = 0.8
	MaxSharpness  = 1.5

	// Canvas size every descriptor is normalised to.
	TargetSize = 512

	DefaultAnalysisSize = 100
	DefaultMaxColors    = 10000
	PaletteSize         = 3
)

// Colour caps applied when pooling descriptors, per call site.
const (
	ColorCapSample = 3
	ColorCapChat   = 5
	ColorCapMix    = 8
)

// NewRand returns a source seeded with seed, or with the clock when seed is 0.
func NewRand(seed int64) *rand.Rand {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed))
}

// intIn returns a uniform integer in the closed range [lo, hi].
func intIn(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo+1)
}

func floatIn(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func randomRGB(rng *rand.Rand) model.RGB {
	return model.RGB{
		R: uint8(intIn(rng, 0, 255)),
		G: uint8(intIn(rng, 0, 255)),
		B: uint8(intIn(rng, 0, 255)),
	}
}

func randomPalette(rng *rand.Rand, n int) []model.RGB {
	out := make([]model.RGB, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, randomRGB(rng))
	}
	return out
}
