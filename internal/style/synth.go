package style

import (
	"image"
	"math/rand"

	"chat-style-studio/internal/model"
	"github.com/rs/zerolog"
)

// Outcome tells which path produced a synthesized image.
type Outcome string

const (
	OutcomeFiltered   Outcome = "filtered"
	OutcomeUnfiltered Outcome = "unfiltered"
	OutcomeFallback   Outcome = "fallback"
)

type Synthesizer struct {
	Logger zerolog.Logger
}

func NewSynthesizer(logger zerolog.Logger) *Synthesizer {
	return &Synthesizer{Logger: logger}
}

type Result struct {
	Image   *image.NRGBA
	Outcome Outcome
	Effects []string
}

// Synthesize composes and filters an image for style. It does not fail: a
// compose error yields the gradient fallback, and a filter error yields the
// composed canvas without filtering.
func (s *Synthesizer) Synthesize(style model.StyleDescriptor, size image.Point, rng *rand.Rand) Result {
	return s.run(style, size, rng, Compose, Filter)
}

type composeFunc func(model.StyleDescriptor, image.Point, *rand.Rand) (*image.NRGBA, error)

type filterFunc func(*image.NRGBA, model.StyleDescriptor, *rand.Rand) (*image.NRGBA, []string, error)

func (s *Synthesizer) run(style model.StyleDescriptor, size image.Point, rng *rand.Rand, compose composeFunc, filter filterFunc) Result {
	canvas, err := compose(style, size, rng)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("style: compose failed, using gradient fallback")
		return Result{Image: Fallback(size), Outcome: OutcomeFallback}
	}

	filtered, effects, err := filter(canvas, style, rng)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("style: filter failed, returning unfiltered canvas")
		return Result{Image: canvas, Outcome: OutcomeUnfiltered}
	}
	s.Logger.Debug().Strs("effects", effects).Int("colors", len(style.DominantColors)).Msg("style: synthesized")
	return Result{Image: filtered, Outcome: OutcomeFiltered, Effects: effects}
}
