package style

import (
	"chat-style-studio/internal/model"
	"gonum.org/v1/gonum/stat"
)

// Aggregate pools descriptors into one. Scalars are averaged; colours are
// concatenated in input order and cut at colorCap, without sorting or
// de-duplication. descs must not be empty.
func Aggregate(descs []model.StyleDescriptor, colorCap int) model.StyleDescriptor {
	if len(descs) == 0 {
		panic("style: aggregate of zero descriptors")
	}
	if colorCap < 0 {
		colorCap = 0
	}

	brightness := make([]float64, len(descs))
	sharpness := make([]float64, len(descs))
	colors := make([]model.RGB, 0, colorCap)
	for i, d := range descs {
		brightness[i] = d.Brightness
		sharpness[i] = d.Sharpness
		for _, c := range d.DominantColors {
			if len(colors) == colorCap {
				break
			}
			colors = append(colors, c)
		}
	}

	return model.StyleDescriptor{
		DominantColors: colors,
		Brightness:     stat.Mean(brightness, nil),
		Sharpness:      stat.Mean(sharpness, nil),
		Width:          TargetSize,
		Height:         TargetSize,
	}
}
