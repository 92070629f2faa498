package style

import (
	"image"
	"slices"
	"sort"
	"strings"

	"chat-style-studio/internal/model"
	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

type PaletteMethod int

const (
	// PaletteHistogram counts exact colours and keeps the most frequent ones.
	PaletteHistogram PaletteMethod = iota
	PaletteDominant
	PaletteKMeans
)

func (m PaletteMethod) String() string {
	switch m {
	case PaletteDominant:
		return "dominant"
	case PaletteKMeans:
		return "kmeans"
	default:
		return "histogram"
	}
}

func ParsePaletteMethod(s string) PaletteMethod {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "dominant":
		return PaletteDominant
	case "kmeans":
		return PaletteKMeans
	default:
		return PaletteHistogram
	}
}

type colorCount struct {
	key   uint32
	count int
}

// histogramPalette returns the k most frequent colours of img. It reports
// false when img has no pixels or more than maxColors distinct colours; no
// quantisation is attempted in that case.
func histogramPalette(img *image.NRGBA, k, maxColors int) ([]model.RGB, bool) {
	b := img.Bounds()
	if b.Empty() {
		return nil, false
	}
	counts := make(map[uint32]int)
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			key := uint32(row[x])<<16 | uint32(row[x+1])<<8 | uint32(row[x+2])
			counts[key]++
			if len(counts) > maxColors {
				return nil, false
			}
		}
	}
	if len(counts) == 0 {
		return nil, false
	}

	hist := make([]colorCount, 0, len(counts))
	for key, n := range counts {
		hist = append(hist, colorCount{key: key, count: n})
	}
	// Most frequent first; ties go to the numerically larger colour.
	sort.Slice(hist, func(i, j int) bool {
		if hist[i].count != hist[j].count {
			return hist[i].count > hist[j].count
		}
		return hist[i].key > hist[j].key
	})

	if k > len(hist) {
		k = len(hist)
	}
	out := make([]model.RGB, 0, k)
	for _, h := range hist[:k] {
		out = append(out, model.RGB{R: uint8(h.key >> 16), G: uint8(h.key >> 8), B: uint8(h.key)})
	}
	return out, true
}

func dominantPalette(img image.Image, k int) ([]model.RGB, bool) {
	cands := dominantcolor.FindWeight(img, k)
	if len(cands) == 0 {
		return nil, false
	}
	slices.SortStableFunc(cands, func(a, b dominantcolor.Color) int {
		switch {
		case a.Weight > b.Weight:
			return -1
		case a.Weight < b.Weight:
			return 1
		}
		return 0
	})
	out := make([]model.RGB, 0, k)
	for _, c := range cands {
		if len(out) == k {
			break
		}
		col, _ := colorful.MakeColor(c.RGBA)
		out = append(out, fromColorful(col))
	}
	return out, true
}

// kmeansPalette clusters the pixels in RGB space. The kmeans library seeds its
// initial centres from its own clock-seeded source, so unlike the histogram
// method the result is not fixed by the caller's seed on images with more
// distinct colours than clusters.
func kmeansPalette(img *image.NRGBA, k int) ([]model.RGB, bool) {
	b := img.Bounds()
	dataset := make(clusters.Observations, 0, b.Dx()*b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			if row[x+3] == 0 {
				continue
			}
			dataset = append(dataset, clusters.Coordinates{
				float64(row[x]) / 255.0,
				float64(row[x+1]) / 255.0,
				float64(row[x+2]) / 255.0,
			})
		}
	}
	if len(dataset) == 0 {
		return nil, false
	}

	workK := min(k, len(dataset))
	km := kmeans.New()
	cc, err := km.Partition(dataset, workK)
	if err != nil || len(cc) == 0 {
		return nil, false
	}
	// Largest clusters first so the order matches "most prevalent".
	slices.SortStableFunc(cc, func(a, b clusters.Cluster) int {
		return len(b.Observations) - len(a.Observations)
	})

	out := make([]model.RGB, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		out = append(out, fromColorful(colorful.Color{R: c.Center[0], G: c.Center[1], B: c.Center[2]}))
	}
	return out, len(out) > 0
}

func fromColorful(c colorful.Color) model.RGB {
	r, g, b := c.Clamped().RGB255()
	return model.RGB{R: r, G: g, B: b}
}

// PaletteHex renders colours as hex strings via go-colorful.
func PaletteHex(colors []model.RGB) []string {
	out := make([]string, 0, len(colors))
	for _, c := range colors {
		col := colorful.Color{R: float64(c.R) / 255.0, G: float64(c.G) / 255.0, B: float64(c.B) / 255.0}
		out = append(out, col.Hex())
	}
	return out
}
