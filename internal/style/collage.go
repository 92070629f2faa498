package style

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

const (
	CollageTile    = 200
	CollageSide    = 2 * CollageTile
	CollageMaxTile = 4
	CollageMin     = 2
)

var ErrCollageTooFew = errors.New("style: collage needs at least 2 images")

// CollageError reports an input that could not be used in a collage.
type CollageError struct {
	Index int
	Err   error
}

func (e *CollageError) Error() string {
	return fmt.Sprintf("style: cannot build collage: image %d: %v", e.Index, e.Err)
}

func (e *CollageError) Unwrap() error { return e.Err }

var collageBackground = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// Collage tiles the last four images into a 2x2 grid, filling left to right
// and top to bottom. Cells without an image keep the background colour.
func Collage(images []image.Image) (*image.NRGBA, error) {
	if len(images) < CollageMin {
		return nil, ErrCollageTooFew
	}
	if len(images) > CollageMaxTile {
		images = images[len(images)-CollageMaxTile:]
	}

	canvas := imaging.New(CollageSide, CollageSide, collageBackground)
	for i, img := range images {
		if img == nil || img.Bounds().Empty() {
			return nil, &CollageError{Index: i, Err: errors.New("empty image")}
		}
		tile := imaging.Resize(img, CollageTile, CollageTile, imaging.Lanczos)
		pos := image.Pt((i%2)*CollageTile, (i/2)*CollageTile)
		canvas = imaging.Paste(canvas, tile, pos)
	}
	return canvas, nil
}

// CollageBytes decodes the last four encoded images and tiles them.
func CollageBytes(data [][]byte) (*image.NRGBA, error) {
	if len(data) < CollageMin {
		return nil, ErrCollageTooFew
	}
	if len(data) > CollageMaxTile {
		data = data[len(data)-CollageMaxTile:]
	}
	images := make([]image.Image, 0, len(data))
	for i, b := range data {
		img, err := imaging.Decode(bytes.NewReader(b), imaging.AutoOrientation(true))
		if err != nil {
			return nil, &CollageError{Index: i, Err: err}
		}
		images = append(images, img)
	}
	return Collage(images)
}
