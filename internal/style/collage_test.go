package style

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollageTwoImages(t *testing.T) {
	canvas, err := Collage([]image.Image{solidImage(50, 80, red), solidImage(300, 120, green)})
	require.NoError(t, err)

	assert.Equal(t, image.Rect(0, 0, CollageSide, CollageSide), canvas.Bounds())
	assert.Equal(t, red, canvas.NRGBAAt(0, 0))
	assert.Equal(t, green, canvas.NRGBAAt(200, 0))
	assert.Equal(t, collageBackground, canvas.NRGBAAt(0, 200))
	assert.Equal(t, collageBackground, canvas.NRGBAAt(200, 200))
}

func TestCollageUsesLastFourInOrder(t *testing.T) {
	colors := []color.NRGBA{
		{R: 10, A: 255},
		{R: 20, A: 255},
		{R: 30, A: 255},
		{R: 40, A: 255},
		{R: 50, A: 255},
	}
	images := make([]image.Image, 0, len(colors))
	for _, c := range colors {
		images = append(images, solidImage(20, 20, c))
	}

	canvas, err := Collage(images)
	require.NoError(t, err)

	assert.Equal(t, colors[1], canvas.NRGBAAt(10, 10))
	assert.Equal(t, colors[2], canvas.NRGBAAt(210, 10))
	assert.Equal(t, colors[3], canvas.NRGBAAt(10, 210))
	assert.Equal(t, colors[4], canvas.NRGBAAt(210, 210))
}

func TestCollageNeedsTwoImages(t *testing.T) {
	_, err := Collage([]image.Image{solidImage(5, 5, red)})
	assert.ErrorIs(t, err, ErrCollageTooFew)

	_, err = CollageBytes(nil)
	assert.ErrorIs(t, err, ErrCollageTooFew)
}

func TestCollageBytesReportsUndecodableInput(t *testing.T) {
	data := [][]byte{pngBytes(t, solidImage(5, 5, red)), []byte("junk")}

	_, err := CollageBytes(data)

	var cerr *CollageError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, 1, cerr.Index)
}

func TestCollageBytesDecodes(t *testing.T) {
	data := [][]byte{pngBytes(t, solidImage(5, 5, red)), pngBytes(t, solidImage(5, 5, blue))}

	canvas, err := CollageBytes(data)
	require.NoError(t, err)

	assert.Equal(t, blue, canvas.NRGBAAt(399, 199))
}
