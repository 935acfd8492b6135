package recognizer

import (
	"image"
	"image/color"
	"testing"

	"github.com/MeKo-Tech/bubbleocr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrientCrop(t *testing.T) {
	tall := image.NewRGBA(image.Rect(0, 0, 20, 100))
	out, rotated := OrientCrop(tall)
	assert.True(t, rotated)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 20, out.Bounds().Dy())

	// Exactly at the 1.2 ratio stays upright.
	edge := image.NewRGBA(image.Rect(0, 0, 50, 60))
	out, rotated = OrientCrop(edge)
	assert.False(t, rotated)
	assert.Equal(t, edge.Bounds(), out.Bounds())
}

func TestResizeForRecognition(t *testing.T) {
	img := testutil.CreateTestImage(100, 20, color.White)

	out, w, h, err := ResizeForRecognition(img, 48, 0, 8)
	require.NoError(t, err)
	assert.Equal(t, 48, h)
	assert.Equal(t, 240, w)
	assert.Equal(t, 240, out.Bounds().Dx())

	_, w, _, err = ResizeForRecognition(img, 48, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, w)

	// 30x20 -> 72 wide, padded to 80.
	_, w, _, err = ResizeForRecognition(testutil.CreateTestImage(30, 20, color.White), 48, 0, 16)
	require.NoError(t, err)
	assert.Equal(t, 80, w)
}

func TestResizeForRecognition_Errors(t *testing.T) {
	_, _, _, err := ResizeForRecognition(nil, 48, 0, 0)
	require.Error(t, err)
	_, _, _, err = ResizeForRecognition(image.NewRGBA(image.Rect(0, 0, 10, 10)), 0, 0, 0)
	require.Error(t, err)
	_, _, _, err = ResizeForRecognition(image.NewRGBA(image.Rect(0, 0, 0, 10)), 48, 0, 0)
	require.Error(t, err)
}

func TestNormalizeForRecognition(t *testing.T) {
	ten, err := NormalizeForRecognition(testutil.CreateTestImage(16, 8, color.White))
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 8, 16}, ten.Shape)
	assert.InDelta(t, 1.0, ten.Data[0], 1e-6)
}
