package testutil

import (
	"image/color"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateTextImage(t *testing.T) {
	img := GenerateTextImage(DefaultTestImageConfig())
	assert.Equal(t, SmallSize.Width, img.Bounds().Dx())
	assert.Equal(t, SmallSize.Height, img.Bounds().Dy())
	assert.True(t, hasInk(img.Bounds().Dx(), img.Bounds().Dy(), img.RGBAAt))
}

func TestGenerateTextImage_Vertical(t *testing.T) {
	cfg := DefaultTestImageConfig()
	cfg.Text = "ABCDE"
	cfg.Size = ImageSize{Width: 60, Height: 200}
	cfg.Vertical = true
	img := GenerateTextImage(cfg)
	assert.True(t, hasInk(60, 200, img.RGBAAt))
}

func TestGenerateTextImage_Rotated(t *testing.T) {
	cfg := DefaultTestImageConfig()
	cfg.Rotation = 90
	img := GenerateTextImage(cfg)
	assert.Equal(t, SmallSize.Height, img.Bounds().Dx())
	assert.Equal(t, SmallSize.Width, img.Bounds().Dy())
}

func TestSaveAndLoadImage(t *testing.T) {
	src := CreateTestImage(12, 7, color.RGBA{R: 200, A: 255})
	path := filepath.Join(t.TempDir(), "nested", "img.png")
	SaveImage(t, src, path)

	got := LoadImage(t, path)
	assert.Equal(t, src.Bounds(), got.Bounds())
	r, _, _, _ := got.At(3, 3).RGBA()
	assert.Equal(t, uint32(200)<<8|200, r)
}

func TestCreateTestImageWithText(t *testing.T) {
	img := CreateTestImageWithText("hi", 100, 40)
	assert.Equal(t, 100, img.Bounds().Dx())
	assert.NotEmpty(t, EncodePNG(t, img))
}

func hasInk(w, h int, at func(x, y int) color.RGBA) bool {
	for y := range h {
		for x := range w {
			if at(x, y).R < 128 {
				return true
			}
		}
	}
	return false
}
