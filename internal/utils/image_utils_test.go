package utils

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsSupportedImage(t *testing.T) {
	cases := []struct {
		path string
		ok   bool
	}{
		{"a.jpg", true},
		{"b.jpeg", true},
		{"c.png", true},
		{"d.bmp", true},
		{"g.WEBP", true},
		{"e.tiff", false},
		{"f.gif", false},
	}
	for _, c := range cases {
		if IsSupportedImage(c.path) != c.ok {
			t.Fatalf("IsSupportedImage(%s) expected %v", c.path, c.ok)
		}
	}
}

func writeTempPNG(t *testing.T, dir string, w, h int, col color.Color) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.Set(x, y, col)
		}
	}
	path := filepath.Join(dir, "test.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer func() {
		require.NoError(t, f.Close())
	}()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return path
}

func TestLoadImageAndMetadata(t *testing.T) {
	dir := t.TempDir()
	p := writeTempPNG(t, dir, 10, 20, color.RGBA{R: 10, G: 20, B: 30, A: 255})

	img, meta, err := LoadImage(p)
	if err != nil {
		t.Fatalf("LoadImage error: %v", err)
	}
	if img == nil {
		t.Fatalf("nil image")
	}
	if meta.Format != "png" {
		t.Fatalf("expected format png, got %s", meta.Format)
	}
	if meta.Width != 10 || meta.Height != 20 {
		t.Fatalf("unexpected dims: %dx%d", meta.Width, meta.Height)
	}
	if meta.SizeBytes <= 0 {
		t.Fatalf("expected SizeBytes > 0")
	}
}

func TestLoadImage_Errors(t *testing.T) {
	_, _, err := LoadImage("")
	require.Error(t, err)
	_, _, err = LoadImage("scan.tiff")
	require.Error(t, err)
	_, _, err = LoadImage(filepath.Join(t.TempDir(), "missing.png"))
	require.Error(t, err)
}

func TestDecodeEncodeImage(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 6, 3))
	data, err := EncodePNG(src)
	require.NoError(t, err)

	img, format, err := DecodeImage(data)
	require.NoError(t, err)
	assert.Equal(t, "png", format)
	assert.Equal(t, 6, img.Bounds().Dx())
	assert.Equal(t, 3, img.Bounds().Dy())

	_, _, err = DecodeImage(nil)
	require.Error(t, err)
	_, _, err = DecodeImage(bytes.Repeat([]byte{0x42}, 32))
	require.Error(t, err)
	_, err = EncodePNG(nil)
	require.Error(t, err)
}

func TestBoundingBox(t *testing.T) {
	pts := []Point{{0, 0}, {10, 5}, {3, 7}}
	assert.Equal(t, Box{MinX: 0, MinY: 0, MaxX: 10, MaxY: 7}, BoundingBox(pts))
	assert.Equal(t, Box{}, BoundingBox(nil))
}

func TestBox_TruncateClampToRect(t *testing.T) {
	b := NewBox(12.9, 3.2, -1.7, 40.5)
	assert.Equal(t, Box{MinX: -1.7, MinY: 3.2, MaxX: 12.9, MaxY: 40.5}, b)
	assert.Equal(t, Box{MinX: -1, MinY: 3, MaxX: 12, MaxY: 40}, b.Truncate())
	assert.Equal(t, Box{MinX: 0, MinY: 3.2, MaxX: 10, MaxY: 20}, b.Clamp(10, 20))
	assert.InDelta(t, 14.6, b.Width(), 1e-9)

	r := b.ToRect(image.Rect(0, 0, 10, 20))
	assert.Equal(t, image.Rect(0, 3, 10, 20), r)
}

func TestBox_Offset(t *testing.T) {
	b := NewBox(1, 2, 3, 4).Offset(image.Pt(10, -2))
	assert.Equal(t, Box{MinX: 11, MinY: 0, MaxX: 13, MaxY: 2}, b)
}

func TestCropAndRotate(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 8, 4))
	for y := range 4 {
		for x := range 8 {
			img.Set(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	cropped := CropImageRect(img, image.Rect(2, 1, 6, 3))
	assert.Equal(t, 4, cropped.Bounds().Dx())
	assert.Equal(t, 2, cropped.Bounds().Dy())

	r90 := Rotate90(cropped)
	assert.Equal(t, 2, r90.Bounds().Dx())
	assert.Equal(t, 4, r90.Bounds().Dy())

	empty := CropImageRect(img, image.Rect(20, 20, 30, 30))
	assert.True(t, empty.Bounds().Empty())

	boxed := CropImageBox(img, Box{MinX: 1.5, MinY: 0, MaxX: 3.2, MaxY: 2})
	assert.Equal(t, 3, boxed.Bounds().Dx())
}

func TestCropRows(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 5, 100))
	band := CropRows(img, 40, 70)
	assert.Equal(t, 5, band.Bounds().Dx())
	assert.Equal(t, 30, band.Bounds().Dy())

	tail := CropRows(img, 90, 150)
	assert.Equal(t, 10, tail.Bounds().Dy())
}
