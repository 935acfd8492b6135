package utils

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"
)

// LetterboxInfo records how an image was placed on a square canvas so boxes
// can be mapped between canvas and source coordinates.
type LetterboxInfo struct {
	Size  int     // canvas side length
	Ratio float64 // source -> canvas scale
	PadW  int     // horizontal offset of the resized image on the canvas
	PadH  int     // vertical offset of the resized image on the canvas
	SrcW  int
	SrcH  int
}

// ComputeLetterbox derives the resize ratio and padding for placing a
// srcW x srcH image on a size x size canvas.
func ComputeLetterbox(srcW, srcH, size int) (LetterboxInfo, int, int, error) {
	if srcW <= 0 || srcH <= 0 {
		return LetterboxInfo{}, 0, 0, fmt.Errorf("invalid source dimensions: %dx%d", srcW, srcH)
	}
	if size <= 0 {
		return LetterboxInfo{}, 0, 0, fmt.Errorf("invalid canvas size: %d", size)
	}

	ratio := math.Min(float64(size)/float64(srcW), float64(size)/float64(srcH))
	newW := max(int(math.Round(float64(srcW)*ratio)), 1)
	newH := max(int(math.Round(float64(srcH)*ratio)), 1)
	newW = min(newW, size)
	newH = min(newH, size)

	info := LetterboxInfo{
		Size:  size,
		Ratio: ratio,
		PadW:  (size - newW) / 2,
		PadH:  (size - newH) / 2,
		SrcW:  srcW,
		SrcH:  srcH,
	}
	return info, newW, newH, nil
}

// Letterbox resizes img preserving its aspect ratio and centers it on a
// black size x size canvas.
func Letterbox(img image.Image, size int) (*image.NRGBA, LetterboxInfo, error) {
	if img == nil {
		return nil, LetterboxInfo{}, &ImageProcessingError{Operation: "letterbox", Err: errors.New("input image is nil")}
	}

	b := img.Bounds()
	info, newW, newH, err := ComputeLetterbox(b.Dx(), b.Dy(), size)
	if err != nil {
		return nil, LetterboxInfo{}, &ImageProcessingError{Operation: "letterbox", Err: err}
	}

	resized := imaging.Resize(img, newW, newH, imaging.Linear)
	canvas := imaging.New(size, size, color.Black)
	canvas = imaging.Paste(canvas, resized, image.Pt(info.PadW, info.PadH))
	return canvas, info, nil
}

// Forward maps a box from source pixel coordinates onto the canvas.
func (l LetterboxInfo) Forward(b Box) Box {
	pw, ph := float64(l.PadW), float64(l.PadH)
	return Box{
		MinX: b.MinX*l.Ratio + pw,
		MinY: b.MinY*l.Ratio + ph,
		MaxX: b.MaxX*l.Ratio + pw,
		MaxY: b.MaxY*l.Ratio + ph,
	}
}

// Inverse maps a box from canvas pixel coordinates back to the source image
// and clamps it to the source bounds.
func (l LetterboxInfo) Inverse(b Box) Box {
	if l.Ratio <= 0 {
		return Box{}
	}
	pw, ph := float64(l.PadW), float64(l.PadH)
	out := Box{
		MinX: (b.MinX - pw) / l.Ratio,
		MinY: (b.MinY - ph) / l.Ratio,
		MaxX: (b.MaxX - pw) / l.Ratio,
		MaxY: (b.MaxY - ph) / l.Ratio,
	}
	return out.Clamp(float64(l.SrcW), float64(l.SrcH))
}
