package utils

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/bubbleocr/internal/mempool"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ChannelOrder selects the channel layout written by NormalizeImage.
type ChannelOrder int

const (
	// RGB writes red, green, blue planes.
	RGB ChannelOrder = iota
	// BGR writes blue, green, red planes, matching models trained on
	// OpenCV-decoded input.
	BGR
)

// NormalizeImage normalizes an image for ONNX inference:
// - Converts to 8-bit colour (drops alpha)
// - Scales pixel values from 0-255 to 0-1
// - Lays the planes out in CHW order for a [1, 3, H, W] tensor.
//
// The returned slice is drawn from mempool; callers may hand it back with
// mempool.PutFloat32 once the tensor is no longer referenced.
func NormalizeImage(img image.Image, order ChannelOrder) ([]float32, int, int, error) {
	if img == nil {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("input image is nil")}
	}

	nrgba := imaging.Clone(img)
	bounds := nrgba.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width <= 0 || height <= 0 {
		return nil, 0, 0, &ImageProcessingError{Operation: "normalize", Err: errors.New("invalid image dimensions")}
	}

	plane := width * height
	tensor := mempool.GetFloat32(3 * plane)
	first, third := 0, 2*plane
	if order == BGR {
		first, third = 2*plane, 0
	}

	for y := range height {
		row := nrgba.Pix[y*nrgba.Stride:]
		for x := range width {
			px := row[x*4 : x*4+3]
			idx := y*width + x
			tensor[first+idx] = float32(px[0]) / 255.0
			tensor[plane+idx] = float32(px[1]) / 255.0
			tensor[third+idx] = float32(px[2]) / 255.0
		}
	}

	return tensor, width, height, nil
}
