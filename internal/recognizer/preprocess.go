package recognizer

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/bubbleocr/internal/onnx"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
	"github.com/disintegration/imaging"
)

// verticalAspect is the height/width ratio above which a crop is treated as
// a vertical text column.
const verticalAspect = 1.2

// OrientCrop rotates tall crops 90 degrees counter-clockwise so a top-to-bottom
// column reads left-to-right. It reports whether it rotated.
func OrientCrop(img image.Image) (image.Image, bool) {
	b := img.Bounds()
	if float64(b.Dy()) > float64(b.Dx())*verticalAspect {
		return utils.Rotate90(img), true
	}
	return img, false
}

// ResizeForRecognition scales an image to a fixed target height while preserving
// aspect ratio. If padToMultiple > 0, the width is padded with black pixels to the
// next multiple. If maxWidth > 0, the width is clamped to maxWidth.
func ResizeForRecognition(img image.Image, targetHeight, maxWidth, padToMultiple int) (image.Image, int, int, error) {
	if img == nil {
		return nil, 0, 0, errors.New("input image is nil")
	}
	if targetHeight <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid targetHeight: %d", targetHeight)
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return nil, 0, 0, fmt.Errorf("empty crop: %dx%d", w, h)
	}

	scale := float64(targetHeight) / float64(h)
	newW := max(int(float64(w)*scale), 1)
	if maxWidth > 0 && newW > maxWidth {
		newW = maxWidth
	}

	resized := imaging.Resize(img, newW, targetHeight, imaging.Lanczos)

	outW := newW
	if padToMultiple > 0 {
		if rem := newW % padToMultiple; rem != 0 {
			outW = newW + (padToMultiple - rem)
		}
	}
	if outW == newW {
		return resized, outW, targetHeight, nil
	}

	canvas := imaging.New(outW, targetHeight, color.Black)
	canvas = imaging.Paste(canvas, resized, image.Pt(0, 0))
	return canvas, outW, targetHeight, nil
}

// NormalizeForRecognition converts an image to a float32 NCHW tensor in [0,1].
func NormalizeForRecognition(img image.Image) (onnx.Tensor, error) {
	data, w, h, err := utils.NormalizeImage(img, utils.RGB)
	if err != nil {
		return onnx.Tensor{}, err
	}
	return onnx.NewImageTensor(data, 3, h, w)
}
