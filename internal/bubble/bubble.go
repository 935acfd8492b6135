// Package bubble defines the engine-independent output record shared by all
// OCR backends, plus the small normalization helpers every adapter uses.
package bubble

import (
	"math"
	"strings"
)

const (
	// FontSize is the placeholder font size reported by every engine.
	// Glyph metrics are not measured.
	FontSize = 0.04

	// DefaultWordConfidence is used for words that carry no confidence value.
	DefaultWordConfidence = 0.95

	// Horizontal and Vertical are the two snap orientations in degrees.
	Horizontal = 0.0
	Vertical   = 90.0
)

// BoundingBox is a box expressed as fractions of the full image size with a
// top-left origin. Values are expected in [0,1] but are not clamped.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bubble is one recognized text region.
type Bubble struct {
	Text             string      `json:"text"`
	TightBoundingBox BoundingBox `json:"tightBoundingBox"`
	Orientation      float64     `json:"orientation"`
	FontSize         float64     `json:"font_size"`
	Confidence       float64     `json:"confidence"`
}

// New builds a Bubble with trimmed text and the placeholder font size.
// It reports false when the trimmed text is empty; such detections are
// dropped by callers rather than emitted.
func New(text string, box BoundingBox, orientation, confidence float64) (Bubble, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Bubble{}, false
	}
	return Bubble{
		Text:             text,
		TightBoundingBox: box,
		Orientation:      orientation,
		FontSize:         FontSize,
		Confidence:       confidence,
	}, true
}

// NormalizePixelBox converts a pixel-space box into a BoundingBox relative to
// an image of the given size. A zero-sized reference yields a zero box.
func NormalizePixelBox(x, y, w, h float64, imgW, imgH int) BoundingBox {
	if imgW <= 0 || imgH <= 0 {
		return BoundingBox{}
	}
	fw, fh := float64(imgW), float64(imgH)
	return BoundingBox{X: x / fw, Y: y / fh, Width: w / fw, Height: h / fh}
}

// SnapOrientation reduces a box to the nearest axis: Vertical when the box is
// taller than wide, Horizontal otherwise.
func SnapOrientation(width, height float64) float64 {
	if height > width {
		return Vertical
	}
	return Horizontal
}

// Orientation adds a measured deviation angle to the snap value and rounds
// the result to one decimal place.
func Orientation(width, height, rawAngleDeg float64) float64 {
	return roundTo(SnapOrientation(width, height)+rawAngleDeg, 1)
}

// AverageConfidence returns the arithmetic mean of confs, or
// DefaultWordConfidence when there are none.
func AverageConfidence(confs []float64) float64 {
	if len(confs) == 0 {
		return DefaultWordConfidence
	}
	var sum float64
	for _, c := range confs {
		sum += c
	}
	return sum / float64(len(confs))
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
