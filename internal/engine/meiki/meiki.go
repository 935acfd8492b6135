// Package meiki implements the detect-then-recognize adapter: a box detector
// locates text regions on the whole page and a crop recognizer reads each
// region independently.
package meiki

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/detector"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
)

// Name is the engine key.
const Name = "meikimanga"

const (
	// Confidence is reported for every region; the recognizer exposes none.
	Confidence = 0.95
	// DefaultMinCropSize is the smallest crop side, in pixels, sent to the
	// recognizer.
	DefaultMinCropSize = 10
)

// BoxDetector finds text regions. Detections are in pixel coordinates of
// img, already filtered by score and clamped to the image.
type BoxDetector interface {
	Detect(img image.Image) ([]detector.Detection, error)
}

// CropRecognizer reads the text of one cropped region.
type CropRecognizer interface {
	Recognize(img image.Image) (string, error)
}

// RegionError is a failure confined to one detected region.
type RegionError struct {
	Index int
	Box   utils.Box
	Err   error
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("region %d [%.0f,%.0f,%.0f,%.0f]: %v",
		e.Index, e.Box.MinX, e.Box.MinY, e.Box.MaxX, e.Box.MaxY, e.Err)
}

func (e *RegionError) Unwrap() error { return e.Err }

// Engine is the detect-then-recognize adapter. It owns its detector and
// recognizer; Close releases both when they support it.
type Engine struct {
	detector    BoxDetector
	recognizer  CropRecognizer
	minCropSize int
	logger      *slog.Logger
	observer    bubble.Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithMinCropSize sets the smallest crop width and height kept. Zero keeps
// every non-empty crop; negative values are ignored.
func WithMinCropSize(px int) Option {
	return func(e *Engine) {
		if px >= 0 {
			e.minCropSize = px
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver sets the progress observer.
func WithObserver(o bubble.Observer) Option {
	return func(e *Engine) {
		if o != nil {
			e.observer = o
		}
	}
}

// New returns an Engine from already constructed collaborators.
func New(det BoxDetector, rec CropRecognizer, opts ...Option) (*Engine, error) {
	if det == nil {
		return nil, errors.New("meiki: detector is nil")
	}
	if rec == nil {
		return nil, errors.New("meiki: recognizer is nil")
	}
	e := &Engine{
		detector:    det,
		recognizer:  rec,
		minCropSize: DefaultMinCropSize,
		logger:      slog.Default(),
		observer:    bubble.NopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the engine key.
func (e *Engine) Name() string { return Name }

// OCR detects regions on img and recognizes each in detector order. A
// failure in one region is logged and reported to the observer, and that
// region is skipped. Only a detector failure fails the call.
//
// ctx is not consulted: ONNX inference cannot be interrupted, so a running
// call always completes.
func (e *Engine) OCR(_ context.Context, img image.Image) ([]bubble.Bubble, error) {
	if img == nil {
		return nil, errors.New("meiki: image is nil")
	}

	dets, err := e.detector.Detect(img)
	if err != nil {
		return nil, fmt.Errorf("meiki: detect: %w", err)
	}
	e.observer.BoxesDetected(Name, len(dets))
	if len(dets) == 0 {
		e.logger.Debug("no text boxes detected")
		e.observer.BubblesEmitted(Name, 0)
		return []bubble.Bubble{}, nil
	}
	e.logger.Debug("text boxes detected", "count", len(dets))

	b := img.Bounds()
	out := make([]bubble.Bubble, 0, len(dets))
	for i, det := range dets {
		bb, ok, err := e.region(img, det.Box)
		if err != nil {
			rerr := &RegionError{Index: i, Box: det.Box, Err: err}
			e.logger.Warn("skipping region", "index", i, "error", rerr)
			e.observer.RegionFailed(Name, i, rerr)
			continue
		}
		if !ok {
			continue
		}
		bb.TightBoundingBox = bubble.NormalizePixelBox(
			det.Box.MinX, det.Box.MinY, det.Box.Width(), det.Box.Height(), b.Dx(), b.Dy())
		out = append(out, bb)
	}

	e.logger.Debug("regions recognized", "detected", len(dets), "bubbles", len(out))
	e.observer.BubblesEmitted(Name, len(out))
	return out, nil
}

// region crops and recognizes one box. It reports false for crops below the
// minimum size and for empty text.
func (e *Engine) region(img image.Image, box utils.Box) (b bubble.Bubble, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()

	// Detector boxes are relative to the image origin.
	crop := utils.CropImageBox(img, box.Offset(img.Bounds().Min))
	cb := crop.Bounds()
	if cb.Empty() || cb.Dx() < e.minCropSize || cb.Dy() < e.minCropSize {
		return bubble.Bubble{}, false, nil
	}

	text, err := e.recognizer.Recognize(crop)
	if err != nil {
		return bubble.Bubble{}, false, err
	}
	text = strings.TrimSpace(text)

	b, ok = bubble.New(text, bubble.BoundingBox{}, bubble.SnapOrientation(box.Width(), box.Height()), Confidence)
	return b, ok, nil
}

// Close releases the detector and recognizer.
func (e *Engine) Close() error {
	var errs []error
	if c, ok := e.detector.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	if c, ok := e.recognizer.(interface{ Close() error }); ok {
		errs = append(errs, c.Close())
	}
	return errors.Join(errs...)
}
