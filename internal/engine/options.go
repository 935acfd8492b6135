package engine

import (
	"log/slog"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/gcv"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/lens"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/meiki"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/oneocr"
)

type options struct {
	logger         *slog.Logger
	observer       bubble.Observer
	lensClient     lens.Client
	lineRecognizer oneocr.LineRecognizer
	detector       meiki.BoxDetector
	recognizer     meiki.CropRecognizer
	vision         gcv.VisionClient
}

// Option customizes engine construction.
type Option func(*options)

// WithLogger sets the logger handed to the engine.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver sets the progress observer handed to the engine.
func WithObserver(obs bubble.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// WithLensClient replaces the lens sidecar client.
func WithLensClient(c lens.Client) Option {
	return func(o *options) { o.lensClient = c }
}

// WithLineRecognizer replaces the oneocr sidecar client.
func WithLineRecognizer(r oneocr.LineRecognizer) Option {
	return func(o *options) { o.lineRecognizer = r }
}

// WithDetector replaces the ONNX box detector.
func WithDetector(d meiki.BoxDetector) Option {
	return func(o *options) { o.detector = d }
}

// WithRecognizer replaces the ONNX crop recognizer.
func WithRecognizer(r meiki.CropRecognizer) Option {
	return func(o *options) { o.recognizer = r }
}

// WithVisionClient replaces the Cloud Vision client.
func WithVisionClient(c gcv.VisionClient) Option {
	return func(o *options) { o.vision = c }
}
