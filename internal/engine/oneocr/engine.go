// Package oneocr adapts line-level recognizers that work best on images of
// moderate height. Tall images are split into overlapping horizontal chunks
// which are recognized one after another and stitched back into full-image
// coordinates.
package oneocr

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
)

// Name is the engine key.
const Name = "oneocr"

// LineRecognizer recognizes the lines of one chunk. Boxes in the result are
// in pixel coordinates of the chunk.
type LineRecognizer interface {
	RecognizeChunk(ctx context.Context, chunk image.Image) (*Result, error)
}

// LineRecognizerFunc adapts a function to LineRecognizer.
type LineRecognizerFunc func(ctx context.Context, chunk image.Image) (*Result, error)

// RecognizeChunk calls f.
func (f LineRecognizerFunc) RecognizeChunk(ctx context.Context, chunk image.Image) (*Result, error) {
	return f(ctx, chunk)
}

// ChunkError reports which chunk a recognizer failure came from.
type ChunkError struct {
	Index int
	Top   int
	Err   error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("chunk %d (top %d): %v", e.Index, e.Top, e.Err)
}

func (e *ChunkError) Unwrap() error { return e.Err }

// Engine is the chunk-and-stitch adapter.
type Engine struct {
	recognizer LineRecognizer
	config     Config
	name       string
	logger     *slog.Logger
	observer   bubble.Observer
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig sets the chunking parameters.
func WithConfig(cfg Config) Option {
	return func(e *Engine) { e.config = cfg }
}

// WithName overrides the engine key reported by Name and to the observer.
// Other engines that reuse the stitcher register under their own key.
func WithName(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.name = name
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

// New returns an Engine that sends chunks to rec.
func New(rec LineRecognizer, opts ...Option) (*Engine, error) {
	if rec == nil {
		return nil, errors.New("oneocr: line recognizer is nil")
	}
	e := &Engine{
		recognizer: rec,
		config:     DefaultConfig(),
		name:       Name,
		logger:     slog.Default(),
		observer:   bubble.NopObserver{},
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}
	return e, nil
}

// Name returns the engine key.
func (e *Engine) Name() string { return e.name }

// Config returns the chunking parameters.
func (e *Engine) Config() Config { return e.config }

// OCR recognizes img chunk by chunk. Results are in chunk order, then in the
// recognizer's line order within each chunk. Lines inside an overlap band
// may be reported by both neighbouring chunks.
func (e *Engine) OCR(ctx context.Context, img image.Image) ([]bubble.Bubble, error) {
	if img == nil {
		return nil, fmt.Errorf("%s: image is nil", e.name)
	}
	b := img.Bounds()
	if b.Empty() {
		return []bubble.Bubble{}, nil
	}

	chunks, err := PlanChunks(b.Dy(), e.config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.name, err)
	}

	out := []bubble.Bubble{}
	for _, chunk := range chunks {
		crop := utils.CropRows(img, chunk.Top, chunk.Bottom)
		res, err := e.recognizer.RecognizeChunk(ctx, crop)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.name, &ChunkError{Index: chunk.Index, Top: chunk.Top, Err: err})
		}

		cb := crop.Bounds()
		local, err := Transform(res, cb.Dx(), cb.Dy())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.name, &ChunkError{Index: chunk.Index, Top: chunk.Top, Err: err})
		}
		out = append(out, Stitch(local, chunk, b.Dy())...)

		e.logger.Debug("chunk recognized",
			"engine", e.name, "chunk", chunk.Index, "top", chunk.Top, "bottom", chunk.Bottom, "lines", len(local))
		e.observer.ChunkProcessed(e.name, chunk.Index, len(local))
	}

	e.logger.Debug("ocr complete", "engine", e.name, "chunks", len(chunks), "bubbles", len(out))
	e.observer.BubblesEmitted(e.name, len(out))
	return out, nil
}
