// Package batch runs an OCR engine over a set of image files.
package batch

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
)

// ErrNoImages is returned when discovery finds nothing to process.
var ErrNoImages = errors.New("no image files found")

// Engine is the subset of engine.Engine used here.
type Engine interface {
	OCR(ctx context.Context, img image.Image) ([]bubble.Bubble, error)
	Name() string
}

// Process discovers the images named by paths and runs eng over each in
// order. A failing file is recorded on its Item unless cfg.FailFast is set.
func Process(ctx context.Context, eng Engine, paths []string, cfg *Config) (*Result, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	files, err := discoverImageFiles(paths, cfg.Recursive, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(files) == 0 {
		return nil, ErrNoImages
	}

	res := &Result{Engine: eng.Name(), Items: make([]Item, 0, len(files))}
	start := time.Now()
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		item := processFile(ctx, eng, path)
		if item.Err != nil {
			if cfg.FailFast {
				return nil, item.Err
			}
			logger.Warn("image failed", "file", path, "error", item.Err)
		} else {
			logger.Debug("image processed", "file", path, "bubbles", len(item.Bubbles))
		}
		res.Items = append(res.Items, item)
	}
	res.Duration = time.Since(start)
	return res, nil
}

func processFile(ctx context.Context, eng Engine, path string) Item {
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return Item{File: path, Err: fmt.Errorf("failed to load %s: %w", path, err)}
	}
	bubbles, err := eng.OCR(ctx, img)
	if err != nil {
		return Item{File: path, Err: fmt.Errorf("OCR failed for %s: %w", path, err)}
	}
	if bubbles == nil {
		bubbles = []bubble.Bubble{}
	}
	return Item{File: path, Bubbles: bubbles}
}
