// Package engine maps an engine key to a constructed OCR adapter.
package engine

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"sort"
	"strings"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/detector"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/gcv"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/lens"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/meiki"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/oneocr"
	"github.com/MeKo-Tech/bubbleocr/internal/recognizer"
	"github.com/MeKo-Tech/bubbleocr/internal/sidecar"
)

// Engine recognizes text in an image and reports it as bubbles.
type Engine interface {
	OCR(ctx context.Context, img image.Image) ([]bubble.Bubble, error)
	Name() string
}

type factory func(ctx context.Context, cfg Config, o *options) (Engine, error)

var registry = map[string]factory{
	lens.Name:   newLens,
	oneocr.Name: newOneOCR,
	meiki.Name:  newMeiki,
	gcv.Name:    newGCV,
}

// Names returns the registered engine keys in sorted order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Normalize trims and lowercases an engine key.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// New constructs the engine registered under name. The key is matched
// case-insensitively after trimming. An unknown key yields a *ConfigError;
// any failure while building the engine yields a *ConstructionError and no
// engine.
func New(ctx context.Context, name string, cfg Config, opts ...Option) (Engine, error) {
	key := Normalize(name)
	build, ok := registry[key]
	if !ok {
		return nil, &ConfigError{Key: name}
	}

	o := &options{logger: slog.Default(), observer: bubble.NopObserver{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.observer == nil {
		o.observer = bubble.NopObserver{}
	}
	o.logger = o.logger.With("engine", key)

	e, err := build(ctx, cfg, o)
	if err != nil {
		return nil, &ConstructionError{Engine: key, Err: err}
	}
	o.logger.Debug("engine initialized")
	return e, nil
}

// Close releases e's resources when it holds any.
func Close(e Engine) error {
	if c, ok := e.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func newSidecar(endpoint string, cfg Config, o *options, opts ...sidecar.Option) (*sidecar.Client, error) {
	if endpoint == "" {
		return nil, errors.New("sidecar endpoint is not configured")
	}
	base := []sidecar.Option{
		sidecar.WithTimeout(cfg.Sidecar.Timeout),
		sidecar.WithMaxRetries(cfg.Sidecar.MaxRetries),
		sidecar.WithLogger(o.logger),
	}
	return sidecar.New(endpoint, append(base, opts...)...)
}

func newLens(_ context.Context, cfg Config, o *options) (Engine, error) {
	client := o.lensClient
	if client == nil {
		c, err := newSidecar(cfg.Lens.Endpoint, cfg, o, sidecar.WithQuery("lang", cfg.Lens.Language))
		if err != nil {
			return nil, err
		}
		client = sidecar.LensClient{Client: c}
	}
	return lens.New(client,
		lens.WithLogger(o.logger),
		lens.WithObserver(o.observer),
		lens.WithRawLayout(cfg.Lens.RawLayout))
}

func newOneOCR(_ context.Context, cfg Config, o *options) (Engine, error) {
	rec := o.lineRecognizer
	if rec == nil {
		c, err := newSidecar(cfg.OneOCR.Endpoint, cfg, o)
		if err != nil {
			return nil, err
		}
		rec = sidecar.LineRecognizer{Client: c}
	}
	return oneocr.New(rec,
		oneocr.WithConfig(cfg.OneOCR.Config),
		oneocr.WithLogger(o.logger),
		oneocr.WithObserver(o.observer))
}

func newMeiki(_ context.Context, cfg Config, o *options) (Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	det := o.detector
	var owned io.Closer
	if det == nil {
		d, err := detector.NewDetector(cfg.DetectorConfig())
		if err != nil {
			return nil, err
		}
		det, owned = d, d
	}

	rec := o.recognizer
	if rec == nil {
		r, err := recognizer.NewRecognizer(cfg.RecognizerConfig())
		if err != nil {
			if owned != nil {
				_ = owned.Close()
			}
			return nil, err
		}
		rec = r
	}

	return meiki.New(det, rec,
		meiki.WithMinCropSize(cfg.Meiki.MinCropSize),
		meiki.WithLogger(o.logger),
		meiki.WithObserver(o.observer))
}

func newGCV(ctx context.Context, cfg Config, o *options) (Engine, error) {
	client := o.vision
	var owned io.Closer
	if client == nil {
		c, err := gcv.Dial(ctx)
		if err != nil {
			return nil, err
		}
		client, owned = c, c
	}

	e, err := gcv.New(client,
		gcv.WithConfig(cfg.GCV.Config),
		gcv.WithLanguageHints(cfg.GCV.LanguageHints...),
		gcv.WithLogger(o.logger),
		gcv.WithObserver(o.observer))
	if err != nil {
		if owned != nil {
			_ = owned.Close()
		}
		return nil, err
	}
	return e, nil
}
