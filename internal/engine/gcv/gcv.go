// Package gcv runs Google Cloud Vision document text detection through the
// chunk-and-stitch adapter. Each Vision paragraph becomes one line.
package gcv

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"strings"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	gax "github.com/googleapis/gax-go/v2"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/engine/oneocr"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
)

// Name is the engine key.
const Name = "gcv"

// VisionClient is the subset of vision.ImageAnnotatorClient used here.
// Tests substitute a fake.
type VisionClient interface {
	DetectDocumentText(ctx context.Context, image *visionpb.Image, imageContext *visionpb.ImageContext, opts ...gax.CallOption) (*visionpb.TextAnnotation, error)
}

// Dial connects to Cloud Vision with application default credentials.
func Dial(ctx context.Context) (*vision.ImageAnnotatorClient, error) {
	c, err := vision.NewImageAnnotatorClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcv: create vision client: %w", err)
	}
	return c, nil
}

// Recognizer adapts a VisionClient to oneocr.LineRecognizer.
type Recognizer struct {
	client VisionClient
	hints  []string
}

// RecognizeChunk sends chunk as PNG and converts the annotation to lines.
func (r *Recognizer) RecognizeChunk(ctx context.Context, chunk image.Image) (*oneocr.Result, error) {
	data, err := utils.EncodePNG(chunk)
	if err != nil {
		return nil, err
	}
	var ictx *visionpb.ImageContext
	if len(r.hints) > 0 {
		ictx = &visionpb.ImageContext{LanguageHints: r.hints}
	}
	ann, err := r.client.DetectDocumentText(ctx, &visionpb.Image{Content: data}, ictx)
	if err != nil {
		return nil, fmt.Errorf("detect document text: %w", err)
	}
	return AnnotationToResult(ann), nil
}

// AnnotationToResult flattens pages and blocks into one line per paragraph.
// A nil annotation means no text was found.
func AnnotationToResult(ann *visionpb.TextAnnotation) *oneocr.Result {
	res := &oneocr.Result{}
	for _, page := range ann.GetPages() {
		for _, block := range page.GetBlocks() {
			for _, p := range block.GetParagraphs() {
				res.Lines = append(res.Lines, paragraphLine(p))
			}
		}
	}
	return res
}

func paragraphLine(p *visionpb.Paragraph) oneocr.Line {
	var text strings.Builder
	words := make([]oneocr.Word, 0, len(p.GetWords()))
	for _, w := range p.GetWords() {
		var wt strings.Builder
		for _, s := range w.GetSymbols() {
			wt.WriteString(s.GetText())
			wt.WriteString(breakText(s.GetProperty().GetDetectedBreak().GetType()))
		}
		text.WriteString(wt.String())

		word := oneocr.Word{Text: strings.TrimSpace(wt.String())}
		if c := float64(w.GetConfidence()); c > 0 {
			word.Confidence = &c
		}
		words = append(words, word)
	}
	return oneocr.Line{
		Text:         text.String(),
		BoundingRect: polyQuad(p.GetBoundingBox()),
		Words:        words,
	}
}

func breakText(t visionpb.TextAnnotation_DetectedBreak_BreakType) string {
	switch t {
	case visionpb.TextAnnotation_DetectedBreak_SPACE,
		visionpb.TextAnnotation_DetectedBreak_SURE_SPACE,
		visionpb.TextAnnotation_DetectedBreak_EOL_SURE_SPACE:
		return " "
	case visionpb.TextAnnotation_DetectedBreak_LINE_BREAK:
		return "\n"
	case visionpb.TextAnnotation_DetectedBreak_HYPHEN:
		return "-"
	default:
		return ""
	}
}

// polyQuad converts a pixel bounding poly. Vision omits zero coordinates, so
// a present vertex with unset fields reads as 0; absent vertices leave the
// corresponding corners nil.
func polyQuad(poly *visionpb.BoundingPoly) *oneocr.Quad {
	if poly == nil || len(poly.GetVertices()) == 0 {
		return nil
	}
	q := &oneocr.Quad{}
	corners := [][2]**float64{{&q.X1, &q.Y1}, {&q.X2, &q.Y2}, {&q.X3, &q.Y3}, {&q.X4, &q.Y4}}
	for i, v := range poly.GetVertices() {
		if i >= len(corners) {
			break
		}
		x, y := float64(v.GetX()), float64(v.GetY())
		*corners[i][0] = &x
		*corners[i][1] = &y
	}
	return q
}

// Engine is the Cloud Vision adapter.
type Engine struct {
	*oneocr.Engine
	client VisionClient
}

type options struct {
	config   oneocr.Config
	hints    []string
	logger   *slog.Logger
	observer bubble.Observer
}

// Option configures an Engine.
type Option func(*options)

// WithConfig sets the chunking parameters.
func WithConfig(cfg oneocr.Config) Option {
	return func(o *options) { o.config = cfg }
}

// WithLanguageHints passes language hints to every request.
func WithLanguageHints(hints ...string) Option {
	return func(o *options) { o.hints = hints }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithObserver sets the progress observer.
func WithObserver(obs bubble.Observer) Option {
	return func(o *options) { o.observer = obs }
}

// New returns an Engine backed by client.
func New(client VisionClient, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, errors.New("gcv: vision client is nil")
	}
	o := options{config: oneocr.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	inner, err := oneocr.New(&Recognizer{client: client, hints: o.hints},
		oneocr.WithName(Name),
		oneocr.WithConfig(o.config),
		oneocr.WithLogger(o.logger),
		oneocr.WithObserver(o.observer),
	)
	if err != nil {
		return nil, err
	}
	return &Engine{Engine: inner, client: client}, nil
}

// Close closes the underlying client when it supports it.
func (e *Engine) Close() error {
	if c, ok := e.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
