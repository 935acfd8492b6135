// Package lens adapts a geometry-based recognizer that reports each text line
// as a center point, size and deviation angle, already normalized to the
// image.
package lens

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
)

// Name is the engine key.
const Name = "lens"

// Confidence is reported for every line; the backend exposes none.
const Confidence = 0.98

// Geometry is a line's placement as fractions of the image size. Pointers
// distinguish a missing key from a zero value.
type Geometry struct {
	CenterX  *float64 `json:"center_x"`
	CenterY  *float64 `json:"center_y"`
	Width    *float64 `json:"width"`
	Height   *float64 `json:"height"`
	AngleDeg *float64 `json:"angle_deg"`
}

// LineBlock is one recognized line.
type LineBlock struct {
	Text     string    `json:"text"`
	Geometry *Geometry `json:"geometry"`
}

// Response is the backend payload. WordData is only checked for presence.
type Response struct {
	WordData   json.RawMessage `json:"word_data,omitempty"`
	LineBlocks []LineBlock     `json:"line_blocks"`
	Paragraphs []Paragraph     `json:"paragraphs,omitempty"`
}

// Client fetches a Response for an image.
type Client interface {
	Process(ctx context.Context, img image.Image) (*Response, error)
}

// HasWordData reports whether the response carries a non-empty word_data
// value. null, false, 0, "", [] and {} all count as empty.
func (r *Response) HasWordData() bool {
	if r == nil {
		return false
	}
	v := bytes.TrimSpace(r.WordData)
	switch string(v) {
	case "", "null", "false", "0", `""`, "[]", "{}":
		return false
	}
	if v[0] == '[' || v[0] == '{' {
		var anyVal any
		if err := json.Unmarshal(v, &anyVal); err == nil {
			switch t := anyVal.(type) {
			case []any:
				return len(t) > 0
			case map[string]any:
				return len(t) > 0
			}
		}
	}
	return true
}

// Transform converts a Response into bubbles in line order. A response
// without word data yields no bubbles. A line whose geometry is missing or
// incomplete fails the whole call with bubble.ErrMalformedGeometry.
func Transform(resp *Response) ([]bubble.Bubble, error) {
	if !resp.HasWordData() {
		return []bubble.Bubble{}, nil
	}

	out := make([]bubble.Bubble, 0, len(resp.LineBlocks))
	for i, line := range resp.LineBlocks {
		cx, cy, w, h, angle, err := line.Geometry.values(i)
		if err != nil {
			return nil, err
		}

		box := bubble.BoundingBox{X: cx - w/2, Y: cy - h/2, Width: w, Height: h}
		b, ok := bubble.New(bubble.CleanText(line.Text), box, bubble.Orientation(w, h, angle), Confidence)
		if !ok {
			continue
		}
		out = append(out, b)
	}
	return out, nil
}

func (g *Geometry) values(line int) (cx, cy, w, h, angle float64, err error) {
	if g == nil {
		return 0, 0, 0, 0, 0, &bubble.DecodeError{Line: line, Field: "geometry", Err: bubble.ErrMalformedGeometry}
	}
	fields := []struct {
		name string
		v    *float64
		dst  *float64
	}{
		{"geometry.center_x", g.CenterX, &cx},
		{"geometry.center_y", g.CenterY, &cy},
		{"geometry.width", g.Width, &w},
		{"geometry.height", g.Height, &h},
		{"geometry.angle_deg", g.AngleDeg, &angle},
	}
	for _, f := range fields {
		if f.v == nil {
			return 0, 0, 0, 0, 0, &bubble.DecodeError{Line: line, Field: f.name, Err: bubble.ErrMalformedGeometry}
		}
		*f.dst = *f.v
	}
	return cx, cy, w, h, angle, nil
}

// Paragraph, RawLine and Word mirror the backend's unflattened layout tree.
type Paragraph struct {
	Lines []RawLine `json:"lines"`
}

// RawLine is a line of the layout tree.
type RawLine struct {
	Words    []Word      `json:"words"`
	Geometry RawGeometry `json:"geometry"`
}

// Word is a word with the separator that follows it.
type Word struct {
	PlainText     string `json:"plain_text"`
	TextSeparator string `json:"text_separator,omitempty"`
}

// RawGeometry holds a rotated box whose rotation is in radians.
type RawGeometry struct {
	BoundingBox struct {
		CenterX   float64 `json:"center_x"`
		CenterY   float64 `json:"center_y"`
		Width     float64 `json:"width"`
		Height    float64 `json:"height"`
		RotationZ float64 `json:"rotation_z"`
	} `json:"bounding_box"`
}

// RawTransform builds bubbles from the layout tree. Line text is the
// concatenation of each word and its separator, and orientation is the
// rotation converted to degrees without snapping.
func RawTransform(paragraphs []Paragraph) []bubble.Bubble {
	out := []bubble.Bubble{}
	for _, p := range paragraphs {
		for _, line := range p.Lines {
			var text []byte
			for _, w := range line.Words {
				text = append(text, w.PlainText...)
				text = append(text, w.TextSeparator...)
			}
			bb := line.Geometry.BoundingBox
			box := bubble.BoundingBox{
				X:      bb.CenterX - bb.Width/2,
				Y:      bb.CenterY - bb.Height/2,
				Width:  bb.Width,
				Height: bb.Height,
			}
			orientation := math.Round(bb.RotationZ*(180/math.Pi)*10) / 10
			if b, ok := bubble.New(bubble.CleanText(string(text)), box, orientation, Confidence); ok {
				out = append(out, b)
			}
		}
	}
	return out
}

// Engine runs a Client and transforms its output.
type Engine struct {
	client   Client
	raw      bool
	logger   *slog.Logger
	observer bubble.Observer
}

// Option configures an Engine.
type Option func(*Engine)

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

// WithRawLayout makes the engine read the paragraph tree instead of the
// flattened line blocks.
func WithRawLayout(raw bool) Option {
	return func(e *Engine) { e.raw = raw }
}

// New returns an Engine backed by client.
func New(client Client, opts ...Option) (*Engine, error) {
	if client == nil {
		return nil, errors.New("lens: client is nil")
	}
	e := &Engine{client: client, logger: slog.Default(), observer: bubble.NopObserver{}}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Name returns the engine key.
func (e *Engine) Name() string { return Name }

// OCR recognizes img.
func (e *Engine) OCR(ctx context.Context, img image.Image) ([]bubble.Bubble, error) {
	if img == nil {
		return nil, errors.New("lens: image is nil")
	}
	resp, err := e.client.Process(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("lens: %w", err)
	}

	var out []bubble.Bubble
	if e.raw {
		if resp == nil {
			out = []bubble.Bubble{}
		} else {
			out = RawTransform(resp.Paragraphs)
		}
	} else {
		out, err = Transform(resp)
		if err != nil {
			return nil, fmt.Errorf("lens: %w", err)
		}
	}

	e.logger.Debug("lens transform complete", "lines", lineCount(resp), "bubbles", len(out))
	e.observer.BubblesEmitted(Name, len(out))
	return out, nil
}

func lineCount(r *Response) int {
	if r == nil {
		return 0
	}
	return len(r.LineBlocks)
}
