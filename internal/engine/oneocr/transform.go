package oneocr

import (
	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/utils"
)

// Quad is a bounding quadrilateral in pixel coordinates of the recognized
// image. Pointers distinguish a missing corner from zero.
type Quad struct {
	X1 *float64 `json:"x1"`
	Y1 *float64 `json:"y1"`
	X2 *float64 `json:"x2"`
	Y2 *float64 `json:"y2"`
	X3 *float64 `json:"x3"`
	Y3 *float64 `json:"y3"`
	X4 *float64 `json:"x4"`
	Y4 *float64 `json:"y4"`
}

// NewQuad builds a complete quad from four corners.
func NewQuad(x1, y1, x2, y2, x3, y3, x4, y4 float64) *Quad {
	return &Quad{X1: &x1, Y1: &y1, X2: &x2, Y2: &y2, X3: &x3, Y3: &y3, X4: &x4, Y4: &y4}
}

// Word is one recognized word. Confidence is nil when the backend did not
// report one.
type Word struct {
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// Line is one recognized line.
type Line struct {
	Text         string `json:"text"`
	BoundingRect *Quad  `json:"bounding_rect"`
	Words        []Word `json:"words"`
}

// Result is the line recognizer output for one image.
type Result struct {
	Lines []Line `json:"lines"`
}

func (q *Quad) points(line int) ([]utils.Point, error) {
	corners := []struct {
		field string
		x, y  *float64
	}{
		{"bounding_rect.1", q.X1, q.Y1},
		{"bounding_rect.2", q.X2, q.Y2},
		{"bounding_rect.3", q.X3, q.Y3},
		{"bounding_rect.4", q.X4, q.Y4},
	}
	pts := make([]utils.Point, 0, 4)
	for _, c := range corners {
		if c.x == nil || c.y == nil {
			return nil, &bubble.DecodeError{Line: line, Field: c.field, Err: bubble.ErrMalformedRect}
		}
		pts = append(pts, utils.Point{X: *c.x, Y: *c.y})
	}
	return pts, nil
}

// Transform converts a Result for an image of width x height pixels into
// bubbles normalized to that image. Lines with empty text, no bounding rect
// or no words are skipped. A rect with a missing corner fails the call with
// bubble.ErrMalformedRect. A zero-sized image yields no bubbles.
func Transform(res *Result, width, height int) ([]bubble.Bubble, error) {
	out := []bubble.Bubble{}
	if res == nil || width <= 0 || height <= 0 {
		return out, nil
	}

	for i, line := range res.Lines {
		text := bubble.CleanText(line.Text)
		if text == "" || line.BoundingRect == nil || len(line.Words) == 0 {
			continue
		}
		pts, err := line.BoundingRect.points(i)
		if err != nil {
			return nil, err
		}
		box := utils.BoundingBox(pts)
		w, h := box.Width(), box.Height()

		confs := make([]float64, 0, len(line.Words))
		for _, word := range line.Words {
			if word.Confidence == nil {
				confs = append(confs, bubble.DefaultWordConfidence)
				continue
			}
			confs = append(confs, *word.Confidence)
		}

		b, ok := bubble.New(text,
			bubble.NormalizePixelBox(box.MinX, box.MinY, w, h, width, height),
			bubble.SnapOrientation(w, h),
			bubble.AverageConfidence(confs))
		if ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// Stitch rescales bubbles normalized to chunk into coordinates normalized to
// the full image of fullHeight pixels. X and width are unchanged since
// chunks span the full width.
func Stitch(bubbles []bubble.Bubble, chunk Chunk, fullHeight int) []bubble.Bubble {
	if fullHeight <= 0 {
		return bubbles
	}
	ch := float64(chunk.Height())
	top := float64(chunk.Top)
	full := float64(fullHeight)
	for i := range bubbles {
		box := &bubbles[i].TightBoundingBox
		box.Y = (box.Y*ch + top) / full
		box.Height = box.Height * ch / full
	}
	return bubbles
}
