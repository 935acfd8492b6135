package bubble

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_TrimsText(t *testing.T) {
	b, ok := New("  ｸﾏ  ", BoundingBox{X: 0.1}, Vertical, 0.9)
	require.True(t, ok)
	assert.Equal(t, "ｸﾏ", b.Text)
	assert.Equal(t, FontSize, b.FontSize)
	assert.InDelta(t, 0.1, b.TightBoundingBox.X, 1e-12)
}

func TestNew_DropsEmpty(t *testing.T) {
	for _, s := range []string{"", "   ", "\t\n", "　"} {
		_, ok := New(s, BoundingBox{}, 0, 1)
		assert.False(t, ok, "text %q should be dropped", s)
	}
}

func TestBubble_JSONFieldNames(t *testing.T) {
	b, _ := New("a", BoundingBox{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4}, 90, 0.5)
	data, err := json.Marshal(b)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Contains(t, raw, "tightBoundingBox")
	assert.Contains(t, raw, "font_size")
	box := raw["tightBoundingBox"].(map[string]interface{})
	assert.Contains(t, box, "width")
	assert.Contains(t, box, "height")
}

func TestSnapOrientation(t *testing.T) {
	tests := []struct {
		name string
		w, h float64
		want float64
	}{
		{"wide", 10, 5, Horizontal},
		{"tall", 5, 10, Vertical},
		{"square", 7, 7, Horizontal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, SnapOrientation(tt.w, tt.h), 0)
		})
	}
}

func TestSnapOrientation_Property(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("taller than wide snaps to 90, otherwise 0", prop.ForAll(
		func(w, h float64) bool {
			got := SnapOrientation(w, h)
			if h > w {
				return got == Vertical
			}
			return got == Horizontal
		},
		gen.Float64Range(0, 5000),
		gen.Float64Range(0, 5000),
	))

	properties.TestingRun(t)
}

func TestOrientation_AddsRawAngle(t *testing.T) {
	assert.InDelta(t, 6.5, Orientation(0.2, 0.1, 6.5), 1e-9)
	assert.InDelta(t, 96.5, Orientation(0.1, 0.2, 6.5), 1e-9)
	assert.InDelta(t, 87.7, Orientation(0.1, 0.2, -2.345), 1e-9)
}

func TestAverageConfidence(t *testing.T) {
	assert.InDelta(t, DefaultWordConfidence, AverageConfidence(nil), 0)
	assert.InDelta(t, 0.8, AverageConfidence([]float64{0.7, 0.9}), 1e-12)
}

func TestNormalizePixelBox(t *testing.T) {
	got := NormalizePixelBox(10, 20, 30, 40, 100, 200)
	assert.Equal(t, BoundingBox{X: 0.1, Y: 0.1, Width: 0.3, Height: 0.2}, got)
	assert.Equal(t, BoundingBox{}, NormalizePixelBox(1, 1, 1, 1, 0, 10))
}

func TestCleanText(t *testing.T) {
	assert.Equal(t, "えっ…", CleanText(" えっ･･･ "))
	assert.Equal(t, "･･", CleanText("･･"))
	assert.Equal(t, "……", CleanText("･･････"))
}

func TestDecodeError_Unwrap(t *testing.T) {
	err := &DecodeError{Line: 3, Field: "geometry.width", Err: ErrMalformedGeometry}
	assert.True(t, errors.Is(err, ErrMalformedGeometry))
	assert.Contains(t, err.Error(), "line 3")
	assert.Contains(t, err.Error(), "geometry.width")
}

type countingObserver struct {
	chunks, boxes, failed, emitted int
}

func (c *countingObserver) ChunkProcessed(string, int, int) { c.chunks++ }
func (c *countingObserver) BoxesDetected(string, int)       { c.boxes++ }
func (c *countingObserver) RegionFailed(string, int, error) { c.failed++ }
func (c *countingObserver) BubblesEmitted(string, int)      { c.emitted++ }

func TestObservers_FanOut(t *testing.T) {
	a, b := &countingObserver{}, &countingObserver{}
	obs := Observers{a, NopObserver{}, b}
	obs.ChunkProcessed("x", 0, 1)
	obs.BoxesDetected("x", 2)
	obs.RegionFailed("x", 1, errors.New("boom"))
	obs.BubblesEmitted("x", 3)

	for _, c := range []*countingObserver{a, b} {
		assert.Equal(t, 1, c.chunks)
		assert.Equal(t, 1, c.boxes)
		assert.Equal(t, 1, c.failed)
		assert.Equal(t, 1, c.emitted)
	}
}
