package lens

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"math"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func geom(cx, cy, w, h, a float64) *Geometry {
	return &Geometry{CenterX: f(cx), CenterY: f(cy), Width: f(w), Height: f(h), AngleDeg: f(a)}
}

func words() json.RawMessage { return json.RawMessage(`[{"word":"x"}]`) }

func TestTransform_CenterToBox(t *testing.T) {
	resp := &Response{
		WordData:   words(),
		LineBlocks: []LineBlock{{Text: "ABC", Geometry: geom(0.5, 0.5, 0.2, 0.1, 6.5)}},
	}
	got, err := Transform(resp)
	require.NoError(t, err)
	require.Len(t, got, 1)

	b := got[0]
	assert.InDelta(t, 0.4, b.TightBoundingBox.X, 1e-12)
	assert.InDelta(t, 0.45, b.TightBoundingBox.Y, 1e-12)
	assert.InDelta(t, 0.2, b.TightBoundingBox.Width, 1e-12)
	assert.InDelta(t, 0.1, b.TightBoundingBox.Height, 1e-12)
	assert.InDelta(t, 6.5, b.Orientation, 1e-12)
	assert.InDelta(t, Confidence, b.Confidence, 0)
	assert.InDelta(t, bubble.FontSize, b.FontSize, 0)
}

func TestTransform_VerticalAddsAngle(t *testing.T) {
	resp := &Response{
		WordData:   words(),
		LineBlocks: []LineBlock{{Text: "縦", Geometry: geom(0.3, 0.3, 0.05, 0.4, -2.34)}},
	}
	got, err := Transform(resp)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 87.7, got[0].Orientation, 1e-9)
}

func TestTransform_TextCleanup(t *testing.T) {
	resp := &Response{
		WordData: words(),
		LineBlocks: []LineBlock{
			{Text: " えっ･･･ ", Geometry: geom(0.5, 0.5, 0.1, 0.1, 0)},
			{Text: "   ", Geometry: geom(0.5, 0.5, 0.1, 0.1, 0)},
			{Text: "次", Geometry: geom(0.1, 0.1, 0.1, 0.1, 0)},
		},
	}
	got, err := Transform(resp)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "えっ…", got[0].Text)
	assert.Equal(t, "次", got[1].Text)
}

func TestTransform_NoWordData(t *testing.T) {
	blocks := []LineBlock{{Text: "A", Geometry: geom(0.5, 0.5, 0.1, 0.1, 0)}}
	for _, raw := range []string{"", "null", "[]", "{}", `""`, "false", " [ ] "} {
		got, err := Transform(&Response{WordData: json.RawMessage(raw), LineBlocks: blocks})
		require.NoError(t, err, raw)
		assert.Empty(t, got, raw)
		assert.NotNil(t, got, raw)
	}

	got, err := Transform(nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestTransform_MalformedGeometry(t *testing.T) {
	missingAngle := geom(0.5, 0.5, 0.1, 0.1, 0)
	missingAngle.AngleDeg = nil

	tests := []struct {
		name  string
		g     *Geometry
		field string
	}{
		{"no geometry", nil, "geometry"},
		{"no angle", missingAngle, "geometry.angle_deg"},
		{"no width", &Geometry{CenterX: f(0), CenterY: f(0)}, "geometry.width"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := &Response{
				WordData: words(),
				LineBlocks: []LineBlock{
					{Text: "ok", Geometry: geom(0.5, 0.5, 0.1, 0.1, 0)},
					{Text: "bad", Geometry: tt.g},
				},
			}
			got, err := Transform(resp)
			require.Error(t, err)
			assert.Nil(t, got)
			assert.ErrorIs(t, err, bubble.ErrMalformedGeometry)
			var de *bubble.DecodeError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, 1, de.Line)
			assert.Equal(t, tt.field, de.Field)
		})
	}
}

func TestResponse_DecodeFromJSON(t *testing.T) {
	payload := `{"word_data":[{"w":1}],"line_blocks":[{"text":"ｸﾏ","geometry":` +
		`{"center_x":0.5,"center_y":0.5,"width":0.2,"height":0.1,"angle_deg":0}}]}`
	var resp Response
	require.NoError(t, json.Unmarshal([]byte(payload), &resp))
	got, err := Transform(&resp)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "ｸﾏ", got[0].Text)
}

func TestRawTransform(t *testing.T) {
	var line RawLine
	line.Words = []Word{{PlainText: "ｸﾏ", TextSeparator: " "}, {PlainText: "･･･"}}
	line.Geometry.BoundingBox.CenterX = 0.5
	line.Geometry.BoundingBox.CenterY = 0.5
	line.Geometry.BoundingBox.Width = 0.1
	line.Geometry.BoundingBox.Height = 0.4
	line.Geometry.BoundingBox.RotationZ = math.Pi / 2

	empty := RawLine{Words: []Word{{PlainText: " "}}}

	got := RawTransform([]Paragraph{{Lines: []RawLine{line, empty}}})
	require.Len(t, got, 1)
	assert.Equal(t, "ｸﾏ …", got[0].Text)
	assert.InDelta(t, 90.0, got[0].Orientation, 1e-9)
	assert.InDelta(t, 0.45, got[0].TightBoundingBox.X, 1e-12)
	assert.InDelta(t, 0.3, got[0].TightBoundingBox.Y, 1e-12)
	assert.NotNil(t, RawTransform(nil))
}

type fakeClient struct {
	resp  *Response
	err   error
	calls int
}

func (c *fakeClient) Process(context.Context, image.Image) (*Response, error) {
	c.calls++
	return c.resp, c.err
}

type emitted struct {
	bubble.NopObserver
	n int
}

func (e *emitted) BubblesEmitted(_ string, n int) { e.n = n }

func TestEngine_OCR(t *testing.T) {
	client := &fakeClient{resp: &Response{
		WordData:   words(),
		LineBlocks: []LineBlock{{Text: "A", Geometry: geom(0.5, 0.5, 0.2, 0.1, 0)}},
	}}
	obs := &emitted{}
	e, err := New(client, WithObserver(obs), WithLogger(nil))
	require.NoError(t, err)
	assert.Equal(t, Name, e.Name())

	got, err := e.OCR(context.Background(), image.NewRGBA(image.Rect(0, 0, 4, 4)))
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.Equal(t, 1, obs.n)
	assert.Equal(t, 1, client.calls)
}

func TestEngine_OCRErrors(t *testing.T) {
	_, err := New(nil)
	require.Error(t, err)

	boom := errors.New("backend down")
	e, err := New(&fakeClient{err: boom})
	require.NoError(t, err)
	_, err = e.OCR(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, boom)

	_, err = e.OCR(context.Background(), nil)
	assert.Error(t, err)

	bad := &fakeClient{resp: &Response{WordData: words(), LineBlocks: []LineBlock{{Text: "x"}}}}
	e, _ = New(bad)
	_, err = e.OCR(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	assert.ErrorIs(t, err, bubble.ErrMalformedGeometry)
}

func TestEngine_RawLayout(t *testing.T) {
	var line RawLine
	line.Words = []Word{{PlainText: "あ"}}
	line.Geometry.BoundingBox.Width = 0.1
	line.Geometry.BoundingBox.Height = 0.1
	client := &fakeClient{resp: &Response{Paragraphs: []Paragraph{{Lines: []RawLine{line}}}}}

	e, err := New(client, WithRawLayout(true))
	require.NoError(t, err)
	got, err := e.OCR(context.Background(), image.NewRGBA(image.Rect(0, 0, 1, 1)))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "あ", got[0].Text)
}

func TestTransform_Golden(t *testing.T) {
	var resp Response
	testutil.LoadJSON(t, filepath.Join("testdata", "page_response.json"), &resp)
	var want []bubble.Bubble
	testutil.LoadJSON(t, filepath.Join("testdata", "page_bubbles.json"), &want)

	got, err := Transform(&resp)
	require.NoError(t, err)
	testutil.AssertBubbles(t, want, got, 1e-9)
}
