package cmd

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/MeKo-Tech/bubbleocr/internal/testutil"
)

const lensReply = `{
  "word_data": [{"word": "x"}],
  "line_blocks": [
    {"text": "こんにちは", "geometry": {"center_x": 0.5, "center_y": 0.5, "width": 0.2, "height": 0.1, "angle_deg": 0}}
  ]
}`

func lensSidecar(t *testing.T) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "image/png", r.Header.Get("Content-Type"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(lensReply))
	}))
	t.Cleanup(srv.Close)
	return srv.URL
}

func writePage(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	testutil.SaveImage(t, testutil.CreateTestImageWithText("page", 120, 80), path)
	return path
}

func TestImageCommand_LensJSON(t *testing.T) {
	t.Setenv("BUBBLEOCR_LENS_ENDPOINT", lensSidecar(t))
	page := writePage(t, t.TempDir(), "page.png")
	out := filepath.Join(t.TempDir(), "result.json")

	_, err := execute(t, "image", page, "--engine", "lens", "--format", "json", "--output", out)
	require.NoError(t, err)

	data, err := os.ReadFile(out)
	require.NoError(t, err)

	var got []bubble.Bubble
	require.NoError(t, json.Unmarshal(data, &got))
	require.Len(t, got, 1)
	assert.Equal(t, "こんにちは", got[0].Text)
	assert.InDelta(t, 0.4, got[0].TightBoundingBox.X, 1e-9)
}

func TestImageCommand_TextToStdout(t *testing.T) {
	t.Setenv("BUBBLEOCR_LENS_ENDPOINT", lensSidecar(t))
	page := writePage(t, t.TempDir(), "page.png")

	output, err := execute(t, "image", page, "--engine", "lens", "--format", "text", "--output", "")
	require.NoError(t, err)
	assert.Contains(t, output, "こんにちは")
}

func TestImageCommand_MissingFile(t *testing.T) {
	t.Setenv("BUBBLEOCR_LENS_ENDPOINT", lensSidecar(t))

	_, err := execute(t, "image", filepath.Join(t.TempDir(), "nope.png"),
		"--engine", "lens", "--format", "json", "--output", "")
	require.Error(t, err)
}

func TestImageCommand_InvalidEngine(t *testing.T) {
	page := writePage(t, t.TempDir(), "page.png")

	_, err := execute(t, "image", page, "--engine", "tesseract", "--format", "json", "--output", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation")
}

func TestImageCommand_RequiresArgs(t *testing.T) {
	_, err := execute(t, "image")
	require.Error(t, err)
}
