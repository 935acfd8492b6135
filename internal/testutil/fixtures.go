package testutil

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/MeKo-Tech/bubbleocr/internal/bubble"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// LoadJSON decodes the JSON file at path into v.
func LoadJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := os.ReadFile(path) //nolint:gosec // G304: test-controlled path
	require.NoError(t, err, "Failed to read fixture %s", path)
	require.NoError(t, json.Unmarshal(data, v), "Failed to parse fixture %s", path)
}

// AssertBubbles compares two bubble lists in order, with delta tolerance on
// every float field.
func AssertBubbles(t *testing.T, want, got []bubble.Bubble, delta float64) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		w, g := want[i], got[i]
		assert.Equal(t, w.Text, g.Text, "bubble %d text", i)
		assert.InDelta(t, w.TightBoundingBox.X, g.TightBoundingBox.X, delta, "bubble %d x", i)
		assert.InDelta(t, w.TightBoundingBox.Y, g.TightBoundingBox.Y, delta, "bubble %d y", i)
		assert.InDelta(t, w.TightBoundingBox.Width, g.TightBoundingBox.Width, delta, "bubble %d width", i)
		assert.InDelta(t, w.TightBoundingBox.Height, g.TightBoundingBox.Height, delta, "bubble %d height", i)
		assert.InDelta(t, w.Orientation, g.Orientation, delta, "bubble %d orientation", i)
		assert.InDelta(t, w.FontSize, g.FontSize, delta, "bubble %d font size", i)
		assert.InDelta(t, w.Confidence, g.Confidence, delta, "bubble %d confidence", i)
	}
}
