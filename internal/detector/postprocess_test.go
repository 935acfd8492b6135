package detector

import (
	"testing"

	"github.com/MeKo-Tech/bubbleocr/internal/utils"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func letterbox(t *testing.T, w, h int) utils.LetterboxInfo {
	t.Helper()
	info, _, _, err := utils.ComputeLetterbox(w, h, 640)
	require.NoError(t, err)
	return info
}

func TestPostprocess_ThresholdIsStrict(t *testing.T) {
	info := letterbox(t, 640, 640)
	boxes := []float32{
		10, 10, 50, 50,
		60, 60, 90, 90,
		100, 100, 200, 200,
	}
	scores := []float32{0.5, 0.51, 0.9}

	dets := Postprocess([]int64{0, 1, 2}, boxes, scores, info, 0.5)
	require.Len(t, dets, 2)
	assert.Equal(t, int64(1), dets[0].Label)
	assert.Equal(t, int64(2), dets[1].Label)
	assert.Equal(t, utils.Box{MinX: 100, MinY: 100, MaxX: 200, MaxY: 200}, dets[1].Box)
}

func TestPostprocess_MapsBackThroughLetterbox(t *testing.T) {
	// 1000x500 -> ratio 0.64, image band starts at y=160 on the canvas.
	info := letterbox(t, 1000, 500)
	boxes := []float32{64, 192, 128.9, 224.7}
	dets := Postprocess(nil, boxes, []float32{0.9}, info, 0.5)
	require.Len(t, dets, 1)

	// (64-0)/0.64=100, (192-160)/0.64=50, 128.9/0.64=201.4, (224.7-160)/0.64=101.09
	assert.Equal(t, utils.Box{MinX: 100, MinY: 50, MaxX: 201, MaxY: 101}, dets[0].Box)
	assert.Equal(t, int64(0), dets[0].Label)
}

func TestPostprocess_ClampsToImage(t *testing.T) {
	info := letterbox(t, 1000, 500)
	boxes := []float32{-20, 100, 700, 600}
	dets := Postprocess(nil, boxes, []float32{0.99}, info, 0.5)
	require.Len(t, dets, 1)
	assert.Equal(t, utils.Box{MinX: 0, MinY: 0, MaxX: 1000, MaxY: 500}, dets[0].Box)
}

func TestPostprocess_EmptyAndShortOutputs(t *testing.T) {
	info := letterbox(t, 640, 640)
	assert.Empty(t, Postprocess(nil, nil, nil, info, 0.5))
	// Three scores but only one box: extra scores are ignored.
	dets := Postprocess(nil, []float32{1, 1, 20, 20}, []float32{0.9, 0.9, 0.9}, info, 0.5)
	assert.Len(t, dets, 1)
}

func TestPostprocess_BoundsProperty(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every detection lies within the source image on integer coordinates", prop.ForAll(
		func(w, h int, x1, y1, x2, y2 float64) bool {
			info, _, _, err := utils.ComputeLetterbox(w, h, 640)
			if err != nil {
				return false
			}
			boxes := []float32{float32(x1), float32(y1), float32(x2), float32(y2)}
			dets := Postprocess(nil, boxes, []float32{1}, info, 0.5)
			if len(dets) != 1 {
				return false
			}
			b := dets[0].Box
			for _, v := range []float64{b.MinX, b.MinY, b.MaxX, b.MaxY} {
				if v != float64(int64(v)) {
					return false
				}
			}
			return b.MinX >= 0 && b.MinY >= 0 && b.MaxX <= float64(w) && b.MaxY <= float64(h)
		},
		gen.IntRange(1, 3000),
		gen.IntRange(1, 3000),
		gen.Float64Range(-50, 700),
		gen.Float64Range(-50, 700),
		gen.Float64Range(-50, 700),
		gen.Float64Range(-50, 700),
	))

	properties.TestingRun(t)
}
