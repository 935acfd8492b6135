package detector

import "github.com/MeKo-Tech/bubbleocr/internal/utils"

// Detection is one text box in the pixel coordinates of the source image.
type Detection struct {
	Label int64
	Box   utils.Box
	Score float64
}

// Postprocess converts raw model outputs into detections on the source image.
// boxes holds x1,y1,x2,y2 quadruples on the letterbox canvas. Detections with
// score > threshold are kept in output order, mapped back through info,
// truncated toward zero and clamped to the source bounds.
func Postprocess(labels []int64, boxes, scores []float32, info utils.LetterboxInfo, threshold float64) []Detection {
	n := min(len(scores), len(boxes)/4)
	out := make([]Detection, 0, n)
	for i := range n {
		score := float64(scores[i])
		if score <= threshold {
			continue
		}
		b := boxes[i*4 : i*4+4]
		raw := utils.Box{
			MinX: float64(b[0]),
			MinY: float64(b[1]),
			MaxX: float64(b[2]),
			MaxY: float64(b[3]),
		}
		box := info.Inverse(raw).Truncate().Clamp(float64(info.SrcW), float64(info.SrcH))

		var label int64
		if i < len(labels) {
			label = labels[i]
		}
		out = append(out, Detection{Label: label, Box: box, Score: score})
	}
	return out
}
