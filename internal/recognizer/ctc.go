package recognizer

import (
	"math"
)

// DecodedSequence holds CTC-decoded indices and per-character probabilities.
type DecodedSequence struct {
	Indices       []int
	Probs         []float64
	Collapsed     []int
	CollapsedProb []float64
}

func argmax(v []float32) (int, float32) {
	if len(v) == 0 {
		return -1, 0
	}
	idx := 0
	maxVal := v[0]
	for i := 1; i < len(v); i++ {
		if v[i] > maxVal {
			maxVal = v[i]
			idx = i
		}
	}
	return idx, maxVal
}

// softmaxProbOfIndex computes the softmax probability of v[idx] among v.
// Rows that already look like a distribution are returned as-is.
func softmaxProbOfIndex(v []float32, idx int) float64 {
	if len(v) == 0 || idx < 0 || idx >= len(v) {
		return 0
	}
	var sum float64
	minV, maxV := v[0], v[0]
	for _, x := range v {
		sum += float64(x)
		minV = min(minV, x)
		maxV = max(maxV, x)
	}
	if sum > 0.99 && sum < 1.01 && minV >= 0 && maxV <= 1 {
		return float64(v[idx])
	}

	var denom float64
	for _, x := range v {
		denom += math.Exp(float64(x - maxV))
	}
	if denom == 0 {
		return 0
	}
	return math.Exp(float64(v[idx]-maxV)) / denom
}

// CTCCollapse removes repeated consecutive indices and blanks, returning collapsed sequence and probs.
func CTCCollapse(indices []int, probs []float64, blank int) ([]int, []float64) {
	outIdx := make([]int, 0, len(indices))
	outProb := make([]float64, 0, len(probs))
	prev := -1
	for i, idx := range indices {
		if idx == blank {
			prev = idx
			continue
		}
		if idx == prev {
			continue
		}
		outIdx = append(outIdx, idx)
		if i < len(probs) {
			outProb = append(outProb, probs[i])
		} else {
			outProb = append(outProb, 0)
		}
		prev = idx
	}
	return outIdx, outProb
}

// squeezeTrailing drops trailing singleton dimensions beyond rank 3.
func squeezeTrailing(shape []int64) []int64 {
	dims := append([]int64(nil), shape...)
	for len(dims) > 3 && dims[len(dims)-1] == 1 {
		dims = dims[:len(dims)-1]
	}
	return dims
}

// classesFirst guesses whether logits are laid out [N, C, T] by matching the
// expected class count against the two inner dimensions.
func classesFirst(shape []int64, classes int) bool {
	dims := squeezeTrailing(shape)
	if len(dims) < 3 {
		return false
	}
	if int(dims[2]) == classes {
		return false
	}
	return int(dims[1]) == classes
}

// DecodeCTCGreedy decodes logits with CTC greedy decoding.
// data layout can be [N, T, C] or [N, C, T]; specify classesFirst=true for [N,C,T].
func DecodeCTCGreedy(logits []float32, shape []int64, blank int, classesFirst bool) []DecodedSequence {
	if len(shape) < 3 {
		return nil
	}
	dims := squeezeTrailing(shape)
	n := int(dims[0])
	if n <= 0 {
		return nil
	}
	tDim, cDim := int(dims[1]), int(dims[2])
	if classesFirst {
		tDim, cDim = cDim, tDim
	}
	if tDim <= 0 || cDim <= 0 || len(logits) < n*tDim*cDim {
		return nil
	}

	out := make([]DecodedSequence, n)
	perBatch := tDim * cDim
	cls := make([]float32, cDim)
	for b := range n {
		start := b * perBatch
		indices := make([]int, tDim)
		probs := make([]float64, tDim)
		for t := range tDim {
			row := cls
			if classesFirst {
				for k := range cDim {
					row[k] = logits[start+k*tDim+t]
				}
			} else {
				off := start + t*cDim
				row = logits[off : off+cDim]
			}
			idx, _ := argmax(row)
			indices[t] = idx
			probs[t] = softmaxProbOfIndex(row, idx)
		}
		collIdx, collProb := CTCCollapse(indices, probs, blank)
		out[b] = DecodedSequence{Indices: indices, Probs: probs, Collapsed: collIdx, CollapsedProb: collProb}
	}
	return out
}

// SequenceConfidence returns the average of per-character probabilities; 0 if empty.
func SequenceConfidence(charProbs []float64) float64 {
	if len(charProbs) == 0 {
		return 0
	}
	var s float64
	for _, p := range charProbs {
		s += p
	}
	return s / float64(len(charProbs))
}
