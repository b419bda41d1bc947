package postprocess

import "github.com/chewxy/math32"

// Softmax turns logits into probabilities that sum to 1. The maximum is
// subtracted first so large logits do not overflow. An empty input returns nil.
func Softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	maxLogit := logits[0]
	for _, v := range logits[1:] {
		maxLogit = math32.Max(maxLogit, v)
	}

	out := make([]float32, len(logits))
	var sum float32
	for i, v := range logits {
		out[i] = math32.Exp(v - maxLogit)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
