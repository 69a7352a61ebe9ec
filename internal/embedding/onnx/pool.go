package onnx

import "math"

// meanPool averages the token vectors of hidden ([seq*dim], row-major) over
// positions where mask is 1, then scales the result to unit length.
func meanPool(hidden []float32, mask []int64, dim int) []float64 {
	out := make([]float64, dim)
	var n float64
	for pos, m := range mask {
		if m == 0 {
			continue
		}
		row := hidden[pos*dim : (pos+1)*dim]
		for i, v := range row {
			out[i] += float64(v)
		}
		n++
	}
	if n == 0 {
		return out
	}
	var norm float64
	for i := range out {
		out[i] /= n
		norm += out[i] * out[i]
	}
	if norm = math.Sqrt(norm); norm > 0 {
		for i := range out {
			out[i] /= norm
		}
	}
	return out
}
