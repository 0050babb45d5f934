package deconv

import "math"

// Correlate computes the full cross-correlation of a and b. The result has
// length len(a) + len(b) - 1, and output index k corresponds to lag
// k - (len(b) - 1).
//
// Cross-correlation is convolution with the second signal time-reversed:
// corr(a, b) = conv(a, reverse(b)).
func (d *Deconvolver) Correlate(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}

	rev := make([]float64, len(b))
	for i := range b {
		rev[i] = b[len(b)-1-i]
	}

	return d.convolve(a, rev)
}

// CorrelateNormalized computes cross-correlation scaled by the product of
// the L2 norms of a and b, producing values in [-1, 1]. The peak value
// serves as a confidence measure for latency detection.
func (d *Deconvolver) CorrelateNormalized(a, b []float64) ([]float64, error) {
	out, err := d.Correlate(a, b)
	if err != nil {
		return nil, err
	}

	norm := l2Norm(a) * l2Norm(b)
	if norm == 0 {
		return out, nil
	}

	for i := range out {
		out[i] /= norm
	}

	return out, nil
}

// LagFromIndex converts an index into a correlation of a and b into the lag
// of b within a, in samples. lenB is the length of the second signal.
func LagFromIndex(idx, lenB int) int {
	return idx - (lenB - 1)
}

func l2Norm(x []float64) float64 {
	var sum float64
	for _, v := range x {
		sum += v * v
	}

	return math.Sqrt(sum)
}
