package sweep

import "math/rand"

// WhiteNoise returns n samples of uniformly distributed noise in
// [-amplitude, amplitude]. The same seed always yields the same sequence.
func WhiteNoise(n int, amplitude float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)

	for i := range out {
		out[i] = amplitude * (2*rng.Float64() - 1)
	}

	return out
}

// PinkNoise returns n samples of 1/f noise produced by running white noise
// through Paul Kellet's economy three-pole filter. The output is not
// re-normalized; its peaks can exceed the white-noise amplitude.
func PinkNoise(n int, amplitude float64, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)

	var b0, b1, b2 float64

	for i := range out {
		white := amplitude * (2*rng.Float64() - 1)

		b0 = 0.99765*b0 + white*0.0990460
		b1 = 0.96300*b1 + white*0.2965164
		b2 = 0.57000*b2 + white*1.0526913

		out[i] = b0 + b1 + b2 + white*0.1848
	}

	return out
}
