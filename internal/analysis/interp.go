package analysis

import (
	"math"

	"gonum.org/v1/gonum/interp"
)

// ResampleLog resamples the magnitude curve onto a logarithmically spaced
// frequency axis from lo to hi inclusive. Interpolation is monotone cubic
// (Fritsch-Butland), so the resampled curve never overshoots between the
// sparse low-frequency bins. Both endpoints must lie inside the measured
// band. Phase is dropped.
func (fr *FrequencyResponse) ResampleLog(lo, hi float64, points int) (*FrequencyResponse, error) {
	if err := fr.validate(); err != nil {
		return nil, err
	}
	if len(fr.Frequencies) < 2 {
		return nil, ErrEmptyResponse
	}
	if points < 2 {
		return nil, ErrInvalidPoints
	}
	if lo <= 0 || hi <= lo || lo < fr.Frequencies[0] || hi > fr.Frequencies[len(fr.Frequencies)-1] {
		return nil, ErrInvalidRange
	}

	xs := make([]float64, len(fr.Frequencies))
	for i, f := range fr.Frequencies {
		xs[i] = math.Log10(f)
	}
	var fb interp.FritschButland
	if err := fb.Fit(xs, fr.MagnitudeDB); err != nil {
		return nil, err
	}

	out := &FrequencyResponse{
		SampleRate:  fr.SampleRate,
		Frequencies: make([]float64, points),
		MagnitudeDB: make([]float64, points),
	}
	logLo := math.Log10(lo)
	step := math.Log10(hi/lo) / float64(points-1)
	for k := range out.Frequencies {
		x := logLo + float64(k)*step
		out.Frequencies[k] = math.Pow(10, x)
		out.MagnitudeDB[k] = fb.Predict(x)
	}
	// keep the endpoints exact despite the log round trip
	out.Frequencies[0] = lo
	out.Frequencies[points-1] = hi
	return out, nil
}
