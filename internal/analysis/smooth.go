package analysis

import (
	"math"
	"sort"
)

// Smooth averages the magnitude curve over fractional-octave bands: each
// output point is the mean of every input point within 1/(2*fraction) of an
// octave on either side. fraction 1 smooths over whole octaves, 3 over
// third octaves. Averaging the logarithmic magnitudes makes each band the
// geometric mean of the underlying spectrum. Phase is dropped.
func (fr *FrequencyResponse) Smooth(fraction int) (*FrequencyResponse, error) {
	if err := fr.validate(); err != nil {
		return nil, err
	}
	if fraction <= 0 {
		return nil, ErrInvalidFraction
	}
	halfBand := math.Pow(2, 1.0/(2.0*float64(fraction)))
	out := &FrequencyResponse{
		SampleRate:  fr.SampleRate,
		Frequencies: append([]float64(nil), fr.Frequencies...),
		MagnitudeDB: make([]float64, len(fr.MagnitudeDB)),
	}
	for i, f := range fr.Frequencies {
		lo := sort.SearchFloat64s(fr.Frequencies, f/halfBand)
		hi := sort.Search(len(fr.Frequencies), func(j int) bool {
			return fr.Frequencies[j] > f*halfBand
		})
		if lo >= hi {
			out.MagnitudeDB[i] = fr.MagnitudeDB[i]
			continue
		}
		sum := 0.0
		for j := lo; j < hi; j++ {
			sum += fr.MagnitudeDB[j]
		}
		out.MagnitudeDB[i] = sum / float64(hi-lo)
	}
	return out, nil
}
