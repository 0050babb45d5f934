// SPDX-License-Identifier: MIT

// Package analysis turns measured impulse responses into display-ready
// frequency response curves and room acoustic metrics.
package analysis

import (
	"errors"
	"math"
	"math/cmplx"

	"roomsweep/internal/deconv"
	"roomsweep/internal/fft"
	"roomsweep/pkg/bitint"
)

var (
	ErrEmptyResponse   = errors.New("analysis: impulse response has no samples")
	ErrInvalidRate     = errors.New("analysis: sample rate must be positive")
	ErrInvalidFraction = errors.New("analysis: smoothing fraction must be positive")
	ErrInvalidRange    = errors.New("analysis: resample range outside the measured band")
	ErrInvalidPoints   = errors.New("analysis: resample needs at least two points")
	ErrLengthMismatch  = errors.New("analysis: frequency and magnitude lengths differ")
	ErrFrequencyOrder  = errors.New("analysis: frequencies must be positive and ascending")
)

// DBFloor bounds logarithmic magnitudes from below so silent bins do not
// collapse to -Inf.
const DBFloor = -200.0

// FrequencyResponse is a magnitude curve over ascending frequencies. Phase
// is populated only when requested and dropped by operations that cannot
// preserve it.
type FrequencyResponse struct {
	SampleRate  float64   `json:"sample_rate"`
	Frequencies []float64 `json:"frequencies_hz"`
	MagnitudeDB []float64 `json:"magnitude_db"`
	Phase       []float64 `json:"phase_rad,omitempty"` // radians, nil unless requested
}

// Analyzer derives frequency-domain curves from impulse responses.
// Transforms share plans through the cache, so one Analyzer serves repeated
// analyses at the same lengths without re-planning.
type Analyzer struct {
	cache *fft.Cache
}

func NewAnalyzer(cache *fft.Cache) *Analyzer {
	if cache == nil {
		cache = fft.NewCache()
	}
	return &Analyzer{cache: cache}
}

// FrequencyResponse transforms the impulse response into a magnitude curve.
// A non-nil window is applied sample-wise first and also bounds how much of
// the response is transformed. The DC bin is omitted so every returned
// frequency is positive; the curve ends at Nyquist.
func (a *Analyzer) FrequencyResponse(ir *deconv.ImpulseResponse, window []float64, withPhase bool) (*FrequencyResponse, error) {
	if ir == nil || len(ir.Samples) == 0 {
		return nil, ErrEmptyResponse
	}
	if ir.SampleRate <= 0 {
		return nil, ErrInvalidRate
	}
	n := len(ir.Samples)
	if len(window) > 0 && len(window) < n {
		n = len(window)
	}
	size := bitint.NextPowerOfTwo(n)
	buf := make([]float64, size)
	for i := 0; i < n; i++ {
		v := ir.Samples[i]
		if window != nil {
			v *= window[i]
		}
		buf[i] = v
	}
	plan := a.cache.Get(size)
	coeff := plan.Coefficients(nil, buf)

	bins := len(coeff) - 1
	out := &FrequencyResponse{
		SampleRate:  ir.SampleRate,
		Frequencies: make([]float64, bins),
		MagnitudeDB: make([]float64, bins),
	}
	if withPhase {
		out.Phase = make([]float64, bins)
	}
	for i := 1; i < len(coeff); i++ {
		out.Frequencies[i-1] = plan.Freq(i) * ir.SampleRate
		out.MagnitudeDB[i-1] = magnitudeDB(cmplx.Abs(coeff[i]))
		if withPhase {
			out.Phase[i-1] = cmplx.Phase(coeff[i])
		}
	}
	return out, nil
}

func magnitudeDB(mag float64) float64 {
	if mag <= 0 {
		return DBFloor
	}
	return math.Max(20.0*math.Log10(mag), DBFloor)
}

func (fr *FrequencyResponse) validate() error {
	if fr == nil || len(fr.Frequencies) == 0 {
		return ErrEmptyResponse
	}
	if len(fr.MagnitudeDB) != len(fr.Frequencies) {
		return ErrLengthMismatch
	}
	prev := 0.0
	for _, f := range fr.Frequencies {
		if f <= prev {
			return ErrFrequencyOrder
		}
		prev = f
	}
	return nil
}
