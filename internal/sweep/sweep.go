// SPDX-License-Identifier: MIT

// Package sweep generates exponential sine sweeps and their paired
// inverse filters, the excitation signals used for impulse response
// measurement. It also provides white and pink noise signals for
// level calibration before a measurement run.
package sweep

import (
	"errors"
	"math"
)

// Errors returned by spec validation.
var (
	ErrInvalidFrequency  = errors.New("sweep: frequency must be positive")
	ErrFrequencyOrder    = errors.New("sweep: start frequency must be below end frequency")
	ErrNyquistExceeded   = errors.New("sweep: end frequency must not exceed half the sample rate")
	ErrInvalidDuration   = errors.New("sweep: duration must be positive")
	ErrInvalidSampleRate = errors.New("sweep: sample rate must be positive")
	ErrInvalidAmplitude  = errors.New("sweep: amplitude must be in (0, 1]")
)

// Spec describes one excitation sweep. It is immutable once constructed;
// identical specs always generate bit-identical signals.
type Spec struct {
	StartFreq  float64 // start frequency in Hz
	EndFreq    float64 // end frequency in Hz
	Duration   float64 // sweep duration in seconds
	SampleRate float64 // sample rate in Hz
	Amplitude  float64 // peak amplitude in (0, 1]
}

// Validate checks the spec against its invariants:
// 0 < start < end <= Nyquist, duration > 0, amplitude in (0, 1].
func (s Spec) Validate() error {
	if s.StartFreq <= 0 || s.EndFreq <= 0 {
		return ErrInvalidFrequency
	}

	if s.StartFreq >= s.EndFreq {
		return ErrFrequencyOrder
	}

	if s.SampleRate <= 0 {
		return ErrInvalidSampleRate
	}

	if s.EndFreq > s.SampleRate/2 {
		return ErrNyquistExceeded
	}

	if s.Duration <= 0 {
		return ErrInvalidDuration
	}

	if s.Amplitude <= 0 || s.Amplitude > 1 {
		return ErrInvalidAmplitude
	}

	return nil
}

// SampleCount returns the number of samples the sweep will occupy.
func (s Spec) SampleCount() int {
	return int(math.Round(s.Duration * s.SampleRate))
}

// Sweep is the generated excitation signal.
type Sweep struct {
	Spec    Spec
	Samples []float64
}

// InverseFilter is the time-reversed, amplitude-equalized counterpart of a
// Sweep. Convolving a sweep with its inverse filter yields a Dirac-like
// impulse at offset len(Samples)-1.
type InverseFilter struct {
	Spec    Spec
	Samples []float64
}

// Fade ramps applied to the generated sweep. An abrupt sweep start leaks
// low-frequency truncation energy across the whole deconvolved response,
// burying quiet reflections; raised-cosine ramps over the first two octaves
// and the last few milliseconds keep that leakage more than 40 dB below the
// impulse peak.
const (
	fadeInOctaves  = 2.0
	fadeInMaxFrac  = 0.25 // of the sweep duration
	fadeOutSeconds = 0.01
	fadeOutMaxFrac = 0.1
)

// Generate produces the exponential sweep and its paired inverse filter.
//
// The instantaneous frequency grows exponentially from StartFreq to EndFreq,
// giving constant energy per octave:
//
//	f(t) = f1 * exp(t/T * ln(f2/f1))
//
// Integrating the phase gives the generated signal:
//
//	x(t) = A * sin(2π * f1 * T / ln(f2/f1) * (exp(t/T * ln(f2/f1)) - 1))
//
// shaped by the fade ramps above. The call is deterministic and pure; the
// same spec always returns bit-identical sample sequences.
func Generate(spec Spec) (*Sweep, *InverseFilter, error) {
	if err := spec.Validate(); err != nil {
		return nil, nil, err
	}

	sw := generate(spec)

	return sw, inverse(sw), nil
}

func generate(spec Spec) *Sweep {
	n := spec.SampleCount()
	out := make([]float64, n)

	T := spec.Duration
	lnRatio := math.Log(spec.EndFreq / spec.StartFreq)

	octaveTime := T * math.Ln2 / lnRatio
	fadeIn := math.Min(fadeInOctaves*octaveTime, T*fadeInMaxFrac)
	fadeOut := math.Min(fadeOutSeconds, T*fadeOutMaxFrac)

	nIn := int(math.Round(fadeIn * spec.SampleRate))
	nOut := int(math.Round(fadeOut * spec.SampleRate))

	for i := range out {
		t := float64(i) / spec.SampleRate
		phase := 2 * math.Pi * spec.StartFreq * T / lnRatio * math.Expm1(t/T*lnRatio)
		v := spec.Amplitude * math.Sin(phase)

		if i < nIn {
			v *= 0.5 * (1 - math.Cos(math.Pi*float64(i)/float64(nIn)))
		}

		if k := n - 1 - i; k < nOut {
			v *= 0.5 * (1 - math.Cos(math.Pi*float64(k)/float64(nOut)))
		}

		out[i] = v
	}

	return &Sweep{Spec: spec, Samples: out}
}

// inverse builds the deconvolution filter from the generated sweep.
//
// The filter is the time-reversed sweep with a 6 dB/octave envelope that
// compensates for the sweep spending more time (hence energy) at low
// frequencies:
//
//	h_inv(t) = x(T-t) * f1/f(T-t)
//
// It is scaled by the envelope-weighted energy of the sweep itself, so
// convolving the sweep with its inverse yields a unit-amplitude impulse at
// offset n-1 regardless of drive level or fade shape.
func inverse(sw *Sweep) *InverseFilter {
	spec := sw.Spec
	n := len(sw.Samples)
	out := make([]float64, n)

	T := spec.Duration
	lnRatio := math.Log(spec.EndFreq / spec.StartFreq)

	var norm float64

	for i := range out {
		j := n - 1 - i

		t := float64(j) / spec.SampleRate
		fInst := spec.StartFreq * math.Exp(t/T*lnRatio)
		amp := spec.StartFreq / fInst

		out[i] = sw.Samples[j] * amp
		norm += sw.Samples[j] * sw.Samples[j] * amp
	}

	if norm > 0 {
		scale := 1.0 / norm
		for i := range out {
			out[i] *= scale
		}
	}

	return &InverseFilter{Spec: spec, Samples: out}
}
