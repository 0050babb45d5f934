// SPDX-License-Identifier: MIT

// Package deconv recovers impulse responses from recorded sweep responses
// by frequency-domain convolution with the sweep's inverse filter.
package deconv

import (
	"errors"
	"fmt"

	"roomsweep/internal/fft"
	"roomsweep/internal/sweep"
	"roomsweep/pkg/bitint"
)

// Errors returned by the deconvolution stage.
var (
	ErrInsufficientSamples = errors.New("deconv: recorded buffer shorter than required")
	ErrEmptyInput          = errors.New("deconv: input signal is empty")
)

// ImpulseResponse is the result of deconvolving a recording against an
// inverse filter. It is read-only after creation.
type ImpulseResponse struct {
	SampleRate float64   // Hz
	Samples    []float64 // time-ordered amplitudes
	Offset     int       // position of Samples[0] relative to the deconvolution origin, in samples
	PeakIndex  int       // index of the strongest sample within Samples

	// LatencyCalibrated reports whether the recording was aligned against a
	// loopback reference before deconvolution. Set by the capture session.
	LatencyCalibrated bool
}

// Duration returns the time span covered by the response.
func (ir *ImpulseResponse) Duration() float64 {
	return float64(len(ir.Samples)) / ir.SampleRate
}

// Trim returns a copy of the response cut to pre samples before the detected
// peak and tail samples after it. Bounds are clamped to the available data;
// offset metadata is adjusted so trimmed and full responses stay comparable.
func (ir *ImpulseResponse) Trim(pre, tail int) *ImpulseResponse {
	start := ir.PeakIndex - pre
	if start < 0 {
		start = 0
	}

	end := ir.PeakIndex + tail + 1
	if end > len(ir.Samples) {
		end = len(ir.Samples)
	}

	samples := make([]float64, end-start)
	copy(samples, ir.Samples[start:end])

	return &ImpulseResponse{
		SampleRate:        ir.SampleRate,
		Samples:           samples,
		Offset:            ir.Offset + start,
		PeakIndex:         ir.PeakIndex - start,
		LatencyCalibrated: ir.LatencyCalibrated,
	}
}

// FindPeak returns the index of the sample with the largest magnitude,
// or -1 for an empty slice.
func FindPeak(x []float64) int {
	idx := -1
	peak := 0.0

	for i, v := range x {
		if v < 0 {
			v = -v
		}

		if idx < 0 || v > peak {
			peak = v
			idx = i
		}
	}

	return idx
}

// Deconvolver turns recorded sweep responses into impulse responses. It
// shares one FFT plan cache across measurements; transform lengths repeat
// between runs with identical sweep specs, so the plans are built once.
type Deconvolver struct {
	cache *fft.Cache
	slack int
}

// New creates a Deconvolver. slack is the alignment tolerance in samples: a
// recording may be up to slack samples shorter than the sweep before it is
// rejected as unusable.
func New(cache *fft.Cache, slack int) *Deconvolver {
	if slack < 0 {
		slack = 0
	}

	return &Deconvolver{cache: cache, slack: slack}
}

// Deconvolve convolves the recorded response with the inverse filter in the
// frequency domain and returns the resulting impulse response.
//
// Both signals are zero-padded to the next power of two at or above their
// combined length minus one, which prevents circular wraparound. The inverse
// transform is divided by the transform length, so the output does not
// depend on the padding size chosen.
func (d *Deconvolver) Deconvolve(recorded []float64, inv *sweep.InverseFilter) (*ImpulseResponse, error) {
	need := len(inv.Samples) - d.slack
	if len(recorded) < need {
		return nil, fmt.Errorf("%w: got %d samples, need at least %d",
			ErrInsufficientSamples, len(recorded), need)
	}

	out, err := d.convolve(recorded, inv.Samples)
	if err != nil {
		return nil, err
	}

	return &ImpulseResponse{
		SampleRate: inv.Spec.SampleRate,
		Samples:    out,
		PeakIndex:  FindPeak(out),
	}, nil
}

// convolve computes the full linear convolution of a and b. The result has
// length len(a) + len(b) - 1.
func (d *Deconvolver) convolve(a, b []float64) ([]float64, error) {
	if len(a) == 0 || len(b) == 0 {
		return nil, ErrEmptyInput
	}

	n := len(a) + len(b) - 1
	size := bitint.NextPowerOfTwo(n)
	plan := d.cache.Get(size)

	pa := make([]float64, size)
	copy(pa, a)

	pb := make([]float64, size)
	copy(pb, b)

	fa := plan.Coefficients(nil, pa)
	fb := plan.Coefficients(nil, pb)

	for i := range fa {
		fa[i] *= fb[i]
	}

	out := plan.Sequence(nil, fa)

	scale := 1 / float64(size)
	for i := range out {
		out[i] *= scale
	}

	return out[:n], nil
}
