// SPDX-License-Identifier: MIT
package sweep

import (
	"errors"
	"math"
	"testing"
)

func validSpec() Spec {
	return Spec{
		StartFreq:  100,
		EndFreq:    2000,
		Duration:   0.05,
		SampleRate: 8000,
		Amplitude:  0.5,
	}
}

func TestSpecValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Spec)
		wantErr error
	}{
		{"valid", func(s *Spec) {}, nil},
		{"zero start", func(s *Spec) { s.StartFreq = 0 }, ErrInvalidFrequency},
		{"negative start", func(s *Spec) { s.StartFreq = -20 }, ErrInvalidFrequency},
		{"zero end", func(s *Spec) { s.EndFreq = 0 }, ErrInvalidFrequency},
		{"start equals end", func(s *Spec) { s.StartFreq = 2000 }, ErrFrequencyOrder},
		{"start above end", func(s *Spec) { s.StartFreq = 3000 }, ErrFrequencyOrder},
		{"end above nyquist", func(s *Spec) { s.EndFreq = 4001 }, ErrNyquistExceeded},
		{"zero duration", func(s *Spec) { s.Duration = 0 }, ErrInvalidDuration},
		{"negative duration", func(s *Spec) { s.Duration = -1 }, ErrInvalidDuration},
		{"zero sample rate", func(s *Spec) { s.SampleRate = 0 }, ErrInvalidSampleRate},
		{"zero amplitude", func(s *Spec) { s.Amplitude = 0 }, ErrInvalidAmplitude},
		{"amplitude above one", func(s *Spec) { s.Amplitude = 1.5 }, ErrInvalidAmplitude},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := validSpec()
			tt.mutate(&spec)

			err := spec.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() = %v, want %v", err, tt.wantErr)
			}

			_, _, genErr := Generate(spec)
			if !errors.Is(genErr, tt.wantErr) {
				t.Errorf("Generate() error = %v, want %v", genErr, tt.wantErr)
			}
		})
	}
}

func TestSampleCount(t *testing.T) {
	tests := []struct {
		duration   float64
		sampleRate float64
		want       int
	}{
		{1.0, 48000, 48000},
		{0.5, 44100, 22050},
		{0.05, 8000, 400},
		{1.0 / 3.0, 48000, 16000},
	}

	for _, tt := range tests {
		spec := Spec{Duration: tt.duration, SampleRate: tt.sampleRate}
		if got := spec.SampleCount(); got != tt.want {
			t.Errorf("SampleCount(%v s @ %v Hz) = %d, want %d",
				tt.duration, tt.sampleRate, got, tt.want)
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	spec := validSpec()

	swA, invA, err := Generate(spec)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	swB, invB, err := Generate(spec)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(swA.Samples) != len(swB.Samples) {
		t.Fatalf("sweep lengths differ: %d vs %d", len(swA.Samples), len(swB.Samples))
	}

	for i := range swA.Samples {
		if swA.Samples[i] != swB.Samples[i] {
			t.Fatalf("sweep sample %d differs: %v vs %v", i, swA.Samples[i], swB.Samples[i])
		}

		if invA.Samples[i] != invB.Samples[i] {
			t.Fatalf("inverse sample %d differs: %v vs %v", i, invA.Samples[i], invB.Samples[i])
		}
	}
}

func TestGenerateShape(t *testing.T) {
	spec := validSpec()

	sw, inv, err := Generate(spec)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if want := spec.SampleCount(); len(sw.Samples) != want {
		t.Errorf("sweep length = %d, want %d", len(sw.Samples), want)
	}

	if len(inv.Samples) != len(sw.Samples) {
		t.Errorf("inverse length = %d, want %d", len(inv.Samples), len(sw.Samples))
	}

	if sw.Samples[0] != 0 {
		t.Errorf("first sample = %v, want 0", sw.Samples[0])
	}

	peak := 0.0
	for i, v := range sw.Samples {
		if math.Abs(v) > spec.Amplitude+1e-12 {
			t.Fatalf("sample %d = %v exceeds amplitude %v", i, v, spec.Amplitude)
		}

		if math.Abs(v) > peak {
			peak = math.Abs(v)
		}
	}

	if peak < 0.9*spec.Amplitude {
		t.Errorf("peak = %v, want close to amplitude %v", peak, spec.Amplitude)
	}
}

// convolve is a direct O(n*m) reference convolution for small test signals.
func convolve(a, b []float64) []float64 {
	out := make([]float64, len(a)+len(b)-1)

	for i, av := range a {
		for j, bv := range b {
			out[i+j] += av * bv
		}
	}

	return out
}

func TestRoundTripImpulse(t *testing.T) {
	spec := validSpec()

	sw, inv, err := Generate(spec)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	ir := convolve(sw.Samples, inv.Samples)

	peakIdx := 0
	peakVal := 0.0
	for i, v := range ir {
		if math.Abs(v) > peakVal {
			peakVal = math.Abs(v)
			peakIdx = i
		}
	}

	wantIdx := len(inv.Samples) - 1
	if peakIdx < wantIdx-1 || peakIdx > wantIdx+1 {
		t.Errorf("impulse peak at %d, want %d +/- 1", peakIdx, wantIdx)
	}

	// The inverse filter normalization makes the loopback impulse exactly
	// unit amplitude.
	if math.Abs(peakVal-1) > 1e-9 {
		t.Errorf("impulse peak = %v, want 1.0", peakVal)
	}

	var total, window float64
	for i, v := range ir {
		total += v * v

		if i >= peakIdx-160 && i <= peakIdx+160 {
			window += v * v
		}
	}

	if outside := total - window; outside > 0 {
		sidelobeDB := 10 * math.Log10(outside/(peakVal*peakVal))
		if sidelobeDB > -40 {
			t.Errorf("sidelobe energy = %.1f dB relative to peak, want <= -40 dB", sidelobeDB)
		}
	}

	avgEnergy := total / float64(len(ir))
	peakToAvgDB := 10 * math.Log10(peakVal*peakVal/avgEnergy)
	if peakToAvgDB < 15 {
		t.Errorf("peak-to-average ratio = %.1f dB, want >= 15 dB", peakToAvgDB)
	}
}

func TestRoundTripDriveIndependent(t *testing.T) {
	quiet := validSpec()
	quiet.Amplitude = 0.25

	loud := validSpec()
	loud.Amplitude = 0.8

	swQ, invQ, err := Generate(quiet)
	if err != nil {
		t.Fatalf("Generate(quiet) error = %v", err)
	}

	swL, invL, err := Generate(loud)
	if err != nil {
		t.Fatalf("Generate(loud) error = %v", err)
	}

	irQ := convolve(swQ.Samples, invQ.Samples)
	irL := convolve(swL.Samples, invL.Samples)

	for i := range irQ {
		if diff := math.Abs(irQ[i] - irL[i]); diff > 1e-9 {
			t.Fatalf("sample %d differs by %v between drive levels", i, diff)
		}
	}
}

func BenchmarkGenerate(b *testing.B) {
	spec := Spec{
		StartFreq:  20,
		EndFreq:    20000,
		Duration:   1.0,
		SampleRate: 48000,
		Amplitude:  0.5,
	}

	b.ReportAllocs()

	for n := 0; n < b.N; n++ {
		_, _, err := Generate(spec)
		if err != nil {
			b.Fatal(err)
		}
	}
}
