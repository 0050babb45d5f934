// SPDX-License-Identifier: MIT

package analysis

import (
	"errors"
	"math"
	"testing"

	"roomsweep/internal/deconv"
	"roomsweep/internal/fft"
	"roomsweep/internal/sweep"
)

func makeIR(rate float64, samples []float64) *deconv.ImpulseResponse {
	return &deconv.ImpulseResponse{
		SampleRate: rate,
		Samples:    samples,
		PeakIndex:  deconv.FindPeak(samples),
	}
}

func toneIR(n, bin int, rate float64) *deconv.ImpulseResponse {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * float64(bin) * float64(i) / float64(n))
	}
	return makeIR(rate, samples)
}

func argmax(values []float64) int {
	idx := 0
	for i, v := range values {
		if v > values[idx] {
			idx = i
		}
	}
	return idx
}

func TestFrequencyResponseKnownTone(t *testing.T) {
	const (
		n    = 1024
		bin  = 100
		rate = 48000.0
	)
	a := NewAnalyzer(fft.NewCache())
	fr, err := a.FrequencyResponse(toneIR(n, bin, rate), nil, false)
	if err != nil {
		t.Fatalf("FrequencyResponse: %v", err)
	}
	if got, want := len(fr.Frequencies), n/2; got != want {
		t.Fatalf("bins = %d, want %d", got, want)
	}
	if fr.Frequencies[0] != rate/n {
		t.Errorf("first frequency = %g, want %g", fr.Frequencies[0], rate/n)
	}
	if last := fr.Frequencies[len(fr.Frequencies)-1]; last != rate/2 {
		t.Errorf("last frequency = %g, want Nyquist %g", last, rate/2)
	}
	if fr.Phase != nil {
		t.Errorf("phase populated without being requested")
	}

	peak := argmax(fr.MagnitudeDB)
	if peak != bin-1 {
		t.Fatalf("peak at index %d, want %d", peak, bin-1)
	}
	if got, want := fr.Frequencies[peak], float64(bin)*rate/n; got != want {
		t.Errorf("peak frequency = %g, want %g", got, want)
	}
	wantDB := 20 * math.Log10(n/2.0)
	if d := math.Abs(fr.MagnitudeDB[peak] - wantDB); d > 0.01 {
		t.Errorf("peak magnitude = %g dB, want %g", fr.MagnitudeDB[peak], wantDB)
	}
	for i, v := range fr.MagnitudeDB {
		if i != peak && v > -150 {
			t.Fatalf("bin %d = %g dB, want below -150 for an exact-bin tone", i, v)
		}
	}
}

func TestFrequencyResponseWindowed(t *testing.T) {
	a := NewAnalyzer(fft.NewCache())
	ir := toneIR(1024, 100, 48000)

	fr, err := a.FrequencyResponse(ir, Hann(1024), false)
	if err != nil {
		t.Fatalf("FrequencyResponse: %v", err)
	}
	peak := argmax(fr.MagnitudeDB)
	if peak != 99 {
		t.Fatalf("windowed peak at index %d, want 99", peak)
	}
	// the Hann window has coherent gain 0.5
	wantDB := 20 * math.Log10(1024.0/4.0)
	if d := math.Abs(fr.MagnitudeDB[peak] - wantDB); d > 0.1 {
		t.Errorf("windowed peak = %g dB, want %g", fr.MagnitudeDB[peak], wantDB)
	}

	// a shorter window bounds the transform length
	short, err := a.FrequencyResponse(ir, Hann(512), false)
	if err != nil {
		t.Fatalf("FrequencyResponse short window: %v", err)
	}
	if got, want := len(short.Frequencies), 256; got != want {
		t.Errorf("short window bins = %d, want %d", got, want)
	}
}

func TestFrequencyResponsePhase(t *testing.T) {
	a := NewAnalyzer(fft.NewCache())
	fr, err := a.FrequencyResponse(toneIR(1024, 100, 48000), nil, true)
	if err != nil {
		t.Fatalf("FrequencyResponse: %v", err)
	}
	if len(fr.Phase) != len(fr.Frequencies) {
		t.Fatalf("phase length = %d, want %d", len(fr.Phase), len(fr.Frequencies))
	}
	// the sine's coefficient at its own bin is purely -i
	if d := math.Abs(fr.Phase[99] + math.Pi/2); d > 1e-6 {
		t.Errorf("phase at peak = %g, want -pi/2", fr.Phase[99])
	}
}

func TestFrequencyResponseErrors(t *testing.T) {
	a := NewAnalyzer(fft.NewCache())
	tests := []struct {
		name string
		ir   *deconv.ImpulseResponse
		want error
	}{
		{"nil", nil, ErrEmptyResponse},
		{"empty", makeIR(48000, nil), ErrEmptyResponse},
		{"zero rate", makeIR(0, []float64{1, 0, 0}), ErrInvalidRate},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := a.FrequencyResponse(tc.ir, nil, false); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPipelineDeterministic(t *testing.T) {
	samples := sweep.WhiteNoise(4096, 0.5, 7)
	for i := range samples {
		samples[i] *= math.Exp(-3 * float64(i) / 4096)
	}
	ir := makeIR(48000, samples)
	win := WindowBuilder{
		Left: ShapeTukey, LeftWidth: 256,
		Right: ShapeTukey, RightWidth: 1024,
		Width: 4096,
	}.Build()

	a := NewAnalyzer(fft.NewCache())
	run := func() *FrequencyResponse {
		fr, err := a.FrequencyResponse(ir, win, false)
		if err != nil {
			t.Fatalf("FrequencyResponse: %v", err)
		}
		sm, err := fr.Smooth(3)
		if err != nil {
			t.Fatalf("Smooth: %v", err)
		}
		rs, err := sm.ResampleLog(100, 20000, 128)
		if err != nil {
			t.Fatalf("ResampleLog: %v", err)
		}
		return rs
	}

	first := run()
	second := run()
	for i := range first.Frequencies {
		if first.Frequencies[i] != second.Frequencies[i] {
			t.Fatalf("frequency %d differs between runs", i)
		}
		if first.MagnitudeDB[i] != second.MagnitudeDB[i] {
			t.Fatalf("magnitude %d differs between runs", i)
		}
	}
}

func BenchmarkFrequencyResponse(b *testing.B) {
	a := NewAnalyzer(fft.NewCache(8192))
	ir := toneIR(8192, 500, 48000)
	b.ReportAllocs()
	for n := 0; n < b.N; n++ {
		if _, err := a.FrequencyResponse(ir, nil, false); err != nil {
			b.Fatal(err)
		}
	}
}
