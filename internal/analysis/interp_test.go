package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestResampleLogLinearExact(t *testing.T) {
	// curves that are straight lines against log frequency come back exact
	fr := &FrequencyResponse{SampleRate: 48000}
	for i := 0; i < 400; i++ {
		f := 20 + 50*float64(i)
		fr.Frequencies = append(fr.Frequencies, f)
		fr.MagnitudeDB = append(fr.MagnitudeDB, 3*math.Log10(f)-7)
	}
	rs, err := fr.ResampleLog(100, 10000, 64)
	if err != nil {
		t.Fatalf("ResampleLog: %v", err)
	}
	if rs.Frequencies[0] != 100 || rs.Frequencies[63] != 10000 {
		t.Fatalf("endpoints = %g..%g, want 100..10000", rs.Frequencies[0], rs.Frequencies[63])
	}
	for k, f := range rs.Frequencies {
		want := 3*math.Log10(f) - 7
		if math.Abs(rs.MagnitudeDB[k]-want) > 1e-9 {
			t.Fatalf("point %d (%g Hz) = %g, want %g", k, f, rs.MagnitudeDB[k], want)
		}
	}
}

func TestResampleLogMonotone(t *testing.T) {
	// a hard step must come back without overshoot on either plateau
	fr := &FrequencyResponse{SampleRate: 48000}
	for i := 0; i <= 48; i++ {
		fr.Frequencies = append(fr.Frequencies, 100*math.Pow(2, float64(i)/12))
		if i < 24 {
			fr.MagnitudeDB = append(fr.MagnitudeDB, 0)
		} else {
			fr.MagnitudeDB = append(fr.MagnitudeDB, 10)
		}
	}
	rs, err := fr.ResampleLog(100, 1600, 97)
	if err != nil {
		t.Fatalf("ResampleLog: %v", err)
	}
	for k, v := range rs.MagnitudeDB {
		if v < -1e-9 || v > 10+1e-9 {
			t.Fatalf("point %d = %g, overshoots the step", k, v)
		}
		if k > 0 && v < rs.MagnitudeDB[k-1]-1e-9 {
			t.Fatalf("point %d = %g, not monotone", k, v)
		}
	}
}

func TestResampleLogSpacing(t *testing.T) {
	fr := flatResponse(400, -3)
	rs, err := fr.ResampleLog(200, 12800, 21)
	if err != nil {
		t.Fatalf("ResampleLog: %v", err)
	}
	ratio := rs.Frequencies[1] / rs.Frequencies[0]
	for k := 2; k < len(rs.Frequencies); k++ {
		r := rs.Frequencies[k] / rs.Frequencies[k-1]
		if math.Abs(r-ratio) > 1e-9 {
			t.Fatalf("spacing ratio at %d = %g, want %g", k, r, ratio)
		}
	}
	for k, v := range rs.MagnitudeDB {
		if math.Abs(v+3) > 1e-9 {
			t.Fatalf("point %d = %g, want flat -3", k, v)
		}
	}
}

func TestResampleLogDropsPhase(t *testing.T) {
	fr := flatResponse(100, 0)
	fr.Phase = make([]float64, 100)
	rs, err := fr.ResampleLog(200, 5000, 16)
	if err != nil {
		t.Fatalf("ResampleLog: %v", err)
	}
	if rs.Phase != nil {
		t.Error("phase should be dropped by resampling")
	}
}

func TestResampleLogValidation(t *testing.T) {
	fr := flatResponse(100, 0) // spans 100..5050 Hz
	tests := []struct {
		name    string
		fr      *FrequencyResponse
		lo, hi  float64
		points  int
		want    error
	}{
		{"below band", fr, 50, 5000, 16, ErrInvalidRange},
		{"above band", fr, 200, 6000, 16, ErrInvalidRange},
		{"inverted", fr, 5000, 200, 16, ErrInvalidRange},
		{"one point", fr, 200, 5000, 1, ErrInvalidPoints},
		{"empty", &FrequencyResponse{}, 200, 5000, 16, ErrEmptyResponse},
		{
			"single bin",
			&FrequencyResponse{Frequencies: []float64{100}, MagnitudeDB: []float64{0}},
			100, 100, 16, ErrEmptyResponse,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.fr.ResampleLog(tc.lo, tc.hi, tc.points); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}
