package sweep

import (
	"math"
	"testing"
)

func TestWhiteNoiseDeterministic(t *testing.T) {
	a := WhiteNoise(1024, 0.5, 42)
	b := WhiteNoise(1024, 0.5, 42)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs for identical seed: %v vs %v", i, a[i], b[i])
		}
	}

	c := WhiteNoise(1024, 0.5, 43)

	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}

	if same {
		t.Error("different seeds produced identical noise")
	}
}

func TestWhiteNoiseBounds(t *testing.T) {
	const amplitude = 0.25

	samples := WhiteNoise(10000, amplitude, 1)

	var sum float64
	for i, v := range samples {
		if math.Abs(v) > amplitude {
			t.Fatalf("sample %d = %v exceeds amplitude %v", i, v, amplitude)
		}

		sum += v
	}

	if mean := sum / float64(len(samples)); math.Abs(mean) > 0.02 {
		t.Errorf("mean = %v, want near zero", mean)
	}
}

func TestPinkNoiseDeterministic(t *testing.T) {
	a := PinkNoise(1024, 0.5, 42)
	b := PinkNoise(1024, 0.5, 42)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("sample %d differs for identical seed: %v vs %v", i, a[i], b[i])
		}
	}
}

// Pink noise concentrates energy at low frequencies, so successive samples
// change less, relative to overall level, than white noise from the same
// source.
func TestPinkNoiseSmoother(t *testing.T) {
	const (
		n         = 20000
		amplitude = 0.5
		seed      = 7
	)

	white := WhiteNoise(n, amplitude, seed)
	pink := PinkNoise(n, amplitude, seed)

	if rough(pink) >= rough(white) {
		t.Errorf("pink roughness %v >= white roughness %v", rough(pink), rough(white))
	}
}

// rough is the mean absolute first difference normalized by RMS level.
func rough(x []float64) float64 {
	var diff, sq float64

	for i := 1; i < len(x); i++ {
		diff += math.Abs(x[i] - x[i-1])
	}

	for _, v := range x {
		sq += v * v
	}

	rms := math.Sqrt(sq / float64(len(x)))

	return diff / float64(len(x)-1) / rms
}

func TestVolumeToAmplitude(t *testing.T) {
	if got := VolumeToAmplitude(0); got != 0 {
		t.Errorf("VolumeToAmplitude(0) = %v, want 0", got)
	}

	if got := VolumeToAmplitude(1); math.Abs(got-1) > 2e-3 {
		t.Errorf("VolumeToAmplitude(1) = %v, want ~1", got)
	}

	// The linear and exponential branches must meet at 0.1.
	below := VolumeToAmplitude(0.1 - 1e-12)
	above := VolumeToAmplitude(0.1)
	if math.Abs(below-above) > 1e-6 {
		t.Errorf("taper discontinuous at 0.1: %v vs %v", below, above)
	}

	// Monotone over the whole fader range.
	prev := 0.0
	for v := 0.01; v <= 1.0; v += 0.01 {
		got := VolumeToAmplitude(v)
		if got <= prev {
			t.Fatalf("taper not increasing at %v: %v <= %v", v, got, prev)
		}

		prev = got
	}

	// Out-of-range input clamps instead of panicking.
	if got := VolumeToAmplitude(-0.5); got != 0 {
		t.Errorf("VolumeToAmplitude(-0.5) = %v, want 0", got)
	}

	if got := VolumeToAmplitude(1.5); got != VolumeToAmplitude(1) {
		t.Errorf("VolumeToAmplitude(1.5) = %v, want clamp to full scale", got)
	}
}

func TestDBFS(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{1.0, 0},
		{0.5, -6.0205999},
		{0.1, -20},
		{-0.5, -6.0205999},
	}

	for _, tt := range tests {
		if got := DBFS(tt.in); math.Abs(got-tt.want) > 1e-6 {
			t.Errorf("DBFS(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}

	if got := DBFS(0); !math.IsInf(got, -1) {
		t.Errorf("DBFS(0) = %v, want -Inf", got)
	}
}
