package sweep

import "math"

// Exponential volume taper constants, giving roughly 60 dB of usable range
// across the fader (https://www.dr-lex.be/info-stuff/volumecontrols.html).
const (
	taperA = 0.001
	taperB = 6.908
)

// VolumeToAmplitude maps a fader position in [0, 1] to a linear sample
// amplitude. The taper is exponential above 0.1 and linearized below it so
// the fader reaches true silence at zero. Inputs outside [0, 1] are clamped.
func VolumeToAmplitude(volume float64) float64 {
	if volume <= 0 {
		return 0
	}

	if volume > 1 {
		volume = 1
	}

	if volume < 0.1 {
		return volume * 10 * taperA * math.Exp(0.1*taperB)
	}

	return taperA * math.Exp(taperB*volume)
}

// DBFS converts a linear amplitude to decibels relative to full scale.
// Zero amplitude returns -Inf.
func DBFS(v float64) float64 {
	return 20 * math.Log10(math.Abs(v))
}
