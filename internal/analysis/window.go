package analysis

import "math"

// Shape selects the taper applied to a window flank.
type Shape string

const (
	ShapeHann  Shape = "hann"
	ShapeTukey Shape = "tukey"
)

// DefaultTukeyAlpha is the flank fraction used when a Tukey window is
// requested without an explicit alpha.
const DefaultTukeyAlpha = 0.25

// Hann returns a Hann window of the given width.
func Hann(width int) []float64 {
	if width <= 0 {
		return nil
	}
	out := make([]float64, width)
	for i := range out {
		s := math.Sin(math.Pi * float64(i) / float64(width))
		out[i] = s * s
	}
	return out
}

// Tukey returns a Tukey window of the given width. The first and last
// alpha/2 fraction of the samples follow a raised cosine, the middle is
// flat. alpha <= 0 degenerates to a rectangular window.
func Tukey(width int, alpha float64) []float64 {
	if width <= 0 {
		return nil
	}
	lower := alpha * float64(width) / 2.0
	upper := float64(width) / 2.0
	ramp := func(n float64) float64 {
		if n < lower {
			return 0.5 * (1.0 - math.Cos(2.0*math.Pi*n/(alpha*float64(width))))
		}
		return 1.0
	}
	out := make([]float64, width)
	for i := range out {
		n := float64(i)
		if n > upper {
			n = float64(width) - n
		}
		out[i] = ramp(n)
	}
	return out
}

// WindowBuilder assembles an asymmetric two-sided window: a rising flank on
// the left, a flat middle, and a falling flank on the right. Applied to an
// impulse response it isolates the direct sound and early reflections from
// noise in the tail.
type WindowBuilder struct {
	Left       Shape
	Right      Shape
	LeftWidth  int
	RightWidth int
	Width      int
	Alpha      float64
}

// Build renders the window. Each flank is the matching half of a symmetric
// window twice its width; everything between the flanks is flat. The right
// flank wins where the two overlap.
func (b WindowBuilder) Build() []float64 {
	if b.Width <= 0 {
		return nil
	}
	alpha := b.Alpha
	if alpha <= 0 {
		alpha = DefaultTukeyAlpha
	}
	out := make([]float64, b.Width)
	for i := range out {
		out[i] = 1.0
	}
	left := flank(b.Left, b.LeftWidth, alpha)
	for i := 0; i < b.LeftWidth && i < b.Width; i++ {
		out[i] = left[i]
	}
	right := flank(b.Right, b.RightWidth, alpha)
	start := b.Width - b.RightWidth
	for i := 0; i < b.RightWidth; i++ {
		if j := start + i; j >= 0 && j < b.Width {
			out[j] = right[b.RightWidth+i]
		}
	}
	return out
}

func flank(shape Shape, width int, alpha float64) []float64 {
	if width <= 0 {
		return nil
	}
	if shape == ShapeTukey {
		return Tukey(2*width, alpha)
	}
	return Hann(2 * width)
}
