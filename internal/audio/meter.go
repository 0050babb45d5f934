package audio

import (
	"math"
	"sync/atomic"

	"roomsweep/internal/sweep"
)

// peakDecay is the per-block multiplier applied to the held peak, roughly
// one second of hold at the default period size.
const peakDecay = 0.95

// LevelSnapshot is one reading of the input level meter.
type LevelSnapshot struct {
	RMS     float64
	RMSDB   float64
	Peak    float64
	PeakDB  float64
	Clipped uint64
}

// LoudnessMeter tracks the input RMS over an exponential window plus a
// decaying peak hold. update runs inside the driver callback and touches
// atomics only; Level may be read from any goroutine.
type LoudnessMeter struct {
	alpha   float64       // per-block smoothing factor for the RMS window
	meanSq  atomic.Uint64 // float64 bits
	peak    atomic.Uint64 // float64 bits
	clipped atomic.Uint64
}

// NewLoudnessMeter sizes the RMS window to roughly window seconds at the
// given stream geometry.
func NewLoudnessMeter(sampleRate float64, framesPerBuffer int, window float64) *LoudnessMeter {
	alpha := 1.0
	if blocks := window * sampleRate / float64(framesPerBuffer); blocks > 1 {
		alpha = 1.0 - math.Exp(-1.0/blocks)
	}
	return &LoudnessMeter{alpha: alpha}
}

// update folds one interleaved period into the running measurements.
func (m *LoudnessMeter) update(in []float32) {
	if len(in) == 0 {
		return
	}
	var sum, peak float64
	var clipped uint64
	for _, s := range in {
		v := float64(s)
		if v < 0 {
			v = -v
		}
		if v > peak {
			peak = v
		}
		if v >= 1.0 {
			clipped++
		}
		sum += v * v
	}
	meanSq := sum / float64(len(in))

	for {
		old := m.meanSq.Load()
		cur := math.Float64frombits(old)
		next := cur + m.alpha*(meanSq-cur)
		if m.meanSq.CompareAndSwap(old, math.Float64bits(next)) {
			break
		}
	}
	for {
		old := m.peak.Load()
		next := math.Float64frombits(old) * peakDecay
		if peak > next {
			next = peak
		}
		if m.peak.CompareAndSwap(old, math.Float64bits(next)) {
			break
		}
	}
	if clipped > 0 {
		m.clipped.Add(clipped)
	}
}

// Level returns the current meter reading.
func (m *LoudnessMeter) Level() LevelSnapshot {
	rms := math.Sqrt(math.Float64frombits(m.meanSq.Load()))
	peak := math.Float64frombits(m.peak.Load())
	return LevelSnapshot{
		RMS:     rms,
		RMSDB:   sweep.DBFS(rms),
		Peak:    peak,
		PeakDB:  sweep.DBFS(peak),
		Clipped: m.clipped.Load(),
	}
}

// Reset clears the window, the held peak and the clip counter.
func (m *LoudnessMeter) Reset() {
	m.meanSq.Store(0)
	m.peak.Store(0)
	m.clipped.Store(0)
}
