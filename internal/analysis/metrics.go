// SPDX-License-Identifier: MIT

package analysis

import (
	"math"

	"roomsweep/internal/deconv"
)

// RoomMetrics summarizes the acoustic figures derived from one impulse
// response. Reverberation times are in seconds, clarity values in dB, and
// definition values are energy ratios in [0, 1].
type RoomMetrics struct {
	RT60       float64 `json:"rt60"`
	EDT        float64 `json:"edt"`
	T20        float64 `json:"t20"`
	T30        float64 `json:"t30"`
	C50        float64 `json:"c50"`
	C80        float64 `json:"c80"`
	D50        float64 `json:"d50"`
	D80        float64 `json:"d80"`
	CenterTime float64 `json:"center_time"`
	PeakIndex  int     `json:"peak_index"`
}

// decay evaluation bands, in dB below the initial level
const (
	edtStartDB = 0.0
	edtEndDB   = -10.0
	rtStartDB  = -5.0
	t20EndDB   = -25.0
	t30EndDB   = -35.0
)

// RoomMetrics computes reverberation and clarity figures from the impulse
// response. The analysis runs from the strongest sample onward; everything
// before it counts as propagation delay and is ignored. Reverberation times
// that cannot be read from the decay, because the response is too short to
// cross the evaluation band, are reported as zero.
func (a *Analyzer) RoomMetrics(ir *deconv.ImpulseResponse) (*RoomMetrics, error) {
	if ir == nil || len(ir.Samples) == 0 {
		return nil, ErrEmptyResponse
	}
	if ir.SampleRate <= 0 {
		return nil, ErrInvalidRate
	}
	peak := deconv.FindPeak(ir.Samples)
	h := ir.Samples[peak:]
	rate := ir.SampleRate

	decay := schroederDecay(h)
	m := &RoomMetrics{
		PeakIndex:  peak,
		EDT:        reverbTime(decay, rate, edtStartDB, edtEndDB),
		T20:        reverbTime(decay, rate, rtStartDB, t20EndDB),
		T30:        reverbTime(decay, rate, rtStartDB, t30EndDB),
		C50:        clarity(h, rate, 50),
		C80:        clarity(h, rate, 80),
		D50:        definition(h, rate, 50),
		D80:        definition(h, rate, 80),
		CenterTime: centerTime(h, rate),
	}
	m.RT60 = m.T30
	if m.RT60 == 0 {
		m.RT60 = m.T20
	}
	return m, nil
}

// schroederDecay is the backward-integrated energy decay curve in dB,
// normalized to start at 0 dB.
func schroederDecay(h []float64) []float64 {
	out := make([]float64, len(h))
	total := 0.0
	for i := len(h) - 1; i >= 0; i-- {
		total += h[i] * h[i]
		out[i] = total
	}
	if total == 0 {
		for i := range out {
			out[i] = DBFloor
		}
		return out
	}
	for i, v := range out {
		r := v / total
		if r > 0 {
			out[i] = math.Max(10.0*math.Log10(r), DBFloor)
		} else {
			out[i] = DBFloor
		}
	}
	return out
}

// reverbTime extrapolates the time for a 60 dB decay from a linear fit of
// the Schroeder curve between startDB and endDB.
func reverbTime(decay []float64, rate, startDB, endDB float64) float64 {
	startIdx, endIdx := -1, -1
	for i, v := range decay {
		if startIdx < 0 && v <= startDB {
			startIdx = i
		}
		if startIdx >= 0 && v <= endDB {
			endIdx = i
			break
		}
	}
	if startIdx < 0 || endIdx <= startIdx {
		return 0
	}
	slope := fitSlope(decay[startIdx:endIdx+1], startIdx, rate)
	if slope >= 0 {
		return 0
	}
	return -60.0 / slope
}

// fitSlope is the least-squares slope of the decay segment in dB per second.
func fitSlope(seg []float64, offset int, rate float64) float64 {
	n := float64(len(seg))
	var sumX, sumY float64
	for i, v := range seg {
		sumX += float64(offset+i) / rate
		sumY += v
	}
	meanX := sumX / n
	meanY := sumY / n
	var num, den float64
	for i, v := range seg {
		dx := float64(offset+i)/rate - meanX
		num += dx * (v - meanY)
		den += dx * dx
	}
	if den == 0 {
		return 0
	}
	return num / den
}

// clarity is the early-to-late energy ratio in dB with the boundary at ms
// milliseconds after the peak. Responses with no late energy yield +Inf.
func clarity(h []float64, rate, ms float64) float64 {
	b := boundarySample(rate, ms)
	var early, late float64
	for i, v := range h {
		if i < b {
			early += v * v
		} else {
			late += v * v
		}
	}
	if late == 0 {
		return math.Inf(1)
	}
	if early == 0 {
		return math.Inf(-1)
	}
	return 10.0 * math.Log10(early/late)
}

// definition is the early-to-total energy ratio with the boundary at ms
// milliseconds after the peak.
func definition(h []float64, rate, ms float64) float64 {
	b := boundarySample(rate, ms)
	if b >= len(h) {
		return 1
	}
	if b <= 0 {
		return 0
	}
	var early, total float64
	for i, v := range h {
		e := v * v
		total += e
		if i < b {
			early += e
		}
	}
	if total == 0 {
		return 0
	}
	return early / total
}

// centerTime is the energy-weighted mean arrival time in seconds.
func centerTime(h []float64, rate float64) float64 {
	var num, den float64
	for i, v := range h {
		e := v * v
		num += float64(i) / rate * e
		den += e
	}
	if den == 0 {
		return 0
	}
	return num / den
}

func boundarySample(rate, ms float64) int {
	return int(math.Round(ms * 0.001 * rate))
}
