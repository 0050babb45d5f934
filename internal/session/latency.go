package session

import (
	"errors"
	"fmt"
	"math"

	"roomsweep/internal/deconv"
)

// ErrLatencyDetection means the loopback channel did not contain a
// recognizable copy of the reference signal. It degrades the measurement
// (the impulse response stays uncalibrated) but never fails it.
var ErrLatencyDetection = errors.New("session: loopback latency detection failed")

// DetectLatency locates the playback chain delay by cross-correlating a
// loopback recording against the reference signal it should contain. It
// returns the delay in samples and the normalized correlation peak.
//
// A peak below threshold, a negative lag, or an unusable loopback signal
// all fail with ErrLatencyDetection.
func DetectLatency(d *deconv.Deconvolver, loopback, reference []float64, threshold float64) (int, float64, error) {
	corr, err := d.CorrelateNormalized(loopback, reference)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", ErrLatencyDetection, err)
	}

	idx := deconv.FindPeak(corr)
	confidence := math.Abs(corr[idx])
	lag := deconv.LagFromIndex(idx, len(reference))

	if confidence < threshold {
		return 0, confidence, fmt.Errorf("%w: confidence %.3f below threshold %.3f",
			ErrLatencyDetection, confidence, threshold)
	}
	if lag < 0 {
		return 0, confidence, fmt.Errorf("%w: negative lag %d samples", ErrLatencyDetection, lag)
	}

	return lag, confidence, nil
}
