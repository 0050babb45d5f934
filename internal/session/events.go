package session

import "roomsweep/internal/audio"

// Event type discriminators, carried in the "type" field of every JSON
// payload pushed through the transport.
const (
	TypeStateChanged        = "state_changed"
	TypeLevelReport         = "level_report"
	TypeUnderrunReport      = "underrun_report"
	TypeLatencyResult       = "latency_result"
	TypeMeasurementComplete = "measurement_complete"
	TypeMeasurementFailed   = "measurement_failed"
)

// Verdicts attached to a LevelReport. The calibration window sits a few
// dB under clipping; outside it the report carries a warning.
const (
	LevelOK      = "ok"
	LevelTooLow  = "too low"
	LevelTooHigh = "too high"
)

// Input RMS bounds for the pre-measurement level check, in dBFS.
const (
	levelLowDBFS  = -14.0
	levelHighDBFS = -10.0
)

func levelVerdict(rmsDB float64) string {
	switch {
	case rmsDB < levelLowDBFS:
		return LevelTooLow
	case rmsDB >= levelHighDBFS:
		return LevelTooHigh
	default:
		return LevelOK
	}
}

// StateChanged reports one lifecycle transition.
type StateChanged struct {
	Type string `json:"type"`
	From string `json:"from"`
	To   string `json:"to"`
}

func newStateChanged(from, to State) StateChanged {
	return StateChanged{Type: TypeStateChanged, From: from.String(), To: to.String()}
}

// LevelReport carries the calibration pass reading and its verdict.
type LevelReport struct {
	Type    string  `json:"type"`
	RMSDB   float64 `json:"rms_db"`
	PeakDB  float64 `json:"peak_db"`
	Clipped uint64  `json:"clipped"`
	Verdict string  `json:"verdict"`
}

func newLevelReport(snap audio.LevelSnapshot, verdict string) LevelReport {
	return LevelReport{
		Type:    TypeLevelReport,
		RMSDB:   snap.RMSDB,
		PeakDB:  snap.PeakDB,
		Clipped: snap.Clipped,
		Verdict: verdict,
	}
}

// UnderrunReport is pushed whenever the playback underrun counter grows
// during a capture.
type UnderrunReport struct {
	Type      string `json:"type"`
	Underruns uint64 `json:"underruns"`
	Drops     uint64 `json:"drops"`
}

func newUnderrunReport(underruns, drops uint64) UnderrunReport {
	return UnderrunReport{Type: TypeUnderrunReport, Underruns: underruns, Drops: drops}
}

// LatencyResult reports the loopback alignment outcome.
type LatencyResult struct {
	Type       string  `json:"type"`
	Offset     int     `json:"offset_samples"`
	Confidence float64 `json:"confidence"`
	Calibrated bool    `json:"calibrated"`
}

func newLatencyResult(offset int, confidence float64, calibrated bool) LatencyResult {
	return LatencyResult{
		Type:       TypeLatencyResult,
		Offset:     offset,
		Confidence: confidence,
		Calibrated: calibrated,
	}
}

// MeasurementComplete closes a successful run.
type MeasurementComplete struct {
	Type     string  `json:"type"`
	Samples  int     `json:"samples"`
	Peak     int     `json:"peak_index"`
	Duration float64 `json:"duration_seconds"`
	Report   Report  `json:"report"`
}

func newMeasurementComplete(samples, peak int, duration float64, report Report) MeasurementComplete {
	return MeasurementComplete{
		Type:     TypeMeasurementComplete,
		Samples:  samples,
		Peak:     peak,
		Duration: duration,
		Report:   report,
	}
}

// MeasurementFailed closes an aborted run with the state it failed in
// and the reason.
type MeasurementFailed struct {
	Type   string `json:"type"`
	State  string `json:"state"`
	Reason string `json:"reason"`
}

func newMeasurementFailed(from State, reason error) MeasurementFailed {
	return MeasurementFailed{Type: TypeMeasurementFailed, State: from.String(), Reason: reason.Error()}
}
