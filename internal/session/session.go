// SPDX-License-Identifier: MIT
/*
Package session drives one sweep measurement end to end:
- Generates the excitation sweep and its paired inverse filter
- Plays it through the audio bridge while recording the response
- Aligns the recording against a loopback channel when one is wired
- Hands the capture to deconvolution and publishes typed events

Lifecycle:
- Idle -> Armed -> Playing -> Draining -> Complete, or Aborted from
  any non-terminal state
- Recoverable faults (queue backpressure, tolerated underruns) are
  absorbed and reported; unrecoverable ones abort with a typed reason
- Partial captures are never returned
*/
package session

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"roomsweep/internal/audio"
	"roomsweep/internal/config"
	"roomsweep/internal/deconv"
	"roomsweep/internal/fft"
	applog "roomsweep/internal/log"
	"roomsweep/internal/sweep"
	"roomsweep/internal/transport"
)

var (
	// ErrSessionBusy means another measurement currently owns the bridge.
	ErrSessionBusy = errors.New("session: a measurement is already running")

	// ErrExcessiveUnderruns aborts a capture whose playback starved more
	// often than the configured limit allows.
	ErrExcessiveUnderruns = errors.New("session: output underruns exceeded the configured limit")

	// ErrCaptureTimeout aborts a capture that made no progress within
	// sweep duration + tail margin + timeout slack.
	ErrCaptureTimeout = errors.New("session: capture deadline exceeded")

	// ErrCancelled reports an explicit Cancel call.
	ErrCancelled = errors.New("session: cancelled")
)

// Pre-measurement level check: a short pink noise burst at the sweep
// amplitude, metered on the input, surfaces a mis-set capture gain
// before the sweep runs.
const (
	levelCheckSeconds  = 0.3
	levelCheckSeed     = 1
	levelSettlePeriods = 2
	levelCheckTimeout  = 2 * time.Second
)

// Bridge is the slice of the audio layer the session drives.
// *audio.Bridge satisfies it; tests substitute a synthetic loopback.
type Bridge interface {
	Start() error
	Stop() error
	Claim() bool
	Release()
	PushOutput(samples []float32) error
	PopInput(dst []float32) bool
	SetPlaying(on bool)
	Underruns() uint64
	Drops() uint64
	ResetCounters()
	Level() audio.LevelSnapshot
	FramesPerBuffer() int
	InputChannels() int
}

var _ Bridge = (*audio.Bridge)(nil)

// Report summarizes the health and calibration of one measurement.
type Report struct {
	Underruns         uint64  `json:"underruns"`
	Drops             uint64  `json:"drops"`
	CapturedSamples   int     `json:"captured_samples"`
	LatencyOffset     int     `json:"latency_offset"`
	LatencyConfidence float64 `json:"latency_confidence"`
	LatencyCalibrated bool    `json:"latency_calibrated"`
	LevelRMSDB        float64 `json:"level_rms_db"`
	LevelVerdict      string  `json:"level_verdict"`
}

// Result is a completed measurement: the impulse response plus the raw
// capture it was recovered from.
type Result struct {
	IR      *deconv.ImpulseResponse
	Capture []float64
	Report  Report
}

// Session owns one measurement lifecycle. It is single-use: create a
// new Session per measurement.
type Session struct {
	cfg    *config.Config
	bridge Bridge
	tr     transport.Transport
	dec    *deconv.Deconvolver

	mu    sync.Mutex
	state State

	cancelled atomic.Bool

	level   audio.LevelSnapshot
	verdict string
}

// New wires a session against a bridge and an event transport. A nil
// transport drops events.
func New(cfg *config.Config, bridge Bridge, tr transport.Transport, cache *fft.Cache) *Session {
	return &Session{
		cfg:    cfg,
		bridge: bridge,
		tr:     tr,
		dec:    deconv.New(cache, cfg.Session.AlignmentSlack),
		state:  StateIdle,
	}
}

// State returns the current lifecycle position.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Cancel asks a running measurement to abort at the next opportunity.
// Safe from any goroutine.
func (s *Session) Cancel() {
	s.cancelled.Store(true)
}

// Run executes the measurement and blocks until it completes or aborts.
// A second measurement attempted while the bridge is held fails with
// ErrSessionBusy.
func (s *Session) Run(ctx context.Context) (*Result, error) {
	if !s.bridge.Claim() {
		return nil, ErrSessionBusy
	}
	defer s.bridge.Release()

	sw, inv, err := sweep.Generate(sweep.Spec{
		StartFreq:  s.cfg.Sweep.StartFreq,
		EndFreq:    s.cfg.Sweep.EndFreq,
		Duration:   s.cfg.Sweep.Duration,
		SampleRate: s.cfg.Audio.SampleRate,
		Amplitude:  s.cfg.Sweep.Amplitude,
	})
	if err != nil {
		return nil, s.fail(err)
	}

	if lb := s.cfg.Audio.LoopbackChannel; lb >= s.bridge.InputChannels() {
		return nil, s.fail(fmt.Errorf("session: loopback channel %d outside the %d captured channels",
			lb, s.bridge.InputChannels()))
	}

	if err := s.bridge.Start(); err != nil {
		return nil, s.fail(err)
	}
	defer s.bridge.Stop()

	if err := s.to(StateArmed); err != nil {
		return nil, s.fail(err)
	}
	applog.Infof("session: armed, sweep %d samples at %.0f Hz",
		len(sw.Samples), s.cfg.Audio.SampleRate)

	backoff := s.cfg.Session.RetryBackoff.Std()
	if err := s.levelCheck(ctx, backoff); err != nil {
		return nil, s.fail(err)
	}
	s.bridge.ResetCounters()

	tail := int(math.Round(s.cfg.Session.TailMargin * s.cfg.Audio.SampleRate))
	rec := newRecorder(s.bridge.InputChannels(), s.cfg.Audio.LoopbackChannel,
		len(sw.Samples)+tail, s.bridge.FramesPerBuffer())

	bound := s.cfg.Sweep.Duration + s.cfg.Session.TailMargin + s.cfg.Session.TimeoutSlack
	deadline := time.Now().Add(time.Duration(bound * float64(time.Second)))

	if err := s.capture(ctx, sw, rec, deadline, backoff); err != nil {
		return nil, s.fail(err)
	}

	if err := s.bridge.Stop(); err != nil {
		applog.Warnf("session: stopping stream: %v", err)
	}

	result, err := s.finish(sw, inv, rec)
	if err != nil {
		return nil, s.fail(err)
	}

	return result, nil
}

// levelCheck plays the calibration burst and reads the input meter.
// Verdicts are warnings in the event stream, never errors.
func (s *Session) levelCheck(ctx context.Context, backoff time.Duration) error {
	period := s.bridge.FramesPerBuffer()
	blocks := int(math.Ceil(levelCheckSeconds * s.cfg.Audio.SampleRate / float64(period)))
	noise := sweep.PinkNoise(blocks*period, s.cfg.Sweep.Amplitude, levelCheckSeed)

	out := make([]float32, period)
	scratch := make([]float32, period*s.bridge.InputChannels())

	// Trailing silence keeps push and pop counts equal, so the sweep
	// phase starts on a period boundary.
	total := blocks + levelSettlePeriods
	consumed := 0
	deadline := time.Now().Add(levelCheckTimeout)

	for i := 0; i < total; i++ {
		fillPeriod(out, noise, i*period)
		for {
			if err := s.interrupted(ctx); err != nil {
				return err
			}
			err := s.bridge.PushOutput(out)
			if err == nil {
				break
			}
			if !errors.Is(err, audio.ErrQueueFull) {
				return err
			}
			if s.bridge.PopInput(scratch) {
				consumed++
			}
			time.Sleep(backoff)
		}
		if consumed < total && s.bridge.PopInput(scratch) {
			consumed++
		}
	}

	for consumed < total {
		if err := s.interrupted(ctx); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			break
		}
		if s.bridge.PopInput(scratch) {
			consumed++
			continue
		}
		time.Sleep(backoff)
	}

	s.level = s.bridge.Level()
	s.verdict = levelVerdict(s.level.RMSDB)
	s.publish(newLevelReport(s.level, s.verdict))

	switch s.verdict {
	case LevelTooLow:
		applog.Warnf("session: input level %.1f dBFS is too low, raise the capture gain", s.level.RMSDB)
	case LevelTooHigh:
		applog.Warnf("session: input level %.1f dBFS is too high, lower the capture gain", s.level.RMSDB)
	default:
		applog.Infof("session: input level %.1f dBFS", s.level.RMSDB)
	}

	return nil
}

// capture pushes the sweep period by period while collecting the
// response, then drains the reverberant tail.
func (s *Session) capture(ctx context.Context, sw *sweep.Sweep, rec *recorder, deadline time.Time, backoff time.Duration) error {
	period := s.bridge.FramesPerBuffer()
	out := make([]float32, period)
	limit := uint64(s.cfg.Session.MaxUnderruns)
	var reported uint64

	for base := 0; base < len(sw.Samples); base += period {
		fillPeriod(out, sw.Samples, base)

		for {
			if err := s.interrupted(ctx); err != nil {
				return err
			}
			if time.Now().After(deadline) {
				return fmt.Errorf("%w: playback stalled at sample %d", ErrCaptureTimeout, base)
			}
			if u := s.bridge.Underruns(); u != reported {
				reported = u
				s.publish(newUnderrunReport(u, s.bridge.Drops()))
				applog.Warnf("session: playback underruns: %d", u)
				if u > limit {
					return fmt.Errorf("%w: %d underruns, limit %d", ErrExcessiveUnderruns, u, limit)
				}
			}

			err := s.bridge.PushOutput(out)
			if err == nil {
				break
			}
			if !errors.Is(err, audio.ErrQueueFull) {
				return err
			}

			// Backpressure is expected: drain the capture side while the
			// driver catches up, then retry the same period.
			rec.drain(s.bridge)
			time.Sleep(backoff)
		}

		if base == 0 {
			s.bridge.SetPlaying(true)
			if err := s.to(StatePlaying); err != nil {
				return err
			}
		}
		rec.drain(s.bridge)
	}

	s.bridge.SetPlaying(false)
	if err := s.to(StateDraining); err != nil {
		return err
	}

	for !rec.full() {
		if err := s.interrupted(ctx); err != nil {
			return err
		}
		if time.Now().After(deadline) {
			applog.Warnf("session: capture deadline hit with %d of %d samples",
				len(rec.samples), rec.target)
			break
		}
		if rec.drain(s.bridge) == 0 {
			time.Sleep(backoff)
		}
	}

	applog.Infof("session: captured %d samples (%d underruns, %d drops)",
		len(rec.samples), s.bridge.Underruns(), s.bridge.Drops())

	return nil
}

// finish aligns the capture against the loopback channel, deconvolves
// it and closes the lifecycle.
func (s *Session) finish(sw *sweep.Sweep, inv *sweep.InverseFilter, rec *recorder) (*Result, error) {
	offset := 0
	confidence := 0.0
	calibrated := false

	if rec.loop != nil {
		lag, conf, err := DetectLatency(s.dec, rec.loop, sw.Samples, s.cfg.Session.LatencyThreshold)
		confidence = conf
		if err != nil {
			applog.Warnf("session: %v, impulse response stays uncalibrated", err)
		} else {
			offset = lag
			calibrated = true
			applog.Infof("session: loopback latency %d samples (confidence %.3f)", lag, conf)
		}
		s.publish(newLatencyResult(offset, confidence, calibrated))
	}

	recorded := rec.samples
	if offset > 0 {
		if offset >= len(recorded) {
			return nil, fmt.Errorf("%w: latency offset %d consumes the whole capture",
				deconv.ErrInsufficientSamples, offset)
		}
		recorded = recorded[offset:]
	}

	ir, err := s.dec.Deconvolve(recorded, inv)
	if err != nil {
		return nil, err
	}
	ir.Offset = offset
	ir.LatencyCalibrated = calibrated

	report := Report{
		Underruns:         s.bridge.Underruns(),
		Drops:             s.bridge.Drops(),
		CapturedSamples:   len(rec.samples),
		LatencyOffset:     offset,
		LatencyConfidence: confidence,
		LatencyCalibrated: calibrated,
		LevelRMSDB:        s.level.RMSDB,
		LevelVerdict:      s.verdict,
	}

	if err := s.to(StateComplete); err != nil {
		return nil, err
	}
	s.publish(newMeasurementComplete(len(ir.Samples), ir.PeakIndex, ir.Duration(), report))
	applog.Infof("session: impulse response ready, %d samples, peak at %d",
		len(ir.Samples), ir.PeakIndex)

	return &Result{IR: ir, Capture: rec.samples, Report: report}, nil
}

// to moves the lifecycle and publishes the transition.
func (s *Session) to(next State) error {
	s.mu.Lock()
	prev := s.state
	if !prev.CanTransition(next) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, prev, next)
	}
	s.state = next
	s.mu.Unlock()

	s.publish(newStateChanged(prev, next))
	return nil
}

// fail aborts the lifecycle and passes the reason through. Terminal
// states absorb the abort so a closed run is never rewritten.
func (s *Session) fail(reason error) error {
	from := s.State()
	if err := s.to(StateAborted); err == nil {
		s.publish(newMeasurementFailed(from, reason))
		applog.Errorf("session: aborted in %s: %v", from, reason)
	}
	return reason
}

func (s *Session) interrupted(ctx context.Context) error {
	if s.cancelled.Load() {
		return ErrCancelled
	}
	return ctx.Err()
}

func (s *Session) publish(ev any) {
	if s.tr == nil {
		return
	}
	if err := s.tr.Send(ev); err != nil {
		applog.Warnf("session: publishing event: %v", err)
	}
}

// fillPeriod copies one period of src starting at base into dst, zero
// padding past the end of src.
func fillPeriod(dst []float32, src []float64, base int) {
	for i := range dst {
		if j := base + i; j < len(src) {
			dst[i] = float32(src[j])
		} else {
			dst[i] = 0
		}
	}
}

// recorder accumulates de-interleaved capture periods up to a fixed
// target length per channel. Channel 0 carries the measurement; an
// optional loopback channel is collected in parallel for latency
// alignment.
type recorder struct {
	channels int
	loopback int
	target   int
	scratch  []float32
	samples  []float64
	loop     []float64
}

func newRecorder(channels, loopback, target, period int) *recorder {
	r := &recorder{
		channels: channels,
		loopback: loopback,
		target:   target,
		scratch:  make([]float32, period*channels),
		samples:  make([]float64, 0, target),
	}
	if loopback >= 0 {
		r.loop = make([]float64, 0, target)
	}
	return r
}

// drain moves every period the driver has captured so far into the
// buffers, returning how many periods it took.
func (r *recorder) drain(b Bridge) int {
	n := 0
	for b.PopInput(r.scratch) {
		r.take(r.scratch)
		n++
	}
	return n
}

func (r *recorder) take(in []float32) {
	for i := 0; i+r.channels <= len(in); i += r.channels {
		if len(r.samples) < r.target {
			r.samples = append(r.samples, float64(in[i]))
		}
		if r.loop != nil && len(r.loop) < r.target {
			r.loop = append(r.loop, float64(in[i+r.loopback]))
		}
	}
}

func (r *recorder) full() bool {
	return len(r.samples) >= r.target
}
