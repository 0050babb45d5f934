// SPDX-License-Identifier: MIT
/*
Package audio bridges the real-time driver callback with the measurement
pipeline:
- Duplex capture/playback through PortAudio
- Lock-free SPSC frame rings in both directions
- In-callback level metering with atomic snapshots
- WAV import/export for signals, captures and impulse responses

Thread Safety:
- The callback only copies samples, moves ring cursors and updates atomics
- All blocking and allocating work happens on the processing side
- Buffers are pre-allocated so the hot path never touches the GC
*/
package audio

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"roomsweep/internal/config"

	"github.com/gordonklaus/portaudio"
)

var (
	// ErrQueueFull is transient: the driver has not drained the output
	// ring yet and the caller should retry shortly.
	ErrQueueFull = errors.New("audio: output queue full")

	// ErrDeviceMismatch means the selected devices cannot run the
	// requested sample rate or channel layout. The stream is never
	// silently resampled.
	ErrDeviceMismatch = errors.New("audio: device does not support the requested format")
)

// Bridge owns one duplex stream pair: a playback ring the processing side
// fills and the callback drains, and a capture ring flowing the other way.
type Bridge struct {
	// Stream geometry.
	sampleRate      float64
	framesPerBuffer int
	inputChannels   int

	// Selected devices and their latency targets.
	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	stream        *portaudio.Stream

	// Frame exchange with the processing side.
	input  *Ring // driver -> processing, interleaved capture periods
	output *Ring // processing -> driver, mono playback periods

	// In-callback input metering.
	meter *LoudnessMeter

	// Session coordination and fault counters.
	busy      atomic.Bool
	playing   atomic.Bool
	underruns atomic.Uint64
	drops     atomic.Uint64
}

// NewBridge resolves the configured devices and pre-allocates both rings.
// PortAudio must be initialized first.
func NewBridge(cfg *config.Config) (*Bridge, error) {
	input, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	output, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}

	frames := cfg.Audio.FramesPerBuffer
	queue := cfg.Session.QueueFrames
	if queue > config.MaxQueueSize {
		queue = config.MaxQueueSize
	}

	b := &Bridge{
		sampleRate:      cfg.Audio.SampleRate,
		framesPerBuffer: frames,
		inputChannels:   cfg.Audio.InputChannels,
		inputDevice:     input,
		outputDevice:    output,
		input:           NewRing(queue, frames*cfg.Audio.InputChannels),
		output:          NewRing(queue, frames),
		meter:           NewLoudnessMeter(cfg.Audio.SampleRate, frames, config.DefaultMeterWindow),
	}

	if cfg.Audio.LowLatency {
		b.inputLatency = input.DefaultLowInputLatency
		b.outputLatency = output.DefaultLowOutputLatency
	} else {
		b.inputLatency = input.DefaultHighInputLatency
		b.outputLatency = output.DefaultHighOutputLatency
	}

	return b, nil
}

// Start validates the stream format against the live devices and opens the
// duplex stream. A format the devices cannot run fails with
// ErrDeviceMismatch before any audio moves.
func (b *Bridge) Start() error {
	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: b.inputChannels,
			Device:   b.inputDevice,
			Latency:  b.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: 1,
			Device:   b.outputDevice,
			Latency:  b.outputLatency,
		},
		FramesPerBuffer: b.framesPerBuffer,
		SampleRate:      b.sampleRate,
	}

	if err := portaudio.IsFormatSupported(params, b.process); err != nil {
		return fmt.Errorf("%w: %v", ErrDeviceMismatch, err)
	}

	stream, err := portaudio.OpenStream(params, b.process)
	if err != nil {
		return err
	}
	b.stream = stream

	if err := b.stream.Start(); err != nil {
		b.stream.Close()
		b.stream = nil
		return err
	}

	return nil
}

// Stop halts and closes the stream. Safe to call when never started.
func (b *Bridge) Stop() error {
	if b.stream == nil {
		return nil
	}
	if err := b.stream.Stop(); err != nil {
		return err
	}
	if err := b.stream.Close(); err != nil {
		return err
	}
	b.stream = nil
	return nil
}

// process is the driver callback.
// Performance Critical:
// - Pre-allocated ring slots only
// - No locks, no allocations, no logging
func (b *Bridge) process(in, out []float32) {
	if f := b.input.Reserve(); f != nil {
		copy(f.Samples, in)
		b.input.Commit()
	} else {
		b.drops.Add(1)
	}
	b.meter.update(in)

	if b.output.Pop(out) {
		return
	}
	for i := range out {
		out[i] = 0
	}
	if b.playing.Load() {
		b.underruns.Add(1)
	}
}

// PushOutput enqueues one playback period for the callback to play.
func (b *Bridge) PushOutput(samples []float32) error {
	if !b.output.Push(samples) {
		return ErrQueueFull
	}
	return nil
}

// PopInput copies the oldest captured period into dst, reporting whether
// one was available.
func (b *Bridge) PopInput(dst []float32) bool {
	return b.input.Pop(dst)
}

// Claim reserves the bridge for a single measurement. It reports false
// when another session already holds it.
func (b *Bridge) Claim() bool {
	return b.busy.CompareAndSwap(false, true)
}

// Release returns the bridge after a measurement.
func (b *Bridge) Release() {
	b.busy.Store(false)
}

// SetPlaying marks whether playback material is expected, which gates
// underrun counting: an empty output ring before or after the sweep is
// normal, during it is a fault.
func (b *Bridge) SetPlaying(on bool) {
	b.playing.Store(on)
}

// Underruns is the number of playback periods replaced with silence while
// playing.
func (b *Bridge) Underruns() uint64 {
	return b.underruns.Load()
}

// Drops is the number of capture periods lost to a full input ring.
func (b *Bridge) Drops() uint64 {
	return b.drops.Load()
}

// ResetCounters clears the fault counters and the meter before a capture.
func (b *Bridge) ResetCounters() {
	b.underruns.Store(0)
	b.drops.Store(0)
	b.meter.Reset()
}

// Level returns the current input meter reading.
func (b *Bridge) Level() LevelSnapshot {
	return b.meter.Level()
}

// FramesPerBuffer is the fixed period size in frames.
func (b *Bridge) FramesPerBuffer() int {
	return b.framesPerBuffer
}

// InputChannels is the captured channel count per frame.
func (b *Bridge) InputChannels() int {
	return b.inputChannels
}
