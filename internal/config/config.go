package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML files can carry human-readable
// values like "150ms" or "2s" (plain integers are read as nanoseconds).
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := value.Decode(&n); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	*d = Duration(n)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Core configuration constants that define the boundaries and defaults
// for the measurement engine.
const (
	// Sweep defaults. 20 Hz to 20 kHz covers the audible band; three
	// seconds gives enough energy per octave for typical rooms.
	DefaultStartFreq     = 20.0
	DefaultEndFreq       = 20000.0
	DefaultSweepDuration = 3.0
	DefaultAmplitude     = 0.5

	// Audio device defaults.
	DefaultDeviceID        = MinDeviceID // System default device
	DefaultSampleRate      = 44100.0
	DefaultFramesPerBuffer = 512
	DefaultInputChannels   = 1
	DefaultLowLatency      = false
	DefaultLoopbackChannel = -1 // Disabled

	// Session policy defaults. Conservative values pending calibration
	// against more hardware.
	DefaultTailMargin       = 2.0  // Seconds of reverberant tail to record
	DefaultTimeoutSlack     = 3.0  // Seconds past sweep+tail before abort
	DefaultMaxUnderruns     = 10   // Output underruns tolerated per capture
	DefaultLatencyThreshold = 0.25 // Min normalized correlation confidence
	DefaultAlignmentSlack   = 64   // Samples of alignment slop tolerated
	DefaultQueueFrames      = 64   // Frames per ring (~0.7s at 44.1kHz/512)
	DefaultRetryBackoff     = 2 * time.Millisecond

	// Analysis defaults.
	DefaultSmoothingFraction = 3   // 1/3-octave smoothing
	DefaultResamplePoints    = 512 // Log-spaced display points
	DefaultWindowLeftWidth   = 5512
	DefaultWindowRightWidth  = 22050
	DefaultWindowAlpha       = 0.25

	// Metering defaults.
	DefaultMeterWindow = 0.3 // Seconds of RMS integration

	// Transport defaults.
	DefaultWSAddress       = "127.0.0.1:8080"
	DefaultUDPAddress      = "127.0.0.1:9090"
	DefaultUDPSendInterval = 150 * time.Millisecond

	// Hardware limits.
	MinDeviceID   = -1 // -1 selects the system default device
	MinSampleRate = 8000.0
	MaxSampleRate = 192000.0
	MaxQueueSize  = 4096 // Frames per ring, hard cap
)

// SweepConfig holds the excitation signal parameters. It carries json
// tags as well because it is echoed into the measurement report.
type SweepConfig struct {
	StartFreq float64 `yaml:"start_freq" json:"start_freq" validate:"gt=0"`
	EndFreq   float64 `yaml:"end_freq" json:"end_freq" validate:"gt=0"`
	Duration  float64 `yaml:"duration" json:"duration" validate:"gt=0"`
	Amplitude float64 `yaml:"amplitude" json:"amplitude" validate:"gt=0,lte=1"`
}

// AudioConfig holds device selection and stream geometry.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device" validate:"gte=-1"`
	OutputDevice    int     `yaml:"output_device" validate:"gte=-1"`
	SampleRate      float64 `yaml:"sample_rate" validate:"gte=8000,lte=192000"`
	FramesPerBuffer int     `yaml:"frames_per_buffer" validate:"gt=0"`
	LowLatency      bool    `yaml:"low_latency"`
	InputChannels   int     `yaml:"input_channels" validate:"gte=1,lte=8"`
	LoopbackChannel int     `yaml:"loopback_channel" validate:"gte=-1"`
}

// SessionConfig holds capture policy: margins, thresholds and backoff.
// These are deliberately configuration rather than constants baked into
// the session.
type SessionConfig struct {
	TailMargin       float64  `yaml:"tail_margin" validate:"gte=0"`
	TimeoutSlack     float64  `yaml:"timeout_slack" validate:"gte=0"`
	MaxUnderruns     int      `yaml:"max_underruns" validate:"gte=0"`
	LatencyThreshold float64  `yaml:"latency_threshold" validate:"gte=0,lte=1"`
	AlignmentSlack   int      `yaml:"alignment_slack" validate:"gte=0"`
	QueueFrames      int      `yaml:"queue_frames" validate:"gt=0"`
	RetryBackoff     Duration `yaml:"retry_backoff" validate:"gte=0"`
}

// AnalysisConfig holds frequency response post-processing parameters.
type AnalysisConfig struct {
	SmoothingFraction int     `yaml:"smoothing_fraction" validate:"gte=0"`
	ResamplePoints    int     `yaml:"resample_points" validate:"gte=0"`
	WindowLeftWidth   int     `yaml:"window_left_width" validate:"gte=0"`
	WindowRightWidth  int     `yaml:"window_right_width" validate:"gte=0"`
	WindowAlpha       float64 `yaml:"window_alpha" validate:"gte=0,lte=1"`
}

// TransportConfig holds the status/event publication settings.
type TransportConfig struct {
	WSEnabled       bool     `yaml:"ws_enabled"`
	WSAddress       string   `yaml:"ws_address"`
	UDPEnabled      bool     `yaml:"udp_enabled"`
	UDPAddress      string   `yaml:"udp_address"`
	UDPSendInterval Duration `yaml:"udp_send_interval"`
}

// ExportConfig controls which artifacts a measurement writes to disk.
type ExportConfig struct {
	OutputDir     string `yaml:"output_dir"`
	WriteSweep    bool   `yaml:"write_sweep"`
	WriteCapture  bool   `yaml:"write_capture"`
	WriteIR       bool   `yaml:"write_ir"`
	WriteResponse bool   `yaml:"write_response"`
}

// Config is the root configuration, loaded from YAML with environment
// and CLI flag overrides layered on top.
type Config struct {
	LogLevel string `yaml:"log_level"`
	LogFile  string `yaml:"log_file,omitempty"`
	Command  string `yaml:"-"` // Selected command ("measure", "list", "devices", "generate"), CLI only

	Sweep     SweepConfig     `yaml:"sweep"`
	Audio     AudioConfig     `yaml:"audio"`
	Session   SessionConfig   `yaml:"session"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Transport TransportConfig `yaml:"transport"`
	Export    ExportConfig    `yaml:"export"`
}

// NewConfig returns a Config populated with defaults. This is the base
// that file, environment and flag overrides are applied to.
func NewConfig() *Config {
	return &Config{
		LogLevel: "info",
		Sweep: SweepConfig{
			StartFreq: DefaultStartFreq,
			EndFreq:   DefaultEndFreq,
			Duration:  DefaultSweepDuration,
			Amplitude: DefaultAmplitude,
		},
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			LowLatency:      DefaultLowLatency,
			InputChannels:   DefaultInputChannels,
			LoopbackChannel: DefaultLoopbackChannel,
		},
		Session: SessionConfig{
			TailMargin:       DefaultTailMargin,
			TimeoutSlack:     DefaultTimeoutSlack,
			MaxUnderruns:     DefaultMaxUnderruns,
			LatencyThreshold: DefaultLatencyThreshold,
			AlignmentSlack:   DefaultAlignmentSlack,
			QueueFrames:      DefaultQueueFrames,
			RetryBackoff:     Duration(DefaultRetryBackoff),
		},
		Analysis: AnalysisConfig{
			SmoothingFraction: DefaultSmoothingFraction,
			ResamplePoints:    DefaultResamplePoints,
			WindowLeftWidth:   DefaultWindowLeftWidth,
			WindowRightWidth:  DefaultWindowRightWidth,
			WindowAlpha:       DefaultWindowAlpha,
		},
		Transport: TransportConfig{
			WSEnabled:       false,
			WSAddress:       DefaultWSAddress,
			UDPEnabled:      false,
			UDPAddress:      DefaultUDPAddress,
			UDPSendInterval: Duration(DefaultUDPSendInterval),
		},
		Export: ExportConfig{
			OutputDir:     ".",
			WriteSweep:    false,
			WriteCapture:  false,
			WriteIR:       true,
			WriteResponse: true,
		},
	}
}
