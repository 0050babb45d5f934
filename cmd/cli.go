package cmd

import (
	"os"
	"strings"

	"roomsweep/internal/config"
	"roomsweep/internal/sweep"
	"roomsweep/pkg/build"

	"github.com/spf13/cobra"
)

// configPathFromArgs finds --config before cobra runs, so the file can
// be loaded first and its values become the flag defaults. Flags given
// explicitly then override the file.
func configPathFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--config" && i+1 < len(args) {
			return args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	return ""
}

// ParseArgs layers the configuration: built-in defaults, then the YAML
// file, then environment overrides, then explicit flags. The returned
// config is validated; Command carries the requested one-off command,
// "measure" for a full measurement pass, or "" when cobra already
// handled everything (--help, --version).
func ParseArgs() (*config.Config, error) {
	buildInfo := build.Get()

	options, err := config.LoadConfig(configPathFromArgs(os.Args[1:]))
	if err != nil {
		return nil, err
	}

	var (
		configPath string
		verbose    bool
		volume     float64
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Room impulse response measurement with an exponential sine sweep",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			options.Command = "measure"
			return nil
		},
	}

	// Display help message
	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// One-off commands
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio devices",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "Pick the playback/capture device pair interactively",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "devices"
		},
	}
	rootCmd.AddCommand(devicesCmd)

	generateCmd := &cobra.Command{
		Use:   "generate",
		Short: "Write the sweep and inverse filter to WAV without measuring",
		Run: func(cmd *cobra.Command, args []string) {
			options.Command = "generate"
		},
	}
	rootCmd.AddCommand(generateCmd)

	flags := rootCmd.PersistentFlags()

	flags.StringVar(&configPath, "config", "",
		"Path to a YAML configuration file")

	// Audio Device Configuration
	flags.IntVarP(&options.Audio.InputDevice, "input-device", "i", options.Audio.InputDevice,
		"Input device ID. Use 'list' command to see available devices.")
	flags.IntVarP(&options.Audio.OutputDevice, "output-device", "o", options.Audio.OutputDevice,
		"Output device ID. Use 'list' command to see available devices.")
	flags.Float64VarP(&options.Audio.SampleRate, "sample-rate", "s", options.Audio.SampleRate,
		"Sample rate, measured in Hertz (Hz)")
	flags.IntVarP(&options.Audio.FramesPerBuffer, "frames-per-buffer", "b", options.Audio.FramesPerBuffer,
		"The number of frames per buffer (affects latency)")
	flags.IntVarP(&options.Audio.InputChannels, "channels", "c", options.Audio.InputChannels,
		"Number of input channels to capture (1=mono, 2=stereo)")
	flags.IntVar(&options.Audio.LoopbackChannel, "loopback-channel", options.Audio.LoopbackChannel,
		"Input channel wired back to the output for latency calibration (-1 disables)")
	flags.BoolVarP(&options.Audio.LowLatency, "low-latency", "l", options.Audio.LowLatency,
		"Use low latency mode for real-time processing")

	// Sweep Configuration
	flags.Float64Var(&options.Sweep.StartFreq, "start-freq", options.Sweep.StartFreq,
		"Sweep start frequency in Hz")
	flags.Float64Var(&options.Sweep.EndFreq, "end-freq", options.Sweep.EndFreq,
		"Sweep end frequency in Hz")
	flags.Float64VarP(&options.Sweep.Duration, "duration", "d", options.Sweep.Duration,
		"Sweep duration in seconds")
	flags.Float64VarP(&options.Sweep.Amplitude, "amplitude", "a", options.Sweep.Amplitude,
		"Sweep peak amplitude in (0, 1]")
	flags.Float64Var(&volume, "volume", -1,
		"Playback volume as a fader position in [0, 1]; perceptual, overrides --amplitude")

	// Export Configuration
	flags.StringVar(&options.Export.OutputDir, "output-dir", options.Export.OutputDir,
		"Directory measurement artifacts are written to")
	flags.BoolVar(&options.Export.WriteSweep, "write-sweep", options.Export.WriteSweep,
		"Write the generated sweep and inverse filter to WAV")
	flags.BoolVar(&options.Export.WriteCapture, "write-capture", options.Export.WriteCapture,
		"Write the raw capture to WAV")
	flags.BoolVar(&options.Export.WriteIR, "write-ir", options.Export.WriteIR,
		"Write the impulse response to WAV")
	flags.BoolVar(&options.Export.WriteResponse, "write-response", options.Export.WriteResponse,
		"Write the frequency response and room metrics to JSON")

	// Transport Configuration
	flags.BoolVar(&options.Transport.WSEnabled, "ws", options.Transport.WSEnabled,
		"Serve session events to WebSocket monitors")
	flags.StringVar(&options.Transport.WSAddress, "ws-address", options.Transport.WSAddress,
		"WebSocket listen address")
	flags.BoolVar(&options.Transport.UDPEnabled, "udp", options.Transport.UDPEnabled,
		"Stream input level datagrams over UDP")
	flags.StringVar(&options.Transport.UDPAddress, "udp-address", options.Transport.UDPAddress,
		"UDP level feed target address")

	// Debug Configuration
	flags.StringVar(&options.LogLevel, "log-level", options.LogLevel,
		"Log level (debug, info, warn, error)")
	flags.BoolVarP(&verbose, "verbose", "v", false,
		"Shorthand for --log-level debug")

	// Execute the CLI
	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	if verbose {
		options.LogLevel = "debug"
	}

	if volume >= 0 {
		options.Sweep.Amplitude = sweep.VolumeToAmplitude(volume)
	}

	// Flags can break invariants the file satisfied.
	if err := options.Validate(); err != nil {
		return nil, err
	}

	return options, nil
}
