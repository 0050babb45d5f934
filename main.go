package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"syscall"
	"time"

	"roomsweep/cmd"
	"roomsweep/internal/analysis"
	"roomsweep/internal/audio"
	"roomsweep/internal/config"
	"roomsweep/internal/fft"
	applog "roomsweep/internal/log"
	"roomsweep/internal/session"
	"roomsweep/internal/sweep"
	"roomsweep/internal/transport"
	"roomsweep/internal/transport/udp"
	"roomsweep/internal/tui"
	"roomsweep/pkg/build"
)

// main runs one measurement pass. The program flow is divided into
// three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize PortAudio and the logger
//   - Parse command line arguments and layer the configuration
//   - Execute one-off commands if requested
//
// 2. Measurement Phase (Hot Path):
//   - Open the duplex stream and run the capture session
//   - Stream session events to the configured transports
//   - Publish input levels over UDP while the stream is live
//
// 3. Analysis Phase (Cold Path):
//   - Deconvolved impulse response in hand, derive the frequency
//     response and room metrics
//   - Write the requested artifacts to disk
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	// Limit OS threads: one for the PortAudio callback (time-critical),
	// one for the session and I/O.
	runtime.GOMAXPROCS(2)

	// Initialize PortAudio subsystem
	if err := audio.Initialize(); err != nil {
		applog.Fatalf("portaudio: %v", err)
	}
	defer audio.Terminate()

	// Parse command line arguments and build configuration
	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("configuration: %v", err)
	}

	if err := applog.Init(cfg.LogLevel, cfg.LogFile); err != nil {
		applog.Fatalf("logger: %v", err)
	}

	// Handle one-off commands (device listing, the interactive picker,
	// sweep generation) that don't require a measurement
	if cfg.Command != "measure" {
		if err := executeCommand(cfg); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// ==================== MEASUREMENT PHASE (Hot Path) ====================

	// Setup signal handling for graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	cache := fft.NewCache()
	defer cache.Close()

	// Every session event is mirrored to the log; WebSocket serves live
	// monitors when enabled.
	transports := transport.Fanout{transport.NewLoggingTransport()}
	if cfg.Transport.WSEnabled {
		ws, err := transport.NewWebSocketTransport(cfg.Transport.WSAddress)
		if err != nil {
			applog.Fatalf("websocket transport: %v", err)
		}
		transports = append(transports, ws)
	}
	defer transports.Close()

	bridge, err := audio.NewBridge(cfg)
	if err != nil {
		applog.Fatalf("audio bridge: %v", err)
	}

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPAddress)
		if err != nil {
			applog.Fatalf("udp transport: %v", err)
		}
		defer sender.Close()

		publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval.Std(), sender, bridge)
		if err != nil {
			applog.Fatalf("udp publisher: %v", err)
		}
		publisher.Start()
		defer publisher.Stop()
	}

	sess := session.New(cfg, bridge, transports, cache)

	// A termination signal cancels the session; it winds down through
	// its abort path and Run returns.
	go func() {
		<-done
		applog.Infof("signal received, cancelling measurement")
		sess.Cancel()
	}()

	result, err := sess.Run(context.Background())
	if err != nil {
		applog.Fatalf("measurement: %v", err)
	}

	// ==================== ANALYSIS PHASE (Cold Path) ====================

	response, metrics, err := analyze(cfg, cache, result)
	if err != nil {
		applog.Fatalf("analysis: %v", err)
	}

	if err := exportResults(cfg, result, response, metrics); err != nil {
		applog.Errorf("export: %v", err)
	}

	fmt.Printf("\nMeasurement complete: %d samples at %.0f Hz, latency %d samples, RT60 %.2f s\n",
		len(result.IR.Samples), result.IR.SampleRate, result.Report.LatencyOffset, metrics.RT60)
}

// executeCommand handles one-off commands that don't require the
// duplex stream, such as listing devices or pre-rendering the sweep.
func executeCommand(cfg *config.Config) error {
	switch cfg.Command {
	case "":
		// --help and --version were already handled by the CLI layer.
		return nil
	case "list":
		return audio.ListDevices()
	case "devices":
		return pickDevices()
	case "generate":
		return writeSweepFiles(cfg)
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

// pickDevices runs the interactive picker and prints the flags that
// reproduce the chosen pair.
func pickDevices() error {
	sel, err := tui.Pick()
	if err != nil {
		return err
	}

	fmt.Printf("Selected input %d, output %d. Measure with:\n\n", sel.InputID, sel.OutputID)
	fmt.Printf("  %s --input-device %d --output-device %d\n",
		build.Get().Name, sel.InputID, sel.OutputID)
	return nil
}

func sweepSpec(cfg *config.Config) sweep.Spec {
	return sweep.Spec{
		StartFreq:  cfg.Sweep.StartFreq,
		EndFreq:    cfg.Sweep.EndFreq,
		Duration:   cfg.Sweep.Duration,
		SampleRate: cfg.Audio.SampleRate,
		Amplitude:  cfg.Sweep.Amplitude,
	}
}

// writeSweepFiles renders the excitation signal to disk. Generation is
// deterministic, so the files can be regenerated at any time from the
// same configuration.
func writeSweepFiles(cfg *config.Config) error {
	sw, inv, err := sweep.Generate(sweepSpec(cfg))
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Export.OutputDir, 0o755); err != nil {
		return err
	}

	rate := int(cfg.Audio.SampleRate)
	for _, f := range []struct {
		name    string
		samples []float64
	}{
		{"sweep.wav", sw.Samples},
		{"inverse.wav", inv.Samples},
	} {
		path := filepath.Join(cfg.Export.OutputDir, f.name)
		if err := audio.WriteWAV(path, f.samples, rate); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

// analyze derives the frequency response and room metrics from a
// completed measurement. The response is taken over the windowed
// impulse response; the metrics read the unwindowed decay.
func analyze(cfg *config.Config, cache *fft.Cache, result *session.Result) (*analysis.FrequencyResponse, *analysis.RoomMetrics, error) {
	analyzer := analysis.NewAnalyzer(cache)

	metrics, err := analyzer.RoomMetrics(result.IR)
	if err != nil {
		return nil, nil, err
	}

	window := analysis.WindowBuilder{
		Left:       analysis.ShapeHann,
		Right:      analysis.ShapeTukey,
		LeftWidth:  cfg.Analysis.WindowLeftWidth,
		RightWidth: cfg.Analysis.WindowRightWidth,
		Width:      len(result.IR.Samples),
		Alpha:      cfg.Analysis.WindowAlpha,
	}.Build()

	response, err := analyzer.FrequencyResponse(result.IR, window, true)
	if err != nil {
		return nil, nil, err
	}

	if cfg.Analysis.SmoothingFraction > 0 {
		response, err = response.Smooth(cfg.Analysis.SmoothingFraction)
		if err != nil {
			return nil, nil, err
		}
	}

	if cfg.Analysis.ResamplePoints > 1 {
		response, err = response.ResampleLog(cfg.Sweep.StartFreq, cfg.Sweep.EndFreq, cfg.Analysis.ResamplePoints)
		if err != nil {
			return nil, nil, err
		}
	}

	return response, metrics, nil
}

// measurementFile is the JSON layout written next to the WAV artifacts.
type measurementFile struct {
	Time     string                      `json:"time"`
	Sweep    config.SweepConfig          `json:"sweep"`
	Report   session.Report              `json:"report"`
	Metrics  *analysis.RoomMetrics       `json:"metrics"`
	Response *analysis.FrequencyResponse `json:"response"`
}

// exportResults writes the artifacts selected in the export config.
// Time-domain sequences go to WAV, curves and figures to JSON; file
// names share a UTC timestamp so one measurement's artifacts sort
// together.
func exportResults(cfg *config.Config, result *session.Result, response *analysis.FrequencyResponse, metrics *analysis.RoomMetrics) error {
	if err := os.MkdirAll(cfg.Export.OutputDir, 0o755); err != nil {
		return err
	}

	stamp := time.Now().UTC().Format("20060102-150405")
	rate := int(result.IR.SampleRate)

	if cfg.Export.WriteSweep {
		if err := writeSweepFiles(cfg); err != nil {
			return err
		}
	}

	if cfg.Export.WriteCapture {
		path := filepath.Join(cfg.Export.OutputDir, stamp+"-capture.wav")
		if err := audio.WriteWAV(path, result.Capture, rate); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}

	if cfg.Export.WriteIR {
		path := filepath.Join(cfg.Export.OutputDir, stamp+"-ir.wav")
		if err := audio.WriteWAV(path, result.IR.Samples, rate); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}

	if cfg.Export.WriteResponse {
		path := filepath.Join(cfg.Export.OutputDir, stamp+"-response.json")
		data, err := json.MarshalIndent(measurementFile{
			Time:     time.Now().UTC().Format(time.RFC3339),
			Sweep:    cfg.Sweep,
			Report:   result.Report,
			Metrics:  metrics,
			Response: response,
		}, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}

	return nil
}
