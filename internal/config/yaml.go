// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// LoadConfig loads configuration from a YAML file at path. If path is
// empty it searches default locations ("roomsweep.yaml", "config.yaml")
// and falls back to built-in defaults when no file is found. Environment
// overrides are applied after the file, and the final configuration is
// validated.
func LoadConfig(path string) (*Config, error) {
	cfg := NewConfig()

	if path == "" {
		candidates := []string{"roomsweep.yaml", "config.yaml"}
		for _, candidate := range candidates {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
		if path == "" {
			cfg.applyEnvOverrides()
			if err := cfg.Validate(); err != nil {
				return nil, fmt.Errorf("invalid default configuration: %w", err)
			}
			return cfg, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Environment overrides win over file values.
	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks field constraints via struct tags, then the
// cross-field invariants the tags cannot express.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Sweep.StartFreq >= c.Sweep.EndFreq {
		return fmt.Errorf("sweep.start_freq %.1f must be below sweep.end_freq %.1f",
			c.Sweep.StartFreq, c.Sweep.EndFreq)
	}

	nyquist := c.Audio.SampleRate / 2
	if c.Sweep.EndFreq > nyquist {
		return fmt.Errorf("sweep.end_freq %.1f exceeds Nyquist %.1f for sample rate %.0f",
			c.Sweep.EndFreq, nyquist, c.Audio.SampleRate)
	}

	if c.Audio.LoopbackChannel >= c.Audio.InputChannels {
		return fmt.Errorf("audio.loopback_channel %d requires at least %d input channels, have %d",
			c.Audio.LoopbackChannel, c.Audio.LoopbackChannel+1, c.Audio.InputChannels)
	}

	if c.Session.QueueFrames > MaxQueueSize {
		return fmt.Errorf("session.queue_frames %d exceeds maximum %d",
			c.Session.QueueFrames, MaxQueueSize)
	}

	return nil
}

func (cfg *Config) applyEnvOverrides() {
	// ROOMSWEEP_{...} overrides, applied after file values so operators
	// can tweak a deployment without editing it.

	if val, ok := os.LookupEnv("ROOMSWEEP_LOG_LEVEL"); ok {
		cfg.LogLevel = val
	}
	if val, ok := os.LookupEnv("ROOMSWEEP_INPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.InputDevice = iVal
		}
	}
	if val, ok := os.LookupEnv("ROOMSWEEP_OUTPUT_DEVICE"); ok {
		if iVal, err := strconv.Atoi(val); err == nil {
			cfg.Audio.OutputDevice = iVal
		}
	}
	if val, ok := os.LookupEnv("ROOMSWEEP_SAMPLE_RATE"); ok {
		if fVal, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Audio.SampleRate = fVal
		}
	}
	if val, ok := os.LookupEnv("ROOMSWEEP_WS_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.WSEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ROOMSWEEP_WS_ADDRESS"); ok {
		cfg.Transport.WSAddress = val
	}
	if val, ok := os.LookupEnv("ROOMSWEEP_UDP_ENABLED"); ok {
		if bVal, err := strconv.ParseBool(val); err == nil {
			cfg.Transport.UDPEnabled = bVal
		}
	}
	if val, ok := os.LookupEnv("ROOMSWEEP_UDP_ADDRESS"); ok {
		cfg.Transport.UDPAddress = val
	}
	if val, ok := os.LookupEnv("ROOMSWEEP_UDP_SEND_INTERVAL"); ok {
		if dur, err := time.ParseDuration(val); err == nil {
			cfg.Transport.UDPSendInterval = Duration(dur)
		}
	}
}
