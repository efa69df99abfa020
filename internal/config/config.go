// SPDX-License-Identifier: MIT
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"binterp/pkg/bitint"
)

// Defaults and limits for the engine configuration.
const (
	DefaultSampleRate      = 44100.0 // CD-quality audio
	DefaultFramesPerBuffer = 512     // Balanced latency/performance
	DefaultFFTSize         = 4096    // Spectral frame length (bins)
	DefaultChannels        = 1       // Mono processing chain
	DefaultDeviceID        = -1      // -1 selects the system default device

	MinSampleRate   = 8000.0  // Minimum usable sample rate (Hz)
	MaxSampleRate   = 192000.0
	MinFFTSize      = 64
	MaxFFTSize      = 16384
	MaxBufferFrames = 8192
)

// Config is the full runtime configuration, loaded from YAML with env-var
// overrides and optionally adjusted by CLI flags.
type Config struct {
	Debug    bool   `yaml:"debug"`             // Verbose logging and debug features.
	LogLevel string `yaml:"log_level"`         // "debug", "info", "warn", "error".
	Command  string `yaml:"command,omitempty"` // One-off command instead of running the engine (e.g. "list").

	Audio     AudioConfig     `yaml:"audio"`
	Interp    InterpConfig    `yaml:"interp"`
	Recording RecordingConfig `yaml:"recording"`
	Transport TransportConfig `yaml:"transport"`
}

// AudioConfig holds device and stream settings.
type AudioConfig struct {
	InputDevice     int     `yaml:"input_device"`      // PortAudio device index (-1 for default).
	OutputDevice    int     `yaml:"output_device"`     // PortAudio device index (-1 for default).
	SampleRate      float64 `yaml:"sample_rate"`       // Sample rate in Hz.
	FramesPerBuffer int     `yaml:"frames_per_buffer"` // Callback block size in frames.
	FFTSize         int     `yaml:"fft_size"`          // Spectral frame length; power of two.
	LowLatency      bool    `yaml:"low_latency"`       // Request low-latency settings from the device.
	Channels        int     `yaml:"channels"`          // Input channels captured (processing is mono).
	Window          string  `yaml:"window"`            // Analysis window name (hann, hamming, blackman, ...).
}

// InterpConfig holds the bin interpolation timing parameters. Values outside
// the engine's limits are clamped by the engine, never rejected here.
type InterpConfig struct {
	LengthSeconds   float64 `yaml:"length_seconds"`   // Base interpolation length in seconds.
	VarianceSeconds float64 `yaml:"variance_seconds"` // Random duration variance in seconds.
	Seed            int64   `yaml:"seed"`             // Random seed; 0 means time-seeded.
}

// RecordingConfig holds settings for recording the processed output.
type RecordingConfig struct {
	Enabled    bool   `yaml:"enabled"`     // Record interpolated output to file.
	OutputFile string `yaml:"output_file"` // Target WAV path; empty for a timestamped name.
	BitDepth   int    `yaml:"bit_depth"`   // Bit depth of the WAV file.
}

// TransportConfig holds settings for publishing the interpolated spectrum.
type TransportConfig struct {
	WebSocketEnabled bool          `yaml:"websocket_enabled"` // Broadcast spectra over WebSocket.
	WebSocketAddr    string        `yaml:"websocket_addr"`    // Listen address for the WebSocket server.
	UDPEnabled       bool          `yaml:"udp_enabled"`       // Send binary spectrum packets over UDP.
	UDPTargetAddress string        `yaml:"udp_target_address"` // Target address for UDP packets.
	UDPSendInterval  time.Duration `yaml:"udp_send_interval"` // Interval between UDP packets.
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Debug:    false,
		LogLevel: "info",
		Audio: AudioConfig{
			InputDevice:     DefaultDeviceID,
			OutputDevice:    DefaultDeviceID,
			SampleRate:      DefaultSampleRate,
			FramesPerBuffer: DefaultFramesPerBuffer,
			FFTSize:         DefaultFFTSize,
			LowLatency:      false,
			Channels:        DefaultChannels,
			Window:          "hann",
		},
		Interp: InterpConfig{
			LengthSeconds:   10,
			VarianceSeconds: 2,
			Seed:            0,
		},
		Recording: RecordingConfig{
			Enabled:    false,
			OutputFile: "",
			BitDepth:   32,
		},
		Transport: TransportConfig{
			WebSocketEnabled: false,
			WebSocketAddr:    ":8080",
			UDPEnabled:       false,
			UDPTargetAddress: "127.0.0.1:9090",
			UDPSendInterval:  33 * time.Millisecond, // ~30 Hz
		},
	}
}

// Load reads configuration from the YAML file at path. An empty path falls
// back to "config.yaml" in the working directory if present, otherwise the
// built-in defaults. Environment overrides apply after the file, and the
// result is validated.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		if _, err := os.Stat("config.yaml"); err == nil {
			path = "config.yaml"
		}
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks the structural settings. Interpolation seconds are not
// checked here; the engine clamps them.
func (c *Config) Validate() error {
	if c.Audio.SampleRate < MinSampleRate || c.Audio.SampleRate > MaxSampleRate {
		return fmt.Errorf("audio.sample_rate %v outside [%v, %v]",
			c.Audio.SampleRate, MinSampleRate, MaxSampleRate)
	}
	if c.Audio.FramesPerBuffer < 1 || c.Audio.FramesPerBuffer > MaxBufferFrames {
		return fmt.Errorf("audio.frames_per_buffer %d outside [1, %d]",
			c.Audio.FramesPerBuffer, MaxBufferFrames)
	}
	if c.Audio.FFTSize < MinFFTSize || c.Audio.FFTSize > MaxFFTSize || !bitint.IsPowerOfTwo(c.Audio.FFTSize) {
		return fmt.Errorf("audio.fft_size must be a power of two in [%d, %d]: %d",
			MinFFTSize, MaxFFTSize, c.Audio.FFTSize)
	}
	if c.Audio.Channels < 1 {
		return fmt.Errorf("audio.channels must be >= 1: %d", c.Audio.Channels)
	}
	if c.Transport.UDPEnabled && c.Transport.UDPTargetAddress == "" {
		return fmt.Errorf("transport.udp_target_address must be set when UDP is enabled")
	}
	if c.Transport.WebSocketEnabled && c.Transport.WebSocketAddr == "" {
		return fmt.Errorf("transport.websocket_addr must be set when WebSocket is enabled")
	}
	return nil
}

// applyEnvOverrides lets deployment environments override selected settings
// without touching the config file.
func (c *Config) applyEnvOverrides() {
	if val, ok := os.LookupEnv("BINTERP_DEBUG"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Debug = b
		}
	}
	if val, ok := os.LookupEnv("BINTERP_LOG_LEVEL"); ok {
		c.LogLevel = val
	}
	if val, ok := os.LookupEnv("BINTERP_LENGTH_SECONDS"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Interp.LengthSeconds = f
		}
	}
	if val, ok := os.LookupEnv("BINTERP_VARIANCE_SECONDS"); ok {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			c.Interp.VarianceSeconds = f
		}
	}
	if val, ok := os.LookupEnv("BINTERP_UDP_ENABLED"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			c.Transport.UDPEnabled = b
		}
	}
	if val, ok := os.LookupEnv("BINTERP_UDP_TARGET_ADDRESS"); ok {
		c.Transport.UDPTargetAddress = val
	}
	if val, ok := os.LookupEnv("BINTERP_UDP_SEND_INTERVAL"); ok {
		if d, err := time.ParseDuration(val); err == nil {
			c.Transport.UDPSendInterval = d
		}
	}
}
