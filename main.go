// SPDX-License-Identifier: MIT
package main

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"binterp/cmd"
	"binterp/internal/analysis"
	"binterp/internal/audio"
	"binterp/internal/config"
	"binterp/internal/interp"
	applog "binterp/internal/log"
	"binterp/internal/transport"
	"binterp/internal/transport/udp"
	"binterp/internal/tui"
	"binterp/pkg/build"
)

// main runs in three phases:
//
// 1. Startup Phase (Cold Path):
//   - Configure runtime settings
//   - Initialize PortAudio
//   - Parse command line arguments and load configuration
//   - Execute one-off commands if requested
//
// 2. Concurrent Phase (Hot Path):
//   - Build the interpolation chain and start the duplex stream
//   - Start recording and spectrum publishers if enabled
//   - Run the TUI when requested
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop publishers and recording
//   - Clean up resources
func main() {
	// Limit OS threads: one for the audio callback, one for control and I/O.
	runtime.GOMAXPROCS(2)

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("%v", err)
	}
	defer audio.Terminate()

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		// Help or version output already handled.
		return
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	}

	if cfg.Command == "list" {
		if err := audio.ListDevices(); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	engine, shutdown, err := startEngine(cfg)
	if err != nil {
		applog.Fatalf("%v", err)
	}

	if cfg.Command == "tui" {
		if err := tui.StartDeviceListUI(engine, cfg.Interp.LengthSeconds, cfg.Interp.VarianceSeconds); err != nil {
			applog.Errorf("UI error: %v", err)
		}
	} else {
		applog.Infof("%s running, ctrl-c to stop", build.GetInfo().Name)

		done := make(chan os.Signal, 1)
		signal.Notify(done, os.Interrupt, syscall.SIGTERM)
		<-done
	}

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	shutdown()

	if cfg.Recording.Enabled {
		if err := engine.StopRecording(); err != nil {
			applog.Errorf("Error stopping recording: %v", err)
		} else {
			fmt.Printf("\nRecording saved to: %s\n", cfg.Recording.OutputFile)
		}
	}

	if err := engine.Close(); err != nil {
		applog.Errorf("Error closing audio engine: %v", err)
	}
}

// startEngine builds the interpolation chain, opens the duplex stream, and
// starts the optional publishers. The returned function stops everything the
// publishers own; the engine itself is closed by the caller.
func startEngine(cfg *config.Config) (*audio.Engine, func(), error) {
	core, err := interp.NewEngine(cfg.Audio.SampleRate, cfg.Audio.FFTSize)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Interp.Seed != 0 {
		core.SetSeed(cfg.Interp.Seed)
	}
	core.SetTiming(cfg.Interp.LengthSeconds, cfg.Interp.VarianceSeconds)
	applog.Infof("%s", core.Describe())

	windowType, err := analysis.ParseWindowFunc(cfg.Audio.Window)
	if err != nil {
		applog.Warnf("%v, falling back to hann", err)
	}

	interpolator, err := analysis.NewSpectralInterpolator(
		cfg.Audio.FFTSize, cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer, core, windowType)
	if err != nil {
		return nil, nil, err
	}

	engine, err := audio.NewEngine(cfg, interpolator)
	if err != nil {
		return nil, nil, err
	}

	if err := engine.StartStream(); err != nil {
		return nil, nil, err
	}

	if cfg.Recording.Enabled {
		if err := engine.StartRecording(cfg.Recording.OutputFile); err != nil {
			engine.Close()
			return nil, nil, err
		}
	}

	var stops []func()

	if cfg.Transport.UDPEnabled {
		sender, err := udp.NewSender(cfg.Transport.UDPTargetAddress)
		if err != nil {
			applog.Errorf("UDP sender unavailable: %v", err)
		} else {
			publisher, err := udp.NewPublisher(cfg.Transport.UDPSendInterval, sender, interpolator)
			if err != nil {
				applog.Errorf("UDP publisher unavailable: %v", err)
				sender.Close()
			} else {
				publisher.Start()
				stops = append(stops, func() {
					publisher.Stop()
					sender.Close()
				})
			}
		}
	}

	var bandSink transport.Transport
	if cfg.Transport.WebSocketEnabled {
		bandSink = transport.NewWebSocketTransport(cfg.Transport.WebSocketAddr)
	} else if cfg.Debug {
		bandSink = transport.NewLoggingTransport()
	}
	if bandSink != nil {
		bands, err := analysis.NewSpectralBands(interpolator, bandSink)
		if err != nil {
			applog.Errorf("band publisher unavailable: %v", err)
			bandSink.Close()
		} else {
			sink := bandSink
			stop := startBandLoop(bands, cfg.Transport.UDPSendInterval)
			stops = append(stops, func() {
				stop()
				sink.Close()
			})
		}
	}

	shutdown := func() {
		for _, stop := range stops {
			stop()
		}
	}
	return engine, shutdown, nil
}

// startBandLoop publishes band energies on a ticker until stopped.
func startBandLoop(bands *analysis.SpectralBands, interval time.Duration) func() {
	if interval <= 0 {
		interval = 33 * time.Millisecond
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := bands.PublishOnce(); err != nil {
					applog.Debugf("band publish skipped: %v", err)
				}
			}
		}
	}()

	return func() { close(done) }
}
