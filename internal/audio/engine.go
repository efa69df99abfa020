// SPDX-License-Identifier: MIT
/*
Package audio implements the real-time duplex engine:
- Lock-free capture and playback using PortAudio
- Spectral interpolation resynthesis between input and output
- Noise gate with branchless implementation
- WAV recording of the interpolated output with atomic state management

Thread Safety:
- Uses atomic operations for state management and timing handoff
- Pre-allocates buffers to avoid GC in hot path
- Locks OS thread during audio processing
*/
package audio

import (
	"fmt"
	"os"
	"runtime"
	"sync/atomic"
	"time"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/gordonklaus/portaudio"

	"binterp/internal/analysis"
	"binterp/internal/config"
	applog "binterp/internal/log"
)

// timingUpdate carries a requested interpolation time change from a control
// goroutine into the audio callback.
type timingUpdate struct {
	lengthSeconds   float64
	varianceSeconds float64
}

type Engine struct {
	// Core configuration and state.
	config *config.Config

	// Duplex stream handling.
	inputDevice   *portaudio.DeviceInfo
	outputDevice  *portaudio.DeviceInfo
	inputLatency  time.Duration
	outputLatency time.Duration
	stream        *portaudio.Stream

	// Spectral interpolation between capture and playback.
	interpolator *analysis.SpectralInterpolator
	monoInput    []int32 // Mono working buffer for the processing chain
	monoOutput   []int32 // Interpolated resynthesis before channel expansion

	// Pending timing change, applied at the top of the next callback.
	pendingTiming atomic.Pointer[timingUpdate]

	// Noise gate for signal conditioning.
	gateEnabled   bool
	gateThreshold int32 // Absolute amplitude threshold (0-2147483647)

	// Recording state and buffers.
	isRecording int32 // Atomic flag for thread-safe state
	outputFile  *os.File
	wavEncoder  *wav.Encoder
	sampleBuf   *goaudio.IntBuffer // Reusable buffer for format conversion
}

// NewEngine wires a duplex engine around an already constructed spectral
// interpolator so the caller can share it with transports and the UI.
func NewEngine(cfg *config.Config, interpolator *analysis.SpectralInterpolator) (*Engine, error) {
	if interpolator == nil {
		return nil, fmt.Errorf("audio: interpolator cannot be nil")
	}

	inputDevice, err := InputDevice(cfg.Audio.InputDevice)
	if err != nil {
		return nil, err
	}
	outputDevice, err := OutputDevice(cfg.Audio.OutputDevice)
	if err != nil {
		return nil, err
	}

	engine := &Engine{
		config:        cfg,
		inputDevice:   inputDevice,
		outputDevice:  outputDevice,
		interpolator:  interpolator,
		monoInput:     make([]int32, cfg.Audio.FramesPerBuffer),
		monoOutput:    make([]int32, cfg.Audio.FramesPerBuffer),
		gateEnabled:   false,
		gateThreshold: 2147483647 / 1000, // ~0.1% of full scale
	}

	if cfg.Audio.LowLatency {
		engine.inputLatency = inputDevice.DefaultLowInputLatency
		engine.outputLatency = outputDevice.DefaultLowOutputLatency
	} else {
		engine.inputLatency = inputDevice.DefaultHighInputLatency
		engine.outputLatency = outputDevice.DefaultHighOutputLatency
	}

	return engine, nil
}

// SetInterpolationTime schedules a new interpolation length and variance in
// seconds. The change is picked up by the audio callback at its next block
// boundary; legs already in flight keep their original durations.
func (e *Engine) SetInterpolationTime(lengthSeconds, varianceSeconds float64) {
	e.pendingTiming.Store(&timingUpdate{
		lengthSeconds:   lengthSeconds,
		varianceSeconds: varianceSeconds,
	})
}

func (e *Engine) StartStream() error {
	channels := e.config.Audio.Channels

	params := portaudio.StreamParameters{
		Input: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   e.inputDevice,
			Latency:  e.inputLatency,
		},
		Output: portaudio.StreamDeviceParameters{
			Channels: channels,
			Device:   e.outputDevice,
			Latency:  e.outputLatency,
		},
		FramesPerBuffer: e.config.Audio.FramesPerBuffer,
		SampleRate:      e.config.Audio.SampleRate,
	}

	stream, err := portaudio.OpenStream(params, e.processStream)
	if err != nil {
		return err
	}
	e.stream = stream

	e.interpolator.Reset()

	if err := e.stream.Start(); err != nil {
		e.stream.Close()
		return err
	}

	return nil
}

func (e *Engine) StopStream() error {
	if e.stream != nil {
		if err := e.stream.Stop(); err != nil {
			return err
		}

		if err := e.stream.Close(); err != nil {
			return err
		}

		e.stream = nil
	}

	return nil
}

// processStream is the core audio processing callback.
// Performance Critical:
// - Runs in a dedicated OS thread (LockOSThread)
// - Uses pre-allocated buffers only
// - No dynamic allocations in the hot path
func (e *Engine) processStream(in []int32, out []int32) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if upd := e.pendingTiming.Swap(nil); upd != nil {
		e.interpolator.Engine().SetTiming(upd.lengthSeconds, upd.varianceSeconds)
	}

	e.downmix(in)

	// Gate closed: interpolate toward silence instead of freezing.
	if e.gateEnabled && maxAmplitude(e.monoInput) <= e.gateThreshold {
		for i := range e.monoInput {
			e.monoInput[i] = 0
		}
	}

	e.interpolator.Process(e.monoInput, e.monoOutput)
	e.expand(out)

	// Write the interpolated output to the WAV file if recording.
	if atomic.LoadInt32(&e.isRecording) == 1 && e.wavEncoder != nil {
		e.sampleBuf.Data = e.sampleBuf.Data[:len(e.monoOutput)]
		for i, sample := range e.monoOutput {
			e.sampleBuf.Data[i] = int(sample)
		}

		if err := e.wavEncoder.Write(e.sampleBuf); err != nil {
			applog.Errorf("recording write failed: %v", err)
		}
	}
}

// downmix copies the first channel of each interleaved frame into monoInput.
func (e *Engine) downmix(in []int32) {
	channels := e.config.Audio.Channels
	if channels == 1 {
		copy(e.monoInput, in)
		return
	}
	for i := range e.monoInput {
		if i*channels < len(in) {
			e.monoInput[i] = in[i*channels]
		} else {
			e.monoInput[i] = 0
		}
	}
}

// expand duplicates the mono result across every interleaved output channel.
func (e *Engine) expand(out []int32) {
	channels := e.config.Audio.Channels
	if channels == 1 {
		copy(out, e.monoOutput)
		return
	}
	for i, sample := range e.monoOutput {
		base := i * channels
		for c := 0; c < channels && base+c < len(out); c++ {
			out[base+c] = sample
		}
	}
}

// maxAmplitude finds the peak absolute sample value without branching.
func maxAmplitude(buffer []int32) int32 {
	var peak int32
	for i := range buffer {
		sample := buffer[i]
		mask := sample >> 31
		amplitude := (sample ^ mask) - mask
		diff := amplitude - peak
		peak += (diff & (diff >> 31)) ^ diff
	}
	return peak
}
