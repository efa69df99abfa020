package audio

import (
	"fmt"
	"math"
	"testing"

	"binterp/internal/analysis"
	"binterp/internal/config"
	"binterp/internal/interp"
)

const (
	testSampleRate = 48000.0
	testFrameSize  = 128
	testFFTSize    = 256

	lowThreshold  = int32(math.MaxInt32 / 1000)
	highThreshold = int32(math.MaxInt32 / 2)
)

var (
	quietBuffer = makeBuffer(testFrameSize, math.MaxInt32/10000)
	loudBuffer  = makeBuffer(testFrameSize, math.MaxInt32/2)
	testBuffer  = makeBuffer(testFrameSize, math.MaxInt32/100)
)

func makeBuffer(size int, peak int32) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		if i%2 == 0 {
			buffer[i] = peak
		} else {
			buffer[i] = -peak
		}
	}
	return buffer
}

func formatFloat(v float64) string { return fmt.Sprintf("%.4f", v) }

func absFloat(v float64) float64 { return math.Abs(v) }

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.Audio.SampleRate = testSampleRate
	cfg.Audio.FramesPerBuffer = testFrameSize
	cfg.Audio.FFTSize = testFFTSize
	cfg.Audio.Channels = 1
	return cfg
}

// newProcessingEngine builds an engine with a live interpolation chain but no
// PortAudio stream, so the callback can be driven directly.
func newProcessingEngine(t *testing.T) *Engine {
	t.Helper()

	cfg := testConfig()
	core, err := interp.NewEngine(cfg.Audio.SampleRate, cfg.Audio.FFTSize)
	if err != nil {
		t.Fatalf("interp.NewEngine() error = %v", err)
	}
	core.SetSeed(1)

	interpolator, err := analysis.NewSpectralInterpolator(
		cfg.Audio.FFTSize, cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer, core, analysis.Hann)
	if err != nil {
		t.Fatalf("NewSpectralInterpolator() error = %v", err)
	}

	return &Engine{
		config:       cfg,
		interpolator: interpolator,
		monoInput:    make([]int32, testFrameSize),
		monoOutput:   make([]int32, testFrameSize),
	}
}

func TestNewEngineRejectsNilInterpolator(t *testing.T) {
	if _, err := NewEngine(testConfig(), nil); err == nil {
		t.Error("nil interpolator expected error")
	}
}

func TestCallbackAppliesPendingTiming(t *testing.T) {
	engine := newProcessingEngine(t)

	engine.SetInterpolationTime(1.5, 0.25)

	in := make([]int32, testFrameSize)
	out := make([]int32, testFrameSize)
	engine.processStream(in, out)

	core := engine.interpolator.Engine()
	if got := core.LengthSeconds(); got != 1.5 {
		t.Errorf("length after callback = %g, want 1.5", got)
	}
	if got := core.VarianceSeconds(); got != 0.25 {
		t.Errorf("variance after callback = %g, want 0.25", got)
	}
	if engine.pendingTiming.Load() != nil {
		t.Error("pending timing not consumed by callback")
	}
}

func TestCallbackKeepsTimingWithoutUpdate(t *testing.T) {
	engine := newProcessingEngine(t)
	core := engine.interpolator.Engine()
	before := core.LengthSeconds()

	engine.processStream(make([]int32, testFrameSize), make([]int32, testFrameSize))

	if got := core.LengthSeconds(); got != before {
		t.Errorf("length changed without an update: %g -> %g", before, got)
	}
}

func TestCallbackGatesQuietInput(t *testing.T) {
	engine := newProcessingEngine(t)
	engine.EnableGate()
	engine.SetGateThreshold(0.5)

	in := make([]int32, testFrameSize)
	copy(in, quietBuffer)
	out := make([]int32, testFrameSize)
	engine.processStream(in, out)

	for i, v := range engine.monoInput {
		if v != 0 {
			t.Fatalf("gated input sample %d = %d, want 0", i, v)
		}
	}
}

func TestCallbackPassesLoudInput(t *testing.T) {
	engine := newProcessingEngine(t)
	engine.EnableGate()
	engine.SetGateThreshold(0.001)

	in := make([]int32, testFrameSize)
	copy(in, loudBuffer)
	out := make([]int32, testFrameSize)
	engine.processStream(in, out)

	var nonZero bool
	for _, v := range engine.monoInput {
		if v != 0 {
			nonZero = true
			break
		}
	}
	if !nonZero {
		t.Error("loud input was zeroed by an open gate")
	}
}

func TestDownmixTakesFirstChannel(t *testing.T) {
	cfg := testConfig()
	cfg.Audio.Channels = 2
	engine := &Engine{
		config:    cfg,
		monoInput: make([]int32, 4),
	}

	// Interleaved stereo: left samples 1..4, right samples negated.
	in := []int32{1, -1, 2, -2, 3, -3, 4, -4}
	engine.downmix(in)

	want := []int32{1, 2, 3, 4}
	for i := range want {
		if engine.monoInput[i] != want[i] {
			t.Errorf("monoInput[%d] = %d, want %d", i, engine.monoInput[i], want[i])
		}
	}
}

func TestExpandDuplicatesAcrossChannels(t *testing.T) {
	cfg := testConfig()
	cfg.Audio.Channels = 2
	engine := &Engine{
		config:     cfg,
		monoOutput: []int32{10, 20, 30},
	}

	out := make([]int32, 6)
	engine.expand(out)

	want := []int32{10, 10, 20, 20, 30, 30}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, out[i], want[i])
		}
	}
}

// TestBranchlessPeakHotPath verifies the amplitude scan allocates nothing.
func TestBranchlessPeakHotPath(t *testing.T) {
	buffer := make([]int32, 1024)
	for i := range buffer {
		buffer[i] = int32((i % 100) * 10000000)
	}

	allocs := testing.AllocsPerRun(100, func() {
		_ = maxAmplitude(buffer)
	})

	if allocs > 0 {
		t.Errorf("Expected zero allocations in peak scan, got %.1f", allocs)
	}
}

func TestMaxAmplitudeHandlesNegativePeaks(t *testing.T) {
	buffer := []int32{5, -100, 42, -7}
	if got := maxAmplitude(buffer); got != 100 {
		t.Errorf("maxAmplitude() = %d, want 100", got)
	}
	if got := maxAmplitude(nil); got != 0 {
		t.Errorf("maxAmplitude(nil) = %d, want 0", got)
	}
}

func BenchmarkCallbackHotPath(b *testing.B) {
	cfg := testConfig()
	core, err := interp.NewEngine(cfg.Audio.SampleRate, cfg.Audio.FFTSize)
	if err != nil {
		b.Fatalf("interp.NewEngine() error = %v", err)
	}
	interpolator, err := analysis.NewSpectralInterpolator(
		cfg.Audio.FFTSize, cfg.Audio.SampleRate, cfg.Audio.FramesPerBuffer, core, analysis.Hann)
	if err != nil {
		b.Fatalf("NewSpectralInterpolator() error = %v", err)
	}
	engine := &Engine{
		config:       cfg,
		interpolator: interpolator,
		monoInput:    make([]int32, testFrameSize),
		monoOutput:   make([]int32, testFrameSize),
	}

	in := make([]int32, testFrameSize)
	copy(in, testBuffer)
	out := make([]int32, testFrameSize)

	b.ReportAllocs()
	b.ResetTimer()

	for b.Loop() {
		engine.processStream(in, out)
	}
}
