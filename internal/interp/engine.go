// SPDX-License-Identifier: MIT
/*
Package interp smooths a streamed FFT spectrum over time by interpolating,
per frequency bin, between snapshots of the spectrum taken at different
points in time.

Each bin runs its own two-state machine: it either holds a live leg (moving
linearly from the value it last reached toward a captured target over a
randomized number of spectral frames) or it is waiting to capture a new
target from the input stream. The engine advances every addressed bin once
per sample position and rearms completed bins from the incoming values.

The per-block path is real-time safe: fixed-size state, no allocations, no
locks, no I/O. The Engine is not safe for concurrent use; callers that
change timing from a control goroutine must hand the change off to the
processing goroutine themselves (see internal/audio).
*/
package interp

import (
	"fmt"
	"math"
	"math/rand"
	"time"
)

// DefaultFFTSize is the bin count used when the host graph does not supply
// one.
const DefaultFFTSize = 4096

// binState is one bin's interpolation leg. Value pair A/B carries either
// magnitude/phase or real/imaginary, depending on the coordinate system of
// the surrounding spectral graph; the engine never interprets them.
type binState struct {
	currentA, currentB float64 // present interpolated values
	targetA, targetB   float64 // values being approached
	incA, incB         float64 // per-frame delta toward the target

	totalFrames   int  // frames chosen for this leg, >= 1 once armed
	elapsedFrames int  // frames advanced this leg, in [0, totalFrames]
	needsTarget   bool // leg complete (or never armed); capture before advancing
	rearmed       bool // captured earlier in the current block; later positions overwrite
}

// Engine interpolates between successive spectral snapshots, one state
// machine per frequency bin.
type Engine struct {
	sampleRate float64
	fftSize    int

	timing timing
	bins   []binState
	rng    *rand.Rand
}

// NewEngine creates an engine with fftSize bins. The bin count is fixed for
// the life of the engine. Timing starts at the defaults (10 s length, 2 s
// variance) and the random source is time-seeded; call SetSeed before
// processing for reproducible output.
func NewEngine(sampleRate float64, fftSize int) (*Engine, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("interp: sample rate must be > 0: %f", sampleRate)
	}
	if fftSize < 1 {
		return nil, fmt.Errorf("interp: fft size must be >= 1: %d", fftSize)
	}

	e := &Engine{
		sampleRate: sampleRate,
		fftSize:    fftSize,
		bins:       make([]binState, fftSize),
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	e.timing.set(DefaultLengthSeconds, DefaultVarianceSeconds, sampleRate, fftSize)
	e.Reset()

	return e, nil
}

// SampleRate returns the configured sample rate in Hz.
func (e *Engine) SampleRate() float64 { return e.sampleRate }

// FFTSize returns the bin count.
func (e *Engine) FFTSize() int { return e.fftSize }

// LengthSeconds returns the base interpolation length in seconds.
func (e *Engine) LengthSeconds() float64 { return e.timing.lengthSeconds }

// VarianceSeconds returns the random duration variance in seconds.
func (e *Engine) VarianceSeconds() float64 { return e.timing.varianceSeconds }

// FrameBounds returns the [min, max] spectral-frame range a newly armed leg
// draws its duration from.
func (e *Engine) FrameBounds() (min, max int) {
	return e.timing.minFrames, e.timing.maxFrames
}

// SetSeed reseeds the engine's random source. Two engines with identical
// configuration and seed produce bit-identical output for identical input.
func (e *Engine) SetSeed(seed int64) {
	e.rng = rand.New(rand.NewSource(seed))
}

// SetTiming updates the base interpolation length and its random variance,
// both in seconds. Out-of-range values are clamped, never rejected. Bins
// already interpolating finish with their current duration; only future
// rearms see the new bounds.
func (e *Engine) SetTiming(lengthSeconds, varianceSeconds float64) {
	e.timing.set(lengthSeconds, varianceSeconds, e.sampleRate, e.fftSize)
}

// Reconfigure adopts a new sample rate, rederives the frame bounds from the
// stored timing, and forces every bin to capture a fresh target: increments
// computed under the old timing are stale. The bin count is fixed at
// construction, so a differing fftSize is rejected.
func (e *Engine) Reconfigure(sampleRate float64, fftSize int) error {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return fmt.Errorf("interp: sample rate must be > 0: %f", sampleRate)
	}
	if fftSize != e.fftSize {
		return fmt.Errorf("interp: bin count is fixed at %d, cannot reconfigure to %d", e.fftSize, fftSize)
	}

	e.sampleRate = sampleRate
	e.timing.rederive(sampleRate, fftSize)
	e.Reset()

	return nil
}

// Reset marks every bin as awaiting a new target. The host graph calls this
// when audio processing (re)starts so the first block always captures fresh
// targets before producing output.
func (e *Engine) Reset() {
	for i := range e.bins {
		e.bins[i].needsTarget = true
		e.bins[i].rearmed = false
	}
}

// Describe returns a human-readable identification string for diagnostics.
func (e *Engine) Describe() string {
	return fmt.Sprintf("spectral bin interpolator: %d bins @ %.0f Hz, length %.2fs ± %.2fs",
		e.fftSize, e.sampleRate, e.timing.lengthSeconds, e.timing.varianceSeconds)
}

// ProcessBlock runs one block. inA and inB carry the spectral value pair,
// inIndex addresses the bin for each sample position (a float truncated
// toward zero and clamped into [0, fftSize-1], so a mismatched upstream
// index stream degrades instead of faulting). outA and outB receive the
// interpolated pair, one sample per input sample.
//
// The block is processed in two passes. The rearm pass walks sample
// positions in order and captures a new target, with a freshly randomized
// duration, for every addressed bin whose previous leg has completed; if a
// block addresses the same waiting bin from several positions, the last
// position wins. The advance pass then moves every addressed bin one frame
// along its leg and emits its value.
//
// Hot path: no allocations, no locks, bounded time. The frame count is the
// shortest of the five slices.
func (e *Engine) ProcessBlock(inA, inB, inIndex, outA, outB []float64) {
	n := len(inA)
	for _, s := range [][]float64{inB, inIndex, outA, outB} {
		if len(s) < n {
			n = len(s)
		}
	}

	// Rearm pass: capture new targets for completed bins. A bin captured at
	// an earlier position stays open to recapture for the rest of the pass.
	for i := 0; i < n; i++ {
		bin := e.clampBin(inIndex[i])
		if e.bins[bin].needsTarget || e.bins[bin].rearmed {
			e.acquireTarget(bin, inA[i], inB[i])
		}
	}

	// Advance-and-emit pass.
	for i := 0; i < n; i++ {
		s := &e.bins[e.clampBin(inIndex[i])]

		s.rearmed = false
		s.currentA += s.incA
		s.currentB += s.incB
		outA[i] = s.currentA
		outB[i] = s.currentB

		s.elapsedFrames++
		if s.elapsedFrames >= s.totalFrames {
			s.needsTarget = true
			s.elapsedFrames = 0
		}
	}
}

// acquireTarget arms bin with a new leg toward (a, b). The value the bin
// last reached becomes the new start point, and the leg duration is drawn
// uniformly from the configured frame bounds. Recapture within the same
// block keeps the original start point and replaces target and duration.
func (e *Engine) acquireTarget(bin int, a, b float64) {
	s := &e.bins[bin]

	if !s.rearmed {
		s.currentA = s.targetA
		s.currentB = s.targetB
		s.needsTarget = false
		s.rearmed = true
	}
	s.targetA = a
	s.targetB = b

	s.totalFrames = e.legFrames()
	s.incA = (s.targetA - s.currentA) / float64(s.totalFrames)
	s.incB = (s.targetB - s.currentB) / float64(s.totalFrames)

	s.elapsedFrames = 0
}

// legFrames draws a leg duration uniformly from [minFrames, maxFrames],
// inclusive. A degenerate range yields a fixed duration.
func (e *Engine) legFrames() int {
	span := e.timing.maxFrames - e.timing.minFrames
	if span <= 0 {
		return e.timing.minFrames
	}
	return e.timing.minFrames + e.rng.Intn(span+1)
}

// clampBin truncates a bin index from the signal stream toward zero and
// clamps it into [0, fftSize-1]. NaN maps to 0.
func (e *Engine) clampBin(idx float64) int {
	if math.IsNaN(idx) || idx <= 0 {
		return 0
	}
	if idx >= float64(e.fftSize) {
		return e.fftSize - 1
	}
	return int(idx)
}
