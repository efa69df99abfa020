// SPDX-License-Identifier: MIT
package interp

import (
	"math"
	"testing"
)

func newTimingEngine(t *testing.T, sampleRate float64, fftSize int) *Engine {
	t.Helper()
	e, err := NewEngine(sampleRate, fftSize)
	if err != nil {
		t.Fatalf("NewEngine(%v, %d) error = %v", sampleRate, fftSize, err)
	}
	return e
}

func TestSetTimingDerivesFrameBounds(t *testing.T) {
	// length_frames = floor(0.01 * 44100 / 4) = 110, variance 0.
	e := newTimingEngine(t, 44100, 4)
	e.SetTiming(0.01, 0)

	if got := e.timing.lengthFrames; got != 110 {
		t.Errorf("lengthFrames = %d, want 110", got)
	}
	min, max := e.FrameBounds()
	if min != 110 || max != 110 {
		t.Errorf("frame bounds = [%d, %d], want [110, 110]", min, max)
	}

	// Every armed leg uses the degenerate fixed duration.
	inA := []float64{1, 1, 1, 1}
	inB := []float64{0, 0, 0, 0}
	idx := []float64{0, 1, 2, 3}
	out := make([]float64, 4)
	e.ProcessBlock(inA, inB, idx, out, make([]float64, 4))

	for bin := range e.bins {
		if got := e.bins[bin].totalFrames; got != 110 {
			t.Errorf("bin %d totalFrames = %d, want 110", bin, got)
		}
	}
}

func TestSetTimingClampsSeconds(t *testing.T) {
	e := newTimingEngine(t, 48000, 1024)

	tests := []struct {
		length, variance         float64
		wantLength, wantVariance float64
	}{
		{-5, -5, 0, 0},
		{50, 20, 30, 15},
		{10, 2, 10, 2},
		{math.NaN(), math.NaN(), 0, 0},
		{0, 0, 0, 0},
	}
	for _, tt := range tests {
		e.SetTiming(tt.length, tt.variance)
		if got := e.LengthSeconds(); got != tt.wantLength {
			t.Errorf("SetTiming(%v, %v): length = %v, want %v", tt.length, tt.variance, got, tt.wantLength)
		}
		if got := e.VarianceSeconds(); got != tt.wantVariance {
			t.Errorf("SetTiming(%v, %v): variance = %v, want %v", tt.length, tt.variance, got, tt.wantVariance)
		}
	}
}

func TestFrameBoundsAlwaysSane(t *testing.T) {
	rates := []float64{8000, 22050, 44100, 48000, 96000, 192000}
	sizes := []int{1, 4, 64, 512, 1024, 4096, 8192}
	timings := [][2]float64{{0, 0}, {0.001, 0}, {0.01, 0.02}, {10, 2}, {30, 15}}

	for _, rate := range rates {
		for _, size := range sizes {
			e := newTimingEngine(t, rate, size)
			for _, tm := range timings {
				e.SetTiming(tm[0], tm[1])
				min, max := e.FrameBounds()
				if min < 1 {
					t.Errorf("rate=%v size=%d timing=%v: minFrames = %d, want >= 1", rate, size, tm, min)
				}
				if max < min {
					t.Errorf("rate=%v size=%d timing=%v: maxFrames = %d < minFrames = %d", rate, size, tm, max, min)
				}
			}
		}
	}
}

func TestSetTimingLeavesLiveLegsAlone(t *testing.T) {
	e := engineWithFixedLeg(t, 4, 100)

	inA := []float64{1, 1, 1, 1}
	inB := []float64{0, 0, 0, 0}
	idx := []float64{0, 1, 2, 3}
	out := make([]float64, 4)
	e.ProcessBlock(inA, inB, idx, out, make([]float64, 4))

	before := e.bins[1]
	e.SetTiming(0.001, 0)
	after := e.bins[1]

	if before != after {
		t.Errorf("SetTiming mutated bin state: %+v -> %+v", before, after)
	}
}

func TestReconfigureRederivesFromStoredSeconds(t *testing.T) {
	e := newTimingEngine(t, 44100, 4)
	e.SetTiming(0.01, 0)

	if err := e.Reconfigure(88200, 4); err != nil {
		t.Fatalf("Reconfigure() error = %v", err)
	}
	if got := e.timing.lengthFrames; got != 220 {
		t.Errorf("lengthFrames after doubling the rate = %d, want 220", got)
	}
}

func TestSecondsToFramesFloors(t *testing.T) {
	if got := secondsToFrames(0.01, 44100, 4); got != 110 {
		t.Errorf("secondsToFrames(0.01, 44100, 4) = %d, want 110", got)
	}
	if got := secondsToFrames(0.0999, 1000, 100); got != 0 {
		t.Errorf("secondsToFrames(0.0999, 1000, 100) = %d, want 0", got)
	}
}
