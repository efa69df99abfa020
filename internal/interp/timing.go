// SPDX-License-Identifier: MIT
package interp

import "math"

// Interpolation timing limits, in seconds. User input is clamped into these
// ranges rather than rejected so the control path can never fail.
const (
	DefaultLengthSeconds   = 10.0
	DefaultVarianceSeconds = 2.0

	MinLengthSeconds   = 0.0
	MaxLengthSeconds   = 30.0
	MinVarianceSeconds = 0.0
	MaxVarianceSeconds = 15.0

	// A leg always lasts at least one spectral frame.
	minLegFrames = 1
)

// timing holds the user-facing interpolation times and the frame counts
// derived from them for the current sample rate and FFT size.
type timing struct {
	lengthSeconds   float64
	varianceSeconds float64

	lengthFrames   int // (lengthSeconds * sampleRate) / fftSize, floored, >= 1
	varianceFrames int // (varianceSeconds * sampleRate) / fftSize, floored, >= 0
	minFrames      int // max(1, lengthFrames - varianceFrames)
	maxFrames      int // lengthFrames + varianceFrames
}

// secondsToFrames converts a duration in seconds to a spectral frame count.
// One frame elapses every fftSize samples.
func secondsToFrames(seconds, sampleRate float64, fftSize int) int {
	return int(seconds * sampleRate / float64(fftSize))
}

// set clamps the requested times into range and rederives the frame bounds.
// It never fails and never touches bin state; legs already in flight keep the
// duration they were armed with.
func (t *timing) set(lengthSeconds, varianceSeconds, sampleRate float64, fftSize int) {
	t.lengthSeconds = clampFloat(lengthSeconds, MinLengthSeconds, MaxLengthSeconds)
	t.varianceSeconds = clampFloat(varianceSeconds, MinVarianceSeconds, MaxVarianceSeconds)
	t.rederive(sampleRate, fftSize)
}

// rederive recomputes the frame bounds from the stored seconds values.
// Called on every timing change and on sample-rate reconfiguration.
func (t *timing) rederive(sampleRate float64, fftSize int) {
	t.lengthFrames = secondsToFrames(t.lengthSeconds, sampleRate, fftSize)
	if t.lengthFrames < minLegFrames {
		t.lengthFrames = minLegFrames
	}

	t.varianceFrames = secondsToFrames(t.varianceSeconds, sampleRate, fftSize)
	if t.varianceFrames < 0 {
		t.varianceFrames = 0
	}

	t.minFrames = t.lengthFrames - t.varianceFrames
	if t.minFrames < minLegFrames {
		t.minFrames = minLegFrames
	}
	t.maxFrames = t.lengthFrames + t.varianceFrames
}

func clampFloat(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
