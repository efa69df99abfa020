// SPDX-License-Identifier: MIT
package audio

import "math"

// The gate conditions the interpolator's input rather than muting output:
// when a block's peak amplitude stays at or below the threshold, the
// callback zeroes the mono input so every bin glides toward silence over
// its normal leg instead of freezing on the last loud spectrum.

// EnableGate turns input gating on for subsequent callback blocks.
func (e *Engine) EnableGate() {
	e.gateEnabled = true
}

// DisableGate lets all captured audio through to the interpolator.
func (e *Engine) DisableGate() {
	e.gateEnabled = false
}

// SetGateThreshold adjusts the gate threshold as a fraction of full scale,
// in the range 0.0-1.0 where 0=always open, 1=always closed. The value is
// stored as an absolute int32 amplitude so the callback compares without
// converting samples.
func (e *Engine) SetGateThreshold(threshold float64) {
	if threshold < 0.0 {
		threshold = 0.0
	}
	if threshold > 1.0 {
		threshold = 1.0
	}

	e.gateThreshold = int32(threshold * float64(math.MaxInt32))
}

// GetGateThreshold returns the gate threshold as a fraction of full scale,
// in the range 0.0-1.0 where 0=always open, 1=always closed.
func (e *Engine) GetGateThreshold() float64 {
	return float64(e.gateThreshold) / float64(math.MaxInt32)
}
