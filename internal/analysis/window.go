// SPDX-License-Identifier: MIT
package analysis

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/dsp/window"
)

// WindowFunc selects the analysis window applied before each FFT.
type WindowFunc int

const (
	Hann WindowFunc = iota
	Hamming
	Blackman
	BlackmanNuttall
	Nuttall
	Lanczos
	BartlettHann
)

// ParseWindowFunc converts a name (case-insensitive) to a WindowFunc.
// Unknown names return Hann and an error.
func ParseWindowFunc(name string) (WindowFunc, error) {
	switch strings.ToLower(name) {
	case "hann", "hanning":
		return Hann, nil
	case "hamming":
		return Hamming, nil
	case "blackman":
		return Blackman, nil
	case "blackmannuttall":
		return BlackmanNuttall, nil
	case "nuttall":
		return Nuttall, nil
	case "lanczos":
		return Lanczos, nil
	case "bartletthann":
		return BartlettHann, nil
	default:
		return Hann, fmt.Errorf("unknown window function name: %q", name)
	}
}

// windowCoefficients returns the coefficient vector for the selected window,
// built by applying the gonum window function to a vector of ones.
func windowCoefficients(windowType WindowFunc, size int) []float64 {
	coeffs := make([]float64, size)
	for i := range coeffs {
		coeffs[i] = 1.0
	}
	switch windowType {
	case Hamming:
		window.Hamming(coeffs)
	case Blackman:
		window.Blackman(coeffs)
	case BlackmanNuttall:
		window.BlackmanNuttall(coeffs)
	case Nuttall:
		window.Nuttall(coeffs)
	case Lanczos:
		window.Lanczos(coeffs)
	case BartlettHann:
		window.BartlettHann(coeffs)
	default:
		window.Hann(coeffs)
	}
	return coeffs
}
