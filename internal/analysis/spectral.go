// SPDX-License-Identifier: MIT
/*
Package analysis hosts the spectral side of the engine: it carries captured
audio through a streaming STFT, feeds every spectral frame to the bin
interpolation engine, and resynthesizes the interpolated spectrum back into
the time domain.

The hot path (Process) is allocation-free; every buffer is sized at
construction. A mutex-guarded snapshot of the latest interpolated magnitude
spectrum is kept for pull-based consumers (publishers, band meters) running
off the real-time thread.
*/
package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"

	"gonum.org/v1/gonum/dsp/fourier"

	"binterp/internal/interp"
	applog "binterp/internal/log"
	"binterp/pkg/bitint"
)

// Normalization between the int32 capture range and [-1, 1).
const normFactor = 1.0 / float64(0x80000000)

// Overlap gain below this floor is treated as unity to avoid dividing by a
// vanishing window sum at the frame edges.
const gainFloor = 1e-6

// SpectralInterpolator is the STFT host around interp.Engine. Analysis runs
// with 50% overlap; each frame's magnitude/phase pair streams through the
// interpolation engine bin by bin, and the smoothed spectrum is
// overlap-added back into a continuous output signal.
type SpectralInterpolator struct {
	fftSize    int
	hop        int
	sampleRate float64

	fft     *fourier.FFT
	engine  *interp.Engine
	window  []float64
	olaGain []float64 // steady-state overlap gain per emitted sample

	// Streaming state. timeBuf slides by hop each frame; pend collects
	// incoming samples until a full hop is available.
	timeBuf  []float64
	pend     []float64
	pendFill int

	frame       []float64
	spectrum    []complex128
	magStream   []float64
	phaseStream []float64
	indexStream []float64
	interpMag   []float64
	interpPhase []float64
	resynth     []float64
	olaBuf      []float64

	// Output FIFO, power-of-two ring.
	outRing  []float64
	ringMask int
	ringHead int
	ringTail int

	// Latest interpolated magnitudes for off-thread readers.
	snapshotMu sync.RWMutex
	snapshot   []float64
}

// NewSpectralInterpolator builds the STFT host. fftSize must be a power of
// two and must match the engine's bin count; framesPerBuffer is the callback
// block size and only affects FIFO capacity.
func NewSpectralInterpolator(fftSize int, sampleRate float64, framesPerBuffer int,
	engine *interp.Engine, windowType WindowFunc) (*SpectralInterpolator, error) {

	if !bitint.IsPowerOfTwo(fftSize) {
		return nil, fmt.Errorf("fft size must be a power of 2, got %d", fftSize)
	}
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %f", sampleRate)
	}
	if engine == nil {
		return nil, fmt.Errorf("interpolation engine cannot be nil")
	}
	if engine.FFTSize() != fftSize {
		return nil, fmt.Errorf("engine bin count %d does not match fft size %d", engine.FFTSize(), fftSize)
	}
	if framesPerBuffer < 1 {
		return nil, fmt.Errorf("frames per buffer must be >= 1, got %d", framesPerBuffer)
	}

	hop := fftSize / 2
	half := fftSize / 2
	coeffs := windowCoefficients(windowType, fftSize)

	// Steady-state overlap-add gain with analysis-only windowing: each
	// emitted sample is covered by the current frame's head and the
	// previous frame's tail.
	olaGain := make([]float64, hop)
	for j := range olaGain {
		g := coeffs[j] + coeffs[j+hop]
		if g < gainFloor {
			g = 1
		}
		olaGain[j] = g
	}

	ringSize := bitint.NextPowerOfTwo(fftSize + framesPerBuffer)

	indexStream := make([]float64, half+1)
	for k := range indexStream {
		indexStream[k] = float64(k)
	}

	applog.Infof("analysis: spectral interpolator ready (fft %d, hop %d, %.1f Hz)", fftSize, hop, sampleRate)

	return &SpectralInterpolator{
		fftSize:    fftSize,
		hop:        hop,
		sampleRate: sampleRate,
		fft:        fourier.NewFFT(fftSize),
		engine:     engine,
		window:     coeffs,
		olaGain:    olaGain,

		timeBuf:     make([]float64, fftSize),
		pend:        make([]float64, hop),
		frame:       make([]float64, fftSize),
		spectrum:    make([]complex128, half+1),
		magStream:   make([]float64, half+1),
		phaseStream: make([]float64, half+1),
		indexStream: indexStream,
		interpMag:   make([]float64, half+1),
		interpPhase: make([]float64, half+1),
		resynth:     make([]float64, fftSize),
		olaBuf:      make([]float64, fftSize),

		outRing:  make([]float64, ringSize),
		ringMask: ringSize - 1,

		snapshot: make([]float64, half+1),
	}, nil
}

// Engine returns the owned interpolation engine. Callers must only touch it
// from the processing goroutine.
func (p *SpectralInterpolator) Engine() *interp.Engine { return p.engine }

// FFTSize returns the spectral frame length.
func (p *SpectralInterpolator) FFTSize() int { return p.fftSize }

// SampleRate returns the sample rate in Hz.
func (p *SpectralInterpolator) SampleRate() float64 { return p.sampleRate }

// Latency returns the fixed processing delay in samples: one hop of input
// buffering plus the analysis frame itself.
func (p *SpectralInterpolator) Latency() int { return p.fftSize }

// Reset clears all streaming state and forces the interpolation engine to
// capture fresh targets. Called when the audio stream (re)starts.
func (p *SpectralInterpolator) Reset() {
	p.pendFill = 0
	p.ringHead = 0
	p.ringTail = 0
	for i := range p.timeBuf {
		p.timeBuf[i] = 0
	}
	for i := range p.olaBuf {
		p.olaBuf[i] = 0
	}
	p.engine.Reset()
}

// Process runs one callback block: in is the captured audio, out receives
// the interpolated resynthesis. The output is silent until the first frame
// has been analyzed (fixed latency, see Latency). Hot path: allocation-free.
func (p *SpectralInterpolator) Process(in []int32, out []int32) {
	n := len(in)
	if len(out) < n {
		n = len(out)
	}

	for i := 0; i < n; i++ {
		p.pend[p.pendFill] = float64(in[i]) * normFactor
		p.pendFill++
		if p.pendFill == p.hop {
			p.runFrame()
			p.pendFill = 0
		}

		if p.ringHead != p.ringTail {
			v := p.outRing[p.ringHead&p.ringMask]
			p.ringHead++
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			out[i] = int32(v * float64(math.MaxInt32))
		} else {
			out[i] = 0
		}
	}
}

// runFrame analyzes the most recent fftSize samples, interpolates the
// spectrum, and overlap-adds the resynthesis into the output FIFO.
func (p *SpectralInterpolator) runFrame() {
	// Slide the analysis buffer by one hop and append the pending samples.
	copy(p.timeBuf, p.timeBuf[p.hop:])
	copy(p.timeBuf[p.fftSize-p.hop:], p.pend)

	for i := range p.frame {
		p.frame[i] = p.timeBuf[i] * p.window[i]
	}
	p.fft.Coefficients(p.spectrum, p.frame)

	half := p.fftSize / 2
	for k := 0; k <= half; k++ {
		c := p.spectrum[k]
		p.magStream[k] = cmplx.Abs(c)
		p.phaseStream[k] = cmplx.Phase(c)
	}

	p.engine.ProcessBlock(p.magStream, p.phaseStream, p.indexStream, p.interpMag, p.interpPhase)

	for k := 0; k <= half; k++ {
		mag := p.interpMag[k]
		phase := p.interpPhase[k]
		p.spectrum[k] = complex(mag*math.Cos(phase), mag*math.Sin(phase))
	}
	// DC and Nyquist must stay real for a real-valued resynthesis.
	p.spectrum[0] = complex(real(p.spectrum[0]), 0)
	p.spectrum[half] = complex(real(p.spectrum[half]), 0)

	p.fft.Sequence(p.resynth, p.spectrum)

	scale := 1 / float64(p.fftSize)
	for j := range p.resynth {
		p.olaBuf[j] += p.resynth[j] * scale
	}

	// Emit one hop of normalized output and shift the accumulator.
	for j := 0; j < p.hop; j++ {
		if p.ringTail-p.ringHead <= p.ringMask {
			p.outRing[p.ringTail&p.ringMask] = p.olaBuf[j] / p.olaGain[j]
			p.ringTail++
		}
	}
	copy(p.olaBuf, p.olaBuf[p.hop:])
	for j := p.fftSize - p.hop; j < p.fftSize; j++ {
		p.olaBuf[j] = 0
	}

	p.snapshotMu.Lock()
	copy(p.snapshot, p.interpMag)
	p.snapshotMu.Unlock()
}

// Magnitudes returns a copy of the latest interpolated magnitude spectrum.
// Allocates; off-thread readers that care should use MagnitudesInto.
func (p *SpectralInterpolator) Magnitudes() []float64 {
	p.snapshotMu.RLock()
	defer p.snapshotMu.RUnlock()

	out := make([]float64, len(p.snapshot))
	copy(out, p.snapshot)
	return out
}

// MagnitudesInto copies the latest interpolated magnitudes into dst, which
// must be sized fftSize/2+1.
func (p *SpectralInterpolator) MagnitudesInto(dst []float64) error {
	p.snapshotMu.RLock()
	defer p.snapshotMu.RUnlock()

	if len(dst) != len(p.snapshot) {
		return fmt.Errorf("destination length %d does not match %d bins", len(dst), len(p.snapshot))
	}
	copy(dst, p.snapshot)
	return nil
}

// FrequencyForBin returns the center frequency in Hz for a spectrum bin.
func (p *SpectralInterpolator) FrequencyForBin(bin int) float64 {
	if bin < 0 || bin > p.fftSize/2 {
		return 0
	}
	return float64(bin) * p.sampleRate / float64(p.fftSize)
}

// Close releases nothing today but keeps the processor closable alongside
// transports.
func (p *SpectralInterpolator) Close() error {
	applog.Debugf("analysis: closing spectral interpolator")
	return nil
}

var _ ClosableProcessor = (*SpectralInterpolator)(nil)
