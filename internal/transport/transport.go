package transport

// Transport is a generic sink for processed spectral data or events.
// Implementations must be safe for concurrent use and must never block the
// caller for long: the data originates on the real-time side of the engine.
type Transport interface {
	Send(data any) error
	Close() error
}

// SpectrumProvider exposes the most recent interpolated spectrum to
// consumers that run off the real-time thread (publishers, band meters).
type SpectrumProvider interface {
	// MagnitudesInto copies the latest interpolated magnitudes into dst,
	// which must be sized FFTSize()/2+1.
	MagnitudesInto(dst []float64) error
	// FrequencyForBin returns the center frequency in Hz for a bin index.
	FrequencyForBin(bin int) float64
	FFTSize() int
	SampleRate() float64
}
