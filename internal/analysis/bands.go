package analysis

import (
	"fmt"

	"binterp/internal/transport"
)

// Band is one named frequency range with its latest energy reading.
type Band struct {
	Name   string  `json:"name"`
	LowHz  float64 `json:"low_hz"`
	HighHz float64 `json:"high_hz"`
	Energy float64 `json:"energy"`
}

// BandSnapshot is the payload published for a set of band readings.
type BandSnapshot struct {
	Bands []Band `json:"bands"`
}

// SpectralBands reduces the interpolated spectrum to a handful of named
// band energies and publishes them. It runs entirely off the real-time
// thread, pulling snapshots from the spectrum provider.
type SpectralBands struct {
	provider transport.SpectrumProvider
	sink     transport.Transport
	bands    []Band
	magBuf   []float64
}

// NewSpectralBands creates a band meter over the provider's spectrum with
// the conventional sub/bass/mid/treble split up to Nyquist.
func NewSpectralBands(provider transport.SpectrumProvider, sink transport.Transport) (*SpectralBands, error) {
	if provider == nil {
		return nil, fmt.Errorf("spectral bands: provider cannot be nil")
	}

	nyquist := provider.SampleRate() / 2
	bands := []Band{
		{Name: "sub", LowHz: 20, HighHz: 60},
		{Name: "bass", LowHz: 60, HighHz: 250},
		{Name: "lowMid", LowHz: 250, HighHz: 500},
		{Name: "mid", LowHz: 500, HighHz: 2000},
		{Name: "highMid", LowHz: 2000, HighHz: 4000},
		{Name: "treble", LowHz: 4000, HighHz: nyquist},
	}

	return &SpectralBands{
		provider: provider,
		sink:     sink,
		bands:    bands,
		magBuf:   make([]float64, provider.FFTSize()/2+1),
	}, nil
}

// PublishOnce fetches the latest interpolated magnitudes, computes the mean
// power per band, and sends one BandSnapshot to the sink.
func (b *SpectralBands) PublishOnce() error {
	if err := b.provider.MagnitudesInto(b.magBuf); err != nil {
		return fmt.Errorf("spectral bands: %w", err)
	}

	for i := range b.bands {
		band := &b.bands[i]
		sum := 0.0
		count := 0
		for bin := range b.magBuf {
			freq := b.provider.FrequencyForBin(bin)
			if freq >= band.LowHz && freq < band.HighHz {
				sum += b.magBuf[bin] * b.magBuf[bin]
				count++
			}
		}
		if count > 0 {
			band.Energy = sum / float64(count)
		} else {
			band.Energy = 0
		}
	}

	if b.sink == nil {
		return nil
	}

	snapshot := BandSnapshot{Bands: make([]Band, len(b.bands))}
	copy(snapshot.Bands, b.bands)
	return b.sink.Send(snapshot)
}

// Bands returns the most recently computed readings.
func (b *SpectralBands) Bands() []Band {
	out := make([]Band, len(b.bands))
	copy(out, b.bands)
	return out
}
