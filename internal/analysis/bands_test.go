package analysis

import (
	"testing"

	"binterp/pkg/utils"
)

func TestNewSpectralBandsNilProvider(t *testing.T) {
	if _, err := NewSpectralBands(nil, &utils.MockTransport{}); err == nil {
		t.Error("nil provider expected error")
	}
}

func TestPublishOnceSendsSnapshot(t *testing.T) {
	p := newTestInterpolator(t, 7)
	feedSine(p, 1500, 100)

	sink := &utils.MockTransport{}
	bands, err := NewSpectralBands(p, sink)
	if err != nil {
		t.Fatalf("NewSpectralBands() error = %v", err)
	}

	if err := bands.PublishOnce(); err != nil {
		t.Fatalf("PublishOnce() error = %v", err)
	}

	last := sink.Last()
	snapshot, ok := last.(BandSnapshot)
	if !ok {
		t.Fatalf("sent payload type = %T, want BandSnapshot", last)
	}
	if len(snapshot.Bands) != 6 {
		t.Fatalf("len(snapshot.Bands) = %d, want 6", len(snapshot.Bands))
	}
	if got := snapshot.Bands[5].HighHz; got != testSampleRate/2 {
		t.Errorf("treble upper edge = %g, want Nyquist %g", got, testSampleRate/2)
	}

	// The 1500 Hz tone lands in the mid band.
	var midEnergy, maxOther float64
	for _, band := range snapshot.Bands {
		if band.Name == "mid" {
			midEnergy = band.Energy
		} else if band.Energy > maxOther {
			maxOther = band.Energy
		}
	}
	if midEnergy <= maxOther {
		t.Errorf("mid band energy %g not dominant (max other %g)", midEnergy, maxOther)
	}
}

func TestPublishOnceNilSinkUpdatesReadings(t *testing.T) {
	p := newTestInterpolator(t, 7)
	feedSine(p, 1500, 100)

	bands, err := NewSpectralBands(p, nil)
	if err != nil {
		t.Fatalf("NewSpectralBands() error = %v", err)
	}
	if err := bands.PublishOnce(); err != nil {
		t.Fatalf("PublishOnce() error = %v", err)
	}

	readings := bands.Bands()
	var total float64
	for _, band := range readings {
		total += band.Energy
	}
	if total <= 0 {
		t.Error("band readings all zero after publishing a tone")
	}
}
