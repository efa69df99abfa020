// SPDX-License-Identifier: MIT
package udp

import (
	"encoding/binary"
	"fmt"
	"math"
	"net"
	"testing"
	"time"
)

// stubSpectrum is a fixed 8-point spectrum provider.
type stubSpectrum struct {
	mags []float64
}

func (s *stubSpectrum) MagnitudesInto(dst []float64) error {
	if len(dst) != len(s.mags) {
		return fmt.Errorf("destination length %d does not match %d bins", len(dst), len(s.mags))
	}
	copy(dst, s.mags)
	return nil
}

func (s *stubSpectrum) FrequencyForBin(bin int) float64 {
	return float64(bin) * s.SampleRate() / float64(s.FFTSize())
}

func (s *stubSpectrum) FFTSize() int        { return (len(s.mags) - 1) * 2 }
func (s *stubSpectrum) SampleRate() float64 { return 48000 }

func newStubSpectrum() *stubSpectrum {
	return &stubSpectrum{mags: []float64{0.5, 1.0, 0.25, 0, 0.75}}
}

func listen(t *testing.T) (net.PacketConn, string) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket() error = %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn, conn.LocalAddr().String()
}

func TestNewPublisherValidation(t *testing.T) {
	conn, addr := listen(t)
	_ = conn

	sender, err := NewSender(addr)
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	defer sender.Close()

	if _, err := NewPublisher(time.Millisecond, nil, newStubSpectrum()); err == nil {
		t.Error("nil sender expected error")
	}
	if _, err := NewPublisher(time.Millisecond, sender, nil); err == nil {
		t.Error("nil provider expected error")
	}

	p, err := NewPublisher(0, sender, newStubSpectrum())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}
	if p.interval <= 0 {
		t.Errorf("interval = %s after fallback, want > 0", p.interval)
	}
}

func TestPacketLayout(t *testing.T) {
	conn, addr := listen(t)

	sender, err := NewSender(addr)
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	defer sender.Close()

	spectrum := newStubSpectrum()
	p, err := NewPublisher(time.Millisecond, sender, spectrum)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	before := time.Now().UnixNano()
	p.buildAndSendPacket()

	buf := make([]byte, 2048)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("ReadFrom() error = %v", err)
	}

	bins := len(spectrum.mags)
	wantSize := 4 + 8 + 2 + 4*bins
	if n != wantSize {
		t.Fatalf("packet size = %d, want %d", n, wantSize)
	}

	seq := binary.BigEndian.Uint32(buf[0:4])
	if seq != 1 {
		t.Errorf("sequence = %d, want 1", seq)
	}

	timestamp := int64(binary.BigEndian.Uint64(buf[4:12]))
	if timestamp < before || timestamp > time.Now().UnixNano() {
		t.Errorf("timestamp %d outside send window", timestamp)
	}

	if got := binary.BigEndian.Uint16(buf[12:14]); int(got) != bins {
		t.Errorf("bin count = %d, want %d", got, bins)
	}

	for i := 0; i < bins; i++ {
		bits := binary.BigEndian.Uint32(buf[14+4*i : 18+4*i])
		got := math.Float32frombits(bits)
		if want := float32(spectrum.mags[i]); got != want {
			t.Errorf("magnitude[%d] = %g, want %g", i, got, want)
		}
	}
}

func TestPublisherStartStop(t *testing.T) {
	conn, addr := listen(t)

	sender, err := NewSender(addr)
	if err != nil {
		t.Fatalf("NewSender() error = %v", err)
	}
	defer sender.Close()

	p, err := NewPublisher(time.Millisecond, sender, newStubSpectrum())
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	p.Start()
	p.Start() // second Start is a no-op

	buf := make([]byte, 2048)
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadFrom(buf); err != nil {
		t.Fatalf("no packet while running: %v", err)
	}

	if err := p.Stop(); err != nil {
		t.Fatalf("Stop() error = %v", err)
	}
	if err := p.Stop(); err != nil {
		t.Fatalf("second Stop() error = %v", err)
	}
}
