// Package utils holds shared test helpers: signal generators and a transport
// stub used across package tests.
package utils

import (
	"math"
	"sync"
)

// MockTransport records payloads instead of transmitting them.
type MockTransport struct {
	mu   sync.Mutex
	sent []any
}

// Send stores the payload for later inspection.
func (m *MockTransport) Send(data any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, data)
	return nil
}

// Close is a no-op.
func (m *MockTransport) Close() error { return nil }

// Sent returns a copy of every payload passed to Send so far.
func (m *MockTransport) Sent() []any {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]any, len(m.sent))
	copy(out, m.sent)
	return out
}

// Last returns the most recent payload, or nil.
func (m *MockTransport) Last() any {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return nil
	}
	return m.sent[len(m.sent)-1]
}

// GenerateSineWave returns size samples of a full-scale-ish sine at the
// given frequency, as int32 like the capture path delivers.
func GenerateSineWave(size int, sampleRate, frequency float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		buffer[i] = int32(math.Sin(2*math.Pi*frequency*tm) * math.MaxInt32 * 0.9)
	}
	return buffer
}

// GenerateComplexWave returns a 440 Hz fundamental with two harmonics.
func GenerateComplexWave(size int, sampleRate float64) []int32 {
	buffer := make([]int32, size)
	for i := range buffer {
		tm := float64(i) / sampleRate
		signal := math.Sin(2*math.Pi*440*tm)*0.5 +
			math.Sin(2*math.Pi*880*tm)*0.3 +
			math.Sin(2*math.Pi*1320*tm)*0.2
		buffer[i] = int32(signal * math.MaxInt32 * 0.9)
	}
	return buffer
}

// FindPeakBin returns the index of the largest magnitude in [startBin, endBin].
func FindPeakBin(magnitudes []float64, startBin, endBin int) int {
	if len(magnitudes) == 0 {
		return 0
	}
	if startBin < 0 {
		startBin = 0
	}
	if endBin >= len(magnitudes) {
		endBin = len(magnitudes) - 1
	}

	peakBin := startBin
	for bin := startBin + 1; bin <= endBin; bin++ {
		if magnitudes[bin] > magnitudes[peakBin] {
			peakBin = bin
		}
	}
	return peakBin
}
