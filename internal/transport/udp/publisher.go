// SPDX-License-Identifier: MIT
package udp

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
	"time"

	applog "binterp/internal/log"
	"binterp/internal/transport"
)

// Publisher periodically fetches the interpolated magnitude spectrum from a
// SpectrumProvider, packs it into a binary packet, and sends it through a
// Sender. It runs in its own goroutine between Start and Stop.
//
// Packet layout (big-endian):
//
//	uint32  sequence number
//	int64   timestamp, nanoseconds since epoch
//	uint16  bin count N
//	N * float32 interpolated magnitudes
type Publisher struct {
	sender   *Sender
	spectrum transport.SpectrumProvider
	interval time.Duration

	ticker   *time.Ticker
	doneChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex // protects ticker and doneChan across Start/Stop

	sequenceNum uint32

	// Reused across packets to keep the publish path allocation-light.
	magBuffer    []float64
	f32Buffer    []float32
	packetBuffer *bytes.Buffer
}

// NewPublisher creates a publisher. An interval <= 0 falls back to ~60 Hz.
func NewPublisher(interval time.Duration, sender *Sender, spectrum transport.SpectrumProvider) (*Publisher, error) {
	if sender == nil {
		return nil, fmt.Errorf("udp publisher: sender cannot be nil")
	}
	if spectrum == nil {
		return nil, fmt.Errorf("udp publisher: spectrum provider cannot be nil")
	}

	if interval <= 0 {
		interval = 16 * time.Millisecond
		applog.Warnf("udp publisher: invalid interval, defaulting to %s", interval)
	}

	bins := spectrum.FFTSize()/2 + 1
	applog.Infof("udp publisher: initializing (interval %s, %d bins)", interval, bins)

	return &Publisher{
		sender:       sender,
		spectrum:     spectrum,
		interval:     interval,
		magBuffer:    make([]float64, bins),
		f32Buffer:    make([]float32, bins),
		packetBuffer: new(bytes.Buffer),
	}, nil
}

// Start launches the publishing goroutine. Calling Start while running is a
// no-op.
func (p *Publisher) Start() {
	p.mu.Lock()
	if p.ticker != nil {
		p.mu.Unlock()
		applog.Warnf("udp publisher: Start called but already running")
		return
	}

	p.ticker = time.NewTicker(p.interval)
	p.doneChan = make(chan struct{})
	p.stopOnce = sync.Once{}

	ticker := p.ticker
	doneChan := p.doneChan
	p.mu.Unlock()

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		applog.Infof("udp publisher: started (interval %s)", p.interval)
		for {
			select {
			case <-ticker.C:
				p.buildAndSendPacket()
			case <-doneChan:
				return
			}
		}
	}()
}

// Stop signals the goroutine to exit and waits for it. Safe to call
// repeatedly.
func (p *Publisher) Stop() error {
	p.mu.Lock()
	if p.ticker == nil {
		p.mu.Unlock()
		return nil
	}

	p.stopOnce.Do(func() {
		close(p.doneChan)
		p.ticker.Stop()
		p.ticker = nil
	})
	p.mu.Unlock()

	p.wg.Wait()
	applog.Infof("udp publisher: stopped")
	return nil
}

func (p *Publisher) buildAndSendPacket() {
	if err := p.spectrum.MagnitudesInto(p.magBuffer); err != nil {
		applog.Errorf("udp publisher: fetching magnitudes: %v", err)
		return
	}

	if len(p.f32Buffer) != len(p.magBuffer) {
		p.f32Buffer = make([]float32, len(p.magBuffer))
	}
	for i, v := range p.magBuffer {
		p.f32Buffer[i] = float32(v)
	}

	p.sequenceNum++
	timestamp := time.Now().UnixNano()
	binCount := uint16(len(p.f32Buffer))

	p.packetBuffer.Reset()
	err := binary.Write(p.packetBuffer, binary.BigEndian, p.sequenceNum)
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, timestamp)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, binCount)
	}
	if err == nil {
		err = binary.Write(p.packetBuffer, binary.BigEndian, p.f32Buffer)
	}
	if err != nil {
		applog.Errorf("udp publisher: packing packet: %v", err)
		return
	}

	if err := p.sender.Send(p.packetBuffer.Bytes()); err != nil {
		applog.Warnf("udp publisher: send failed: %v", err)
	}
}
