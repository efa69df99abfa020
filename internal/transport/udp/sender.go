package udp

import (
	"fmt"
	"net"
	"sync"

	applog "binterp/internal/log"
)

// Sender transmits prepacked byte payloads to a fixed UDP target.
type Sender struct {
	conn       *net.UDPConn
	targetAddr *net.UDPAddr
	mu         sync.Mutex // protects conn against concurrent Close/Write
	closed     bool
}

// NewSender dials the target address ("host:port") and returns a ready
// sender.
func NewSender(targetAddress string) (*Sender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve UDP target address %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial UDP target %q: %w", targetAddress, err)
	}

	applog.Infof("udp: sending to %s", conn.RemoteAddr())

	return &Sender{
		conn:       conn,
		targetAddr: udpAddr,
	}, nil
}

// Send transmits data as one UDP packet. Safe for concurrent use.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("udp sender is closed")
	}
	_, err := s.conn.Write(data)
	s.mu.Unlock()

	if err != nil {
		return fmt.Errorf("failed to send UDP packet: %w", err)
	}
	return nil
}

// Close closes the underlying connection. Subsequent Sends fail.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		if err != nil {
			return fmt.Errorf("failed to close UDP connection: %w", err)
		}
	}
	return nil
}
