// SPDX-License-Identifier: MIT
package udp

import (
	"fmt"
	"net"
	"sync"

	applog "spectra/internal/log"
)

// UDPSender writes encoded spectrum packets to one connected peer.
type UDPSender struct {
	conn       *net.UDPConn
	targetAddr *net.UDPAddr
	mu         sync.Mutex
	closed     bool
}

// NewUDPSender connects to a "host:port" target, e.g. "127.0.0.1:9090".
func NewUDPSender(targetAddress string) (*UDPSender, error) {
	udpAddr, err := net.ResolveUDPAddr("udp", targetAddress)
	if err != nil {
		return nil, fmt.Errorf("udp: resolve target %q: %w", targetAddress, err)
	}

	conn, err := net.DialUDP("udp", nil, udpAddr)
	if err != nil {
		return nil, fmt.Errorf("udp: dial %q: %w", targetAddress, err)
	}

	applog.Infof("UDP: publishing spectra to %s", conn.RemoteAddr())

	return &UDPSender{
		conn:       conn,
		targetAddr: udpAddr,
	}, nil
}

// Target is the resolved destination address.
func (s *UDPSender) Target() *net.UDPAddr {
	return s.targetAddr
}

// Send writes one packet as a single datagram.
func (s *UDPSender) Send(packet []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return net.ErrClosed
	}
	if _, err := s.conn.Write(packet); err != nil {
		return fmt.Errorf("udp: send %d-byte packet: %w", len(packet), err)
	}
	return nil
}

// Close closes the connection. Later calls return nil.
func (s *UDPSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}

	s.closed = true
	if s.conn != nil {
		applog.Debugf("UDP: closing connection to %s", s.conn.RemoteAddr())
		err := s.conn.Close()
		s.conn = nil
		if err != nil {
			return fmt.Errorf("udp: close: %w", err)
		}
	}
	return nil
}
