package udp

import (
	"errors"
	"fmt"
	"net"
	"sync"

	applog "roomsweep/internal/log"
)

// ErrSenderClosed reports a Send after Close.
var ErrSenderClosed = errors.New("udp: sender is closed")

// Sender owns one connected UDP socket. Level datagrams are fire and
// forget; nothing acknowledges them.
type Sender struct {
	conn   *net.UDPConn
	mu     sync.Mutex
	closed bool
}

// NewSender dials the target address ("host:port").
func NewSender(target string) (*Sender, error) {
	addr, err := net.ResolveUDPAddr("udp", target)
	if err != nil {
		return nil, fmt.Errorf("udp: resolving %q: %w", target, err)
	}

	conn, err := net.DialUDP("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("udp: dialing %q: %w", target, err)
	}

	applog.Infof("udp: level feed to %s", conn.RemoteAddr())
	return &Sender{conn: conn}, nil
}

// Send transmits one datagram. Safe for concurrent use.
func (s *Sender) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSenderClosed
	}
	if _, err := s.conn.Write(data); err != nil {
		return fmt.Errorf("udp: sending datagram: %w", err)
	}
	return nil
}

// Close shuts the socket down. Further Sends fail with ErrSenderClosed.
func (s *Sender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true
	return s.conn.Close()
}

var _ interface{ Close() error } = (*Sender)(nil)
