package udptracker

import (
	"net"
	"sync"

	"utracker/internal/logger"
)

// Transport opens one datagram socket per tracker exchange.
type Transport interface {
	Open(network, dest string) (Socket, error)
}

// Socket is a single datagram socket bound to one tracker address.
type Socket interface {
	// Send writes one datagram to the tracker.
	Send(b []byte) error
	// Messages delivers inbound datagrams until the socket is closed.
	// The channel is never closed.
	Messages() <-chan []byte
	// Errors delivers transport failures.
	Errors() <-chan error
	// Close shuts the socket down. Close is idempotent. Errors from reads
	// interrupted by Close are swallowed.
	Close() error
}

type netTransport struct {
	bufferSize int
}

// NewTransport returns a Transport backed by the net package. maxNumWant
// bounds the expected announce reply size and with it the receive buffer.
func NewTransport(maxNumWant int) Transport {
	return &netTransport{bufferSize: 20 + 6*maxNumWant}
}

func (t *netTransport) Open(network, dest string) (Socket, error) {
	raddr, err := net.ResolveUDPAddr(network, dest)
	if err != nil {
		return nil, err
	}
	// A connected socket. The kernel drops datagrams from other addresses.
	conn, err := net.DialUDP(network, nil, raddr)
	if err != nil {
		return nil, err
	}
	s := &netSocket{
		conn:       conn,
		bufferSize: t.bufferSize,
		log:        logger.New("udp tracker socket " + dest),
		messages:   make(chan []byte, 4),
		errors:     make(chan error, 1),
		closeC:     make(chan struct{}),
	}
	go s.readLoop()
	return s, nil
}

type netSocket struct {
	conn       *net.UDPConn
	bufferSize int
	log        logger.Logger

	messages chan []byte
	errors   chan error

	closeOnce sync.Once
	closeC    chan struct{}
}

func (s *netSocket) Send(b []byte) error {
	_, err := s.conn.Write(b)
	return err
}

func (s *netSocket) Messages() <-chan []byte { return s.messages }

func (s *netSocket) Errors() <-chan error { return s.errors }

func (s *netSocket) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closeC)
		err = s.conn.Close()
	})
	return err
}

// readLoop reads datagrams from the connection and delivers them to the
// owning request.
func (s *netSocket) readLoop() {
	// Read buffer must be big enough to hold a reply of maximum expected size.
	big := make([]byte, s.bufferSize)
	for {
		n, err := s.conn.Read(big)
		if err != nil {
			select {
			case <-s.closeC:
				// Shut down by the request, nothing to report.
			default:
				select {
				case s.errors <- err:
				default:
				}
			}
			return
		}
		s.log.Debug("read ", n, " bytes")
		// Copy into a new slice because big is overwritten at next read.
		msg := make([]byte, n)
		copy(msg, big)
		select {
		case s.messages <- msg:
		default:
			// The request is not keeping up. Datagrams are droppable.
			s.log.Debugln("dropping datagram of", n, "bytes")
		}
	}
}
