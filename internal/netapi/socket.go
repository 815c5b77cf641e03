package netapi

import (
	"bytes"
	"context"
	"errors"
	"net"
	"net/netip"
	"sync"

	"github.com/eddmann/repyx/internal/apierror"
	"github.com/google/uuid"
)

// Datagram is a message received on a socket.
type Datagram struct {
	From netip.AddrPort
	Data []byte
}

// UDPServerSocket is the handle returned by ListenForMessage. It is owned
// by its caller until Close.
type UDPServerSocket struct {
	id    string
	local netip.AddrPort
	net   *Network
	conn  PacketConn
	queue chan Datagram

	mu      sync.Mutex
	closed  bool
	closing chan struct{} // closed by Close
	done    chan struct{} // closed when the receive loop exits
}

func newUDPServerSocket(n *Network, local netip.AddrPort, conn PacketConn) *UDPServerSocket {
	return &UDPServerSocket{
		id:      uuid.NewString(),
		local:   local,
		net:     n,
		conn:    conn,
		queue:   make(chan Datagram, n.queueSize),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// ID returns the handle's unique identifier.
func (s *UDPServerSocket) ID() string { return s.id }

// LocalAddr returns the bound (IP, port) pair.
func (s *UDPServerSocket) LocalAddr() netip.AddrPort { return s.local }

// GetMessage returns the oldest queued datagram without blocking. It fails
// with SocketWouldBlock when nothing is queued and SocketClosed once the
// handle is closed.
func (s *UDPServerSocket) GetMessage() (remoteIP string, remotePort int, message []byte, err error) {
	const op = "getmessage"

	if s.isClosed() {
		return "", 0, nil, apierror.New(apierror.KindSocketClosed, op, "socket %s is closed", s.local)
	}

	select {
	case d := <-s.queue:
		return d.From.Addr().String(), int(d.From.Port()), d.Data, nil
	default:
		return "", 0, nil, apierror.New(apierror.KindSocketWouldBlock, op, "no message queued on %s", s.local)
	}
}

// WaitMessage blocks until a datagram arrives, the handle is closed or ctx
// is done.
func (s *UDPServerSocket) WaitMessage(ctx context.Context) (Datagram, error) {
	const op = "getmessage"

	select {
	case <-s.closing:
		return Datagram{}, apierror.New(apierror.KindSocketClosed, op, "socket %s is closed", s.local)
	default:
	}

	select {
	case d := <-s.queue:
		return d, nil
	case <-s.closing:
		return Datagram{}, apierror.New(apierror.KindSocketClosed, op, "socket %s is closed", s.local)
	case <-ctx.Done():
		return Datagram{}, ctx.Err()
	}
}

// Close releases the handle and its (IP, port) pair. It returns true the
// first time and false if the handle was already closed.
func (s *UDPServerSocket) Close() bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}
	s.closed = true
	close(s.closing)
	s.mu.Unlock()

	_ = s.conn.Close()
	<-s.done
	s.net.release(s)

	s.net.logf("closed %s (socket %s)", s.local, s.id)
	return true
}

func (s *UDPServerSocket) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// receive moves datagrams from the host socket into the queue until the
// socket is closed. Datagrams arriving while the queue is full are dropped.
func (s *UDPServerSocket) receive() {
	defer close(s.done)

	buf := make([]byte, maxDatagramSize)
	for {
		n, from, err := s.conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if errors.Is(err, net.ErrClosed) || s.isClosed() {
				return
			}
			// ICMP errors from earlier sends surface here once; keep reading
			s.net.logf("read on %s: %v", s.local, err)
			continue
		}

		d := Datagram{
			From: netip.AddrPortFrom(from.Addr().Unmap(), from.Port()),
			Data: bytes.Clone(buf[:n]),
		}
		select {
		case s.queue <- d:
			s.net.metrics.received.Inc()
		default:
			s.net.metrics.dropped.Inc()
			s.net.logf("queue full on %s, dropped %d bytes from %s", s.local, n, d.From)
		}
	}
}
