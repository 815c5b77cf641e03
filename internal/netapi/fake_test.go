package netapi

import (
	"net"
	"net/netip"
	"os"
	"sync"
	"syscall"
)

// fakeConn is an in-memory PacketConn.
type fakeConn struct {
	local  netip.AddrPort
	in     chan Datagram
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []Datagram // From holds the destination
}

func newFakeConn(local netip.AddrPort) *fakeConn {
	return &fakeConn{
		local:  local,
		in:     make(chan Datagram, 16),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error) {
	select {
	case d := <-c.in:
		return copy(b, d.Data), d.From, nil
	case <-c.closed:
		return 0, netip.AddrPort{}, net.ErrClosed
	}
}

func (c *fakeConn) WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, Datagram{From: addr, Data: append([]byte(nil), b...)})
	return len(b), nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) isClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

// fakeBinder hands out fakeConns and fails binds listed in errs.
type fakeBinder struct {
	mu    sync.Mutex
	conns []*fakeConn
	errs  map[netip.Addr]error
}

func (b *fakeBinder) BindUDP(addr netip.AddrPort) (PacketConn, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err, ok := b.errs[addr.Addr()]; ok {
		return nil, err
	}
	c := newFakeConn(addr)
	b.conns = append(b.conns, c)
	return c, nil
}

func (b *fakeBinder) last() *fakeConn {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.conns) == 0 {
		return nil
	}
	return b.conns[len(b.conns)-1]
}

func (b *fakeBinder) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.conns)
}

// bindErr builds the error chain net.ListenUDP returns for errno.
func bindErr(errno syscall.Errno) error {
	return &net.OpError{Op: "listen", Net: "udp4", Err: os.NewSyscallError("bind", errno)}
}
