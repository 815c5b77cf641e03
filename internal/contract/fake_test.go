package contract

import (
	"net"
	"net/netip"
	"os"
	"sync"
	"syscall"
	"testing"

	"github.com/eddmann/repyx/internal/netapi"
	"github.com/eddmann/repyx/internal/restrictions"
)

// idleConn never receives anything and reports closed once closed.
type idleConn struct {
	closed chan struct{}
	once   sync.Once
}

func (c *idleConn) ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error) {
	<-c.closed
	return 0, netip.AddrPort{}, net.ErrClosed
}

func (c *idleConn) WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error) {
	return len(b), nil
}

func (c *idleConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// hostlessBinder behaves like a host whose only local address is loopback.
type hostlessBinder struct{}

func (hostlessBinder) BindUDP(addr netip.AddrPort) (netapi.PacketConn, error) {
	if !addr.Addr().IsLoopback() {
		return nil, &net.OpError{Op: "listen", Net: "udp4", Err: os.NewSyscallError("bind", syscall.EADDRNOTAVAIL)}
	}
	return &idleConn{closed: make(chan struct{})}, nil
}

func newNetwork(t *testing.T, policy string) *netapi.Network {
	t.Helper()
	p, err := restrictions.Load(policy)
	if err != nil {
		t.Fatalf("failed to load restrictions %s: %v", policy, err)
	}
	n := netapi.New(p, netapi.WithBinder(hostlessBinder{}))
	t.Cleanup(n.Close)
	return n
}

func mustParse(t *testing.T, content string) *Contract {
	t.Helper()
	c, err := Parse("test.toml", []byte(content))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	return c
}
