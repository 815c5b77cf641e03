package netapi

import (
	"errors"
	"net"
	"net/netip"
	"syscall"

	"github.com/eddmann/repyx/internal/apierror"
)

// PacketConn is the part of *net.UDPConn the API relies on.
type PacketConn interface {
	ReadFromUDPAddrPort(b []byte) (int, netip.AddrPort, error)
	WriteToUDPAddrPort(b []byte, addr netip.AddrPort) (int, error)
	Close() error
}

// Binder binds datagram sockets on the host.
type Binder interface {
	BindUDP(addr netip.AddrPort) (PacketConn, error)
}

// HostBinder binds real IPv4 UDP sockets.
type HostBinder struct{}

// BindUDP binds addr with net.ListenUDP.
func (HostBinder) BindUDP(addr netip.AddrPort) (PacketConn, error) {
	conn, err := net.ListenUDP("udp4", net.UDPAddrFromAddrPort(addr))
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// classifyBindError maps a host bind failure onto an API error kind.
func classifyBindError(op string, addr netip.AddrPort, err error) error {
	switch {
	case errors.Is(err, syscall.EADDRINUSE):
		return apierror.Wrap(apierror.KindAlreadyBound, op, err, addr.String()+" is in use by another process")
	case errors.Is(err, syscall.EADDRNOTAVAIL):
		return apierror.Wrap(apierror.KindAddressBinding, op, err, addr.Addr().String()+" is not a local address")
	case errors.Is(err, syscall.EACCES), errors.Is(err, syscall.EPERM):
		return apierror.Wrap(apierror.KindAddressBinding, op, err, "not permitted to bind "+addr.String())
	default:
		return apierror.Wrap(apierror.KindAddressBinding, op, err, "cannot bind "+addr.String())
	}
}
