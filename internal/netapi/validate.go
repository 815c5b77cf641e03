package netapi

import (
	"net/netip"
	"strings"

	"github.com/eddmann/repyx/internal/apierror"
)

// maxDatagramSize is the largest UDP payload over IPv4.
const maxDatagramSize = 65507

// parseIPv4 accepts dotted-quad IPv4 text only.
func parseIPv4(op, field, s string) (netip.Addr, error) {
	if strings.Count(s, ".") != 3 {
		return netip.Addr{}, apierror.New(apierror.KindInvalidArgument, op, "invalid %s %q", field, s)
	}
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, apierror.New(apierror.KindInvalidArgument, op, "invalid %s %q", field, s)
	}
	return addr, nil
}

// checkPort accepts ports in [1, 65535].
func checkPort(op, field string, port int) (uint16, error) {
	if port < 1 || port > 65535 {
		return 0, apierror.New(apierror.KindInvalidArgument, op, "invalid %s %d", field, port)
	}
	return uint16(port), nil
}

// checkLocal validates a local endpoint and enforces the policy on it.
func (n *Network) checkLocal(op, localIP string, localPort int) (netip.AddrPort, error) {
	addr, err := parseIPv4(op, "local IP", localIP)
	if err != nil {
		return netip.AddrPort{}, err
	}
	port, err := checkPort(op, "local port", localPort)
	if err != nil {
		return netip.AddrPort{}, err
	}

	if !n.policy.AllowsMessPort(localPort) {
		return netip.AddrPort{}, apierror.New(apierror.KindResourceForbidden, op,
			"local port %d is not allowed by restrictions %s", localPort, n.policy.Name)
	}
	if !n.policy.AllowsLocalIP(addr) {
		return netip.AddrPort{}, apierror.New(apierror.KindResourceForbidden, op,
			"local IP %s is not allowed by restrictions %s", addr, n.policy.Name)
	}

	return netip.AddrPortFrom(addr, port), nil
}
