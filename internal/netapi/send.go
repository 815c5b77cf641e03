package netapi

import (
	"fmt"
	"net/netip"

	"github.com/eddmann/repyx/internal/apierror"
)

// SendMessage sends message as one datagram from (localIP, localPort) to
// (destIP, destPort) and returns the number of bytes sent.
//
// When the local pair is held by a listening handle, its socket is used so
// replies reach that handle. Otherwise a socket is bound for this send only.
func (n *Network) SendMessage(destIP string, destPort int, message []byte, localIP string, localPort int) (int, error) {
	const op = "sendmessage"

	destAddr, err := parseIPv4(op, "destination IP", destIP)
	if err != nil {
		return 0, err
	}
	dport, err := checkPort(op, "destination port", destPort)
	if err != nil {
		return 0, err
	}
	if len(message) > maxDatagramSize {
		return 0, apierror.New(apierror.KindInvalidArgument, op,
			"message of %d bytes exceeds %d", len(message), maxDatagramSize)
	}
	dest := netip.AddrPortFrom(destAddr, dport)

	local, err := n.checkLocal(op, localIP, localPort)
	if err != nil {
		return 0, err
	}

	if n.isClosed() {
		return 0, n.errClosed(op)
	}
	if sock := n.lookup(local); sock != nil && !sock.isClosed() {
		return n.write(sock.conn, message, dest)
	}

	conn, err := n.binder.BindUDP(local)
	if err != nil {
		return 0, classifyBindError(op, local, err)
	}
	defer func() { _ = conn.Close() }()

	return n.write(conn, message, dest)
}

func (n *Network) write(conn PacketConn, message []byte, dest netip.AddrPort) (int, error) {
	sent, err := conn.WriteToUDPAddrPort(message, dest)
	if err != nil {
		return sent, fmt.Errorf("failed to send to %s: %w", dest, err)
	}
	n.metrics.sent.Inc()
	n.logf("sent %d bytes to %s", sent, dest)
	return sent, nil
}
