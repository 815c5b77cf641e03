package netapi

import (
	"github.com/eddmann/repyx/internal/apierror"
)

// ListenForMessage binds a datagram socket on (localIP, localPort) and
// returns the handle that receives messages sent to it.
//
// Arguments are validated before the policy is consulted, and the policy
// before the socket table and the host. The resulting error kinds are:
//
//	InvalidArgument    localIP is not dotted-quad IPv4, or localPort is outside [1, 65535]
//	ResourceForbidden  the port or IP is not allowed by the restrictions
//	AlreadyBound       the pair is already held by a handle of this network
//	ResourceExhausted  the insockets limit is reached
//	AddressBinding     the host cannot bind the address
func (n *Network) ListenForMessage(localIP string, localPort int) (sock *UDPServerSocket, err error) {
	const op = "listenformessage"

	defer func() {
		result := "ok"
		if err != nil {
			result = apierror.KindOf(err).String()
			n.logf("listen %s:%d failed: %v", localIP, localPort, err)
		}
		n.metrics.listenAttempts.WithLabelValues(result).Inc()
	}()

	id, err := n.checkLocal(op, localIP, localPort)
	if err != nil {
		return nil, err
	}

	n.mu.Lock()
	defer n.mu.Unlock()

	if n.closed {
		return nil, n.errClosed(op)
	}
	if _, held := n.sockets[id]; held {
		return nil, apierror.New(apierror.KindAlreadyBound, op, "%s is already being listened on", id)
	}
	if limit := n.policy.InSockets; limit > 0 && len(n.sockets) >= limit {
		return nil, apierror.New(apierror.KindResourceExhausted, op, "insockets limit of %d reached", limit)
	}

	conn, err := n.binder.BindUDP(id)
	if err != nil {
		return nil, classifyBindError(op, id, err)
	}

	sock = newUDPServerSocket(n, id, conn)
	n.sockets[id] = sock
	n.metrics.listenersOpen.Inc()
	go sock.receive()

	n.logf("listening on %s (socket %s)", id, sock.id)
	return sock, nil
}
