// Package netapi implements the sandboxed datagram API: listenformessage,
// sendmessage and the UDP server socket handles they hand out.
//
// Every call is checked against a restrictions policy before the host
// network stack is touched. A Network owns a table of open sockets keyed by
// (local IP, local port); at most one handle may hold a pair at a time.
package netapi

import (
	"fmt"
	"io"
	"net/netip"
	"sync"

	"github.com/eddmann/repyx/internal/apierror"
	"github.com/eddmann/repyx/internal/restrictions"
	"github.com/prometheus/client_golang/prometheus"
)

// APIVersion is the version of the sandbox API implemented here.
const APIVersion = "2.2.0"

// DefaultQueueSize is the number of datagrams buffered per socket before
// further datagrams are dropped.
const DefaultQueueSize = 128

// Network is one sandbox instance's view of the datagram API.
type Network struct {
	policy    *restrictions.Policy
	binder    Binder
	log       io.Writer
	verbose   bool
	queueSize int
	registry  *prometheus.Registry
	metrics   *metrics

	mu      sync.Mutex
	sockets map[netip.AddrPort]*UDPServerSocket
	closed  bool
}

// Option configures a Network.
type Option func(*Network)

// WithBinder replaces the host binder.
func WithBinder(b Binder) Option {
	return func(n *Network) { n.binder = b }
}

// WithLogger sets where verbose diagnostics are written.
func WithLogger(w io.Writer, verbose bool) Option {
	return func(n *Network) {
		n.log = w
		n.verbose = verbose
	}
}

// WithQueueSize sets the per-socket receive queue length.
func WithQueueSize(size int) Option {
	return func(n *Network) {
		if size > 0 {
			n.queueSize = size
		}
	}
}

// WithRegistry registers the network's metrics on reg instead of a
// private registry.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(n *Network) { n.registry = reg }
}

// New creates a Network enforcing policy. A nil policy is unrestricted.
func New(policy *restrictions.Policy, opts ...Option) *Network {
	if policy == nil {
		policy = restrictions.Unrestricted()
	}
	n := &Network{
		policy:    policy,
		binder:    HostBinder{},
		queueSize: DefaultQueueSize,
		sockets:   make(map[netip.AddrPort]*UDPServerSocket),
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.registry == nil {
		n.registry = prometheus.NewRegistry()
	}
	n.metrics = newMetrics(n.registry)
	return n
}

// Policy returns the restrictions the network enforces.
func (n *Network) Policy() *restrictions.Policy {
	return n.policy
}

// OpenSockets returns the number of listening sockets currently held.
func (n *Network) OpenSockets() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sockets)
}

// Registry returns the registry holding the network's metrics.
func (n *Network) Registry() *prometheus.Registry {
	return n.registry
}

// WriteMetrics writes the network's metrics to path in the Prometheus
// text format, suitable for a node_exporter textfile collector.
func (n *Network) WriteMetrics(path string) error {
	if err := prometheus.WriteToTextfile(path, n.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// Close releases every socket still held. Further listens fail.
func (n *Network) Close() {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	n.closed = true
	open := make([]*UDPServerSocket, 0, len(n.sockets))
	for _, s := range n.sockets {
		open = append(open, s)
	}
	n.mu.Unlock()

	for _, s := range open {
		s.Close()
	}
}

// release drops s from the socket table.
func (n *Network) release(s *UDPServerSocket) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if cur, ok := n.sockets[s.local]; ok && cur == s {
		delete(n.sockets, s.local)
		n.metrics.listenersOpen.Dec()
	}
}

func (n *Network) lookup(id netip.AddrPort) *UDPServerSocket {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.sockets[id]
}

func (n *Network) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func (n *Network) errClosed(op string) error {
	return apierror.New(apierror.KindSocketClosed, op, "network is closed")
}

func (n *Network) logf(format string, args ...any) {
	if n.verbose && n.log != nil {
		fmt.Fprintf(n.log, "[netapi] "+format+"\n", args...)
	}
}
