package netapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

type metrics struct {
	listenAttempts *prometheus.CounterVec
	listenersOpen  prometheus.Gauge
	received       prometheus.Counter
	dropped        prometheus.Counter
	sent           prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		listenAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "repyx_listen_attempts_total",
			Help: "listenformessage calls by result (ok or error kind).",
		}, []string{"result"}),
		listenersOpen: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "repyx_listeners_open",
			Help: "Listening datagram sockets currently held.",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repyx_messages_received_total",
			Help: "Datagrams queued for getmessage.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repyx_messages_dropped_total",
			Help: "Datagrams dropped because a socket queue was full.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "repyx_messages_sent_total",
			Help: "Datagrams sent by sendmessage.",
		}),
	}
	reg.MustRegister(m.listenAttempts, m.listenersOpen, m.received, m.dropped, m.sent)
	return m
}
