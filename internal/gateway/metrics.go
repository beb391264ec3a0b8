// ABOUTME: Prometheus metrics for the gateway
// ABOUTME: Tracks sent messages, live websocket connections and inbound ws events

package gateway

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	messagesSent  prometheus.Counter
	wsConnections prometheus.Gauge
	wsEvents      *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		messagesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "connectify",
			Subsystem: "gateway",
			Name:      "messages_sent_total",
			Help:      "Messages persisted via POST /api/messages.",
		}),
		wsConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "connectify",
			Subsystem: "gateway",
			Name:      "ws_connections",
			Help:      "Currently open websocket connections.",
		}),
		wsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "connectify",
			Subsystem: "gateway",
			Name:      "ws_events_total",
			Help:      "Inbound websocket events by type.",
		}, []string{"event"}),
	}

	reg.MustRegister(m.messagesSent, m.wsConnections, m.wsEvents)
	return m
}
