// Package metrics exposes the Prometheus instruments of the chat core.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is safe to use through a nil pointer; every recorder is then a
// no-op.
type Metrics struct {
	registry *prometheus.Registry

	connections       prometheus.Gauge
	onlineUsers       prometheus.Gauge
	messagesPersisted *prometheus.CounterVec
	deliveries        prometheus.Counter
	droppedDeliveries prometheus.Counter
	events            *prometheus.CounterVec
	presenceSwept     prometheus.Counter
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		connections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "socialhub",
			Name:      "ws_connections",
			Help:      "Live WebSocket connections.",
		}),
		onlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "socialhub",
			Name:      "online_users",
			Help:      "Users with at least one live connection.",
		}),
		messagesPersisted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialhub",
			Name:      "messages_persisted_total",
			Help:      "Messages written, by message type.",
		}, []string{"type"}),
		deliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "socialhub",
			Name:      "ws_deliveries_total",
			Help:      "Frames enqueued to connections.",
		}),
		droppedDeliveries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "socialhub",
			Name:      "ws_dropped_deliveries_total",
			Help:      "Frames dropped because a connection buffer was full or closed.",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "socialhub",
			Name:      "ws_events_total",
			Help:      "Client events handled, by event and result.",
		}, []string{"event", "result"}),
		presenceSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "socialhub",
			Name:      "presence_swept_total",
			Help:      "Stale presence entries marked offline.",
		}),
	}
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.connections,
		m.onlineUsers,
		m.messagesPersisted,
		m.deliveries,
		m.droppedDeliveries,
		m.events,
		m.presenceSwept,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ConnectionOpened() {
	if m != nil {
		m.connections.Inc()
	}
}

func (m *Metrics) ConnectionClosed() {
	if m != nil {
		m.connections.Dec()
	}
}

func (m *Metrics) UserOnline() {
	if m != nil {
		m.onlineUsers.Inc()
	}
}

func (m *Metrics) UserOffline() {
	if m != nil {
		m.onlineUsers.Dec()
	}
}

func (m *Metrics) MessagePersisted(messageType string) {
	if m != nil {
		m.messagesPersisted.WithLabelValues(messageType).Inc()
	}
}

func (m *Metrics) Delivered() {
	if m != nil {
		m.deliveries.Inc()
	}
}

func (m *Metrics) Dropped() {
	if m != nil {
		m.droppedDeliveries.Inc()
	}
}

func (m *Metrics) EventHandled(event string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.events.WithLabelValues(event, result).Inc()
}

func (m *Metrics) PresenceSwept(n int64) {
	if m != nil && n > 0 {
		m.presenceSwept.Add(float64(n))
	}
}
