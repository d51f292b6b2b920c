// Package metrics exposes client connection health as Prometheus metrics.
//
// All methods are safe on a nil *Metrics, so components can record
// unconditionally and callers opt in by passing a collector.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sessamekesh/turnlink/pkg/message"
	"github.com/sessamekesh/turnlink/pkg/quality"
)

type MetricsParams struct {
	// Namespace defaults to "turnlink".
	Namespace   string
	ConstLabels prometheus.Labels

	// Registry defaults to prometheus.DefaultRegisterer.
	Registry prometheus.Registerer
}

type Metrics struct {
	latency    prometheus.Gauge
	jitter     prometheus.Gauge
	packetLoss prometheus.Gauge
	rtt        prometheus.Histogram

	connectionState prometheus.Gauge

	messagesSent     *prometheus.CounterVec
	messagesReceived *prometheus.CounterVec
	packetsDropped   *prometheus.CounterVec
	protocolErrors   prometheus.Counter

	desyncs           prometheus.Counter
	resyncRequests    prometheus.Counter
	reconnectAttempts prometheus.Counter
}

func CreateMetrics(params MetricsParams) *Metrics {
	if params.Namespace == "" {
		params.Namespace = "turnlink"
	}
	if params.Registry == nil {
		params.Registry = prometheus.DefaultRegisterer
	}
	factory := promauto.With(params.Registry)

	return &Metrics{
		latency: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   params.Namespace,
			Name:        "latency_seconds",
			Help:        "Rolling average round trip time to the server",
			ConstLabels: params.ConstLabels,
		}),
		jitter: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   params.Namespace,
			Name:        "jitter_seconds",
			Help:        "Difference between the two most recent round trip samples",
			ConstLabels: params.ConstLabels,
		}),
		packetLoss: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   params.Namespace,
			Name:        "packet_loss_ratio",
			Help:        "Rolling ratio of heartbeat pings that never got a pong",
			ConstLabels: params.ConstLabels,
		}),
		rtt: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   params.Namespace,
			Name:        "rtt_seconds",
			Help:        "Round trip time of individual heartbeat pings",
			ConstLabels: params.ConstLabels,
			Buckets:     []float64{0.01, 0.025, 0.05, 0.1, 0.2, 0.4, 0.8, 1.6},
		}),
		connectionState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   params.Namespace,
			Name:        "connection_state",
			Help:        "Numeric client connection state (0 = Disconnected)",
			ConstLabels: params.ConstLabels,
		}),
		messagesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   params.Namespace,
			Name:        "messages_sent_total",
			Help:        "Messages handed to the transport, by kind",
			ConstLabels: params.ConstLabels,
		}, []string{"kind"}),
		messagesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   params.Namespace,
			Name:        "messages_received_total",
			Help:        "Messages admitted by the sequencer and dispatched, by kind",
			ConstLabels: params.ConstLabels,
		}, []string{"kind"}),
		packetsDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   params.Namespace,
			Name:        "packets_dropped_total",
			Help:        "Inbound packets that were never dispatched, by reason",
			ConstLabels: params.ConstLabels,
		}, []string{"reason"}),
		protocolErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   params.Namespace,
			Name:        "protocol_errors_total",
			Help:        "Inbound packets that failed to decode",
			ConstLabels: params.ConstLabels,
		}),
		desyncs: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   params.Namespace,
			Name:        "desyncs_total",
			Help:        "Detected disagreements between local and authoritative state",
			ConstLabels: params.ConstLabels,
		}),
		resyncRequests: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   params.Namespace,
			Name:        "resync_requests_total",
			Help:        "Sync requests sent to the server",
			ConstLabels: params.ConstLabels,
		}),
		reconnectAttempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   params.Namespace,
			Name:        "reconnect_attempts_total",
			Help:        "Reconnect attempts started after a lost connection",
			ConstLabels: params.ConstLabels,
		}),
	}
}

func (m *Metrics) ObserveQuality(snapshot quality.Snapshot) {
	if m == nil {
		return
	}
	m.latency.Set(snapshot.AverageLatency.Seconds())
	m.jitter.Set(snapshot.Jitter.Seconds())
	m.packetLoss.Set(snapshot.PacketLoss)
}

func (m *Metrics) ObserveRoundTrip(seconds float64) {
	if m == nil {
		return
	}
	m.rtt.Observe(seconds)
}

func (m *Metrics) SetConnectionState(state int) {
	if m == nil {
		return
	}
	m.connectionState.Set(float64(state))
}

func (m *Metrics) MessageSent(kind message.MessageKind) {
	if m == nil {
		return
	}
	m.messagesSent.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) MessageReceived(kind message.MessageKind) {
	if m == nil {
		return
	}
	m.messagesReceived.WithLabelValues(kind.String()).Inc()
}

func (m *Metrics) PacketDropped(reason string) {
	if m == nil {
		return
	}
	m.packetsDropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) ProtocolError() {
	if m == nil {
		return
	}
	m.protocolErrors.Inc()
	m.packetsDropped.WithLabelValues("protocol").Inc()
}

func (m *Metrics) Desync() {
	if m == nil {
		return
	}
	m.desyncs.Inc()
}

func (m *Metrics) ResyncRequested() {
	if m == nil {
		return
	}
	m.resyncRequests.Inc()
}

func (m *Metrics) ReconnectAttempt() {
	if m == nil {
		return
	}
	m.reconnectAttempts.Inc()
}
