package ds

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics wraps the engine's Prometheus instrumentation. It owns its own
// registry rather than registering against prometheus.DefaultRegisterer,
// so embedding this module never fights a host application over the
// global registry and the engine never starts an HTTP server of its own
// (spec.md §7's "never owns a listening admin port" carried to metrics).
type Metrics struct {
	registry *prometheus.Registry

	packetsSent     *prometheus.CounterVec
	packetsReceived *prometheus.CounterVec
	peerConnected   *prometheus.GaugeVec
	tickDuration    prometheus.Histogram
}

func newMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		packetsSent: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ds_packets_sent_total",
			Help: "Packets sent to a peer, by peer name.",
		}, []string{"peer"}),
		packetsReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ds_packets_received_total",
			Help: "Well-formed packets received from a peer, by peer name.",
		}, []string{"peer"}),
		peerConnected: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ds_peer_connected",
			Help: "1 if the peer's watchdog has not expired, 0 otherwise.",
		}, []string{"peer"}),
		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "ds_dispatcher_tick_duration_seconds",
			Help:    "Wall time spent servicing one dispatcher tick.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Registry exposes the local registry so a host application can mount it
// under its own /metrics handler if it wants to; the engine itself never
// listens on a port.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) sent(peerName string) {
	if m == nil {
		return
	}
	m.packetsSent.WithLabelValues(peerName).Inc()
}

func (m *Metrics) received(peerName string) {
	if m == nil {
		return
	}
	m.packetsReceived.WithLabelValues(peerName).Inc()
}

func (m *Metrics) connected(peerName string, up bool) {
	if m == nil {
		return
	}
	v := 0.0
	if up {
		v = 1.0
	}
	m.peerConnected.WithLabelValues(peerName).Set(v)
}

func (m *Metrics) observeTick(seconds float64) {
	if m == nil {
		return
	}
	m.tickDuration.Observe(seconds)
}
