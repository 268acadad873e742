// Package metrics exports bridge counters in Prometheus format.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "lockbridge"

// Collector implements ipc.Observer on top of a private Prometheus registry.
type Collector struct {
	registry *prometheus.Registry

	connections   prometheus.Counter
	disconnects   prometheus.Counter
	received      prometheus.Counter
	malformed     prometheus.Counter
	sent          prometheus.Counter
	dropped       prometheus.Counter
	connected     prometheus.Gauge
	reportedState prometheus.Gauge
}

func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		connections: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_connections_total",
			Help:      "Physical lock driver connections accepted.",
		}),
		disconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "peer_disconnects_total",
			Help:      "Physical lock driver connections closed.",
		}),
		received: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "State codes received from the driver.",
		}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_malformed_total",
			Help:      "Driver payloads dropped because they were not a state code.",
		}),
		sent: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_sent_total",
			Help:      "State codes written to the driver.",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Outbound state codes dropped before reaching the driver.",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "peer_connected",
			Help:      "1 while a physical lock driver is connected.",
		}),
		reportedState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "lock_reported_state",
			Help:      "Last lock mechanism state code reported by the driver.",
		}),
	}
	c.reportedState.Set(3)

	c.registry.MustRegister(
		c.connections,
		c.disconnects,
		c.received,
		c.malformed,
		c.sent,
		c.dropped,
		c.connected,
		c.reportedState,
	)
	return c
}

// Registry exposes the collector's registry for HTTP export.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

func (c *Collector) PeerConnected() {
	c.connections.Inc()
	c.connected.Set(1)
}

func (c *Collector) PeerDisconnected() {
	c.disconnects.Inc()
	c.connected.Set(0)
}

func (c *Collector) Received(int) { c.received.Inc() }
func (c *Collector) Malformed()   { c.malformed.Inc() }
func (c *Collector) Sent(int)     { c.sent.Inc() }
func (c *Collector) Dropped()     { c.dropped.Inc() }

// ObserveLockState records the lock state last reported by the driver.
func (c *Collector) ObserveLockState(code int) {
	c.reportedState.Set(float64(code))
}
