// Package observability collects Prometheus metrics for the realtime tier.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors for the realtime fan-out path.
//
// Exposed at /metrics via promhttp. Label cardinality is kept deliberately
// low: event names are a fixed catalogue and join outcomes a fixed set, and
// tenant/user ids are never used as labels.
type Metrics struct {
	// ConnectionsActive tracks currently open websocket connections.
	ConnectionsActive prometheus.Gauge

	// ConnectionsTotal counts handshakes that completed successfully.
	ConnectionsTotal prometheus.Counter

	// EventsEmitted counts events handed to the hub.
	// Labels: event (catalogue name)
	EventsEmitted *prometheus.CounterVec

	// FanoutSize observes how many connections each emitted event reached.
	FanoutSize prometheus.Histogram

	// JoinRequests counts project:join requests.
	// Labels: outcome (ok|not_a_member|project_not_found|bad_request|error)
	JoinRequests *prometheus.CounterVec

	// SendDrops counts frames dropped because a client's send buffer was full.
	SendDrops prometheus.Counter
}

// NewMetrics creates and registers all collectors against reg. Pass
// prometheus.DefaultRegisterer in production; tests use a fresh registry so
// they stay independent.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ConnectionsActive: factory.NewGauge(prometheus.GaugeOpts{
			Name: "realtime_connections_active",
			Help: "Number of currently open websocket connections",
		}),

		ConnectionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "realtime_connections_total",
			Help: "Total number of websocket handshakes completed",
		}),

		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_events_emitted_total",
			Help: "Total number of events handed to the hub by event name",
		}, []string{"event"}),

		FanoutSize: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "realtime_fanout_size",
			Help:    "Number of connections each emitted event was delivered to",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100, 250, 500},
		}),

		JoinRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "realtime_join_requests_total",
			Help: "Total number of project:join requests by outcome",
		}, []string{"outcome"}),

		SendDrops: factory.NewCounter(prometheus.CounterOpts{
			Name: "realtime_send_drops_total",
			Help: "Total number of frames dropped due to a full client send buffer",
		}),
	}
}
