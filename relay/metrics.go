package relay

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics carries the relay's counters on a private registry so tests
// can run several relays side by side.
type Metrics struct {
	registry *prometheus.Registry

	EventsRead      prometheus.Counter
	EventsBroadcast prometheus.Counter
	ParseErrors     prometheus.Counter
	DroppedSubs     prometheus.Counter
	Subscribers     prometheus.Gauge
}

// NewMetrics builds and registers the relay metric set.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EventsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_tap_events_read_total",
			Help: "Events decoded off the engine transport.",
		}),
		EventsBroadcast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_tap_events_broadcast_total",
			Help: "Filtered events handed to the broadcast step.",
		}),
		ParseErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_tap_parse_errors_total",
			Help: "Payloads that failed to decode.",
		}),
		DroppedSubs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "engine_tap_dropped_subscribers_total",
			Help: "Subscribers removed for slow consumption or write failure.",
		}),
		Subscribers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "engine_tap_subscribers",
			Help: "Currently connected subscribers.",
		}),
	}
	m.registry.MustRegister(m.EventsRead, m.EventsBroadcast, m.ParseErrors, m.DroppedSubs, m.Subscribers)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
