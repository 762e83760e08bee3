package signal

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// hubMetrics holds the Prometheus metrics for a Hub.
type hubMetrics struct {
	subscribers prometheus.Gauge
	events      *prometheus.CounterVec
	dropped     prometheus.Counter
}

// newHubMetrics registers the hub metrics with the given registerer.
// A nil registerer falls back to the default one.
func newHubMetrics(reg prometheus.Registerer) *hubMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &hubMetrics{
		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "sockline",
			Name:      "subscribers",
			Help:      "Number of connected signalling channel subscribers",
		}),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "sockline",
			Name:      "events_total",
			Help:      "Total compilation events broadcast, by type",
		}, []string{"type"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "sockline",
			Name:      "dropped_subscribers_total",
			Help:      "Subscribers dropped because their send queue stalled or the write failed",
		}),
	}
}
