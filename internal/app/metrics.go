package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "spacetraveling"

// Metrics holds the Prometheus collectors shared by the HTTP layer and the content client.
type Metrics struct {
	ContentRequests        *prometheus.CounterVec
	ContentRequestDuration *prometheus.HistogramVec
	PageCache              *prometheus.CounterVec
	LoadMore               *prometheus.CounterVec
	ActiveSessions         prometheus.Gauge
}

// NewMetrics creates and registers all collectors on reg.
// A nil registerer means the default one.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	return &Metrics{
		ContentRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "content",
			Name:      "requests_total",
			Help:      "Requests made to the content service by operation and outcome",
		}, []string{"operation", "outcome"}),
		ContentRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "content",
			Name:      "request_duration_seconds",
			Help:      "Duration of content service requests",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		PageCache: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "pages",
			Name:      "cache_total",
			Help:      "Generated page lookups by page kind and cache status",
		}, []string{"page", "status"}),
		LoadMore: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "listing",
			Name:      "load_more_total",
			Help:      "Load more attempts by outcome",
		}, []string{"outcome"}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "listing",
			Name:      "sessions",
			Help:      "Listing sessions currently held in memory",
		}),
	}
}
