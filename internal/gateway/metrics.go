// ABOUTME: Prometheus metrics for bootstrap and startup lifecycle traffic

package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	bootstrapTotal     *prometheus.CounterVec
	startupTransitions *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	openSessions       prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		bootstrapTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bootgate_bootstrap_requests_total",
			Help: "Bootstrap requests by outcome (issued, cached, rejected, error).",
		}, []string{"outcome"}),
		startupTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "bootgate_startup_transitions_total",
			Help: "Startup session transitions by target status.",
		}, []string{"status"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bootgate_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		openSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "bootgate_open_sessions",
			Help: "Startup sessions currently in the OPEN state.",
		}),
	}
}
