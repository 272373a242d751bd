package obs

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	domainOnce sync.Once

	// RedirectBuildTotal counts redirect payload build outcomes by mode.
	RedirectBuildTotal *prometheus.CounterVec
	// GatewayCallTotal counts outbound gateway calls by operation and result.
	GatewayCallTotal *prometheus.CounterVec
	// GatewayCallLatency records outbound gateway call latency in milliseconds.
	GatewayCallLatency *prometheus.HistogramVec
	// ReconcileTotal counts confirmation reconciliations by outcome.
	ReconcileTotal *prometheus.CounterVec
	// PendingSweepDeleted counts stale pending-payment records removed by the sweeper.
	PendingSweepDeleted prometheus.Counter
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		factory := promauto.With(reg)
		RedirectBuildTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redirect_build_total",
			Help:      "Count of gateway redirect payload builds by mode and result.",
		}, []string{"mode", "result"})
		GatewayCallTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_call_total",
			Help:      "Count of outbound gateway calls by operation and result.",
		}, []string{"op", "result"})
		GatewayCallLatency = factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_ms",
			Help:      "Latency of outbound gateway calls in milliseconds.",
			Buckets:   []float64{10, 25, 50, 100, 250, 500, 1000, 2500, 5000, 10000},
		}, []string{"op"})
		ReconcileTotal = factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconcile_total",
			Help:      "Count of confirmation reconciliations by outcome.",
		}, []string{"outcome"})
		PendingSweepDeleted = factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pending_sweep_deleted_total",
			Help:      "Stale pending-payment records removed by the sweeper.",
		})
	})
}
