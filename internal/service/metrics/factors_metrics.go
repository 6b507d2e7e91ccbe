package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	FactorsLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "autotrade",
			Subsystem: "factors",
			Name:      "latency_seconds",
			Help:      "Latency of external factor requests",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	FactorsErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "autotrade",
			Subsystem: "factors",
			Name:      "errors_total",
			Help:      "Errors by external factor endpoint",
		},
		[]string{"endpoint"},
	)

	BreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "autotrade",
			Subsystem: "factors",
			Name:      "breaker_state",
			Help:      "Circuit breaker state (0 closed, 1 half-open, 2 open)",
		},
		[]string{"name"},
	)

	PushClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "autotrade",
			Subsystem: "push",
			Name:      "clients",
			Help:      "Connected websocket clients",
		},
	)
)

// Register adds the collectors to the default registry once.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(FactorsLatency, FactorsErrors, BreakerState, PushClients)
	})
}
