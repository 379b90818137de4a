package circuitbreaker

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type breakerMetrics struct {
	state       *prometheus.GaugeVec
	transitions *prometheus.CounterVec
	rejected    *prometheus.CounterVec
}

var (
	metricsInstance *breakerMetrics
	metricsOnce     sync.Once
)

// InitMetrics registers the breaker metrics with registerer. If
// registerer is nil the default registerer is used. Only the first call
// has an effect; it must happen before any breaker is created to take
// effect.
func InitMetrics(registerer prometheus.Registerer) {
	metricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		factory := promauto.With(registerer)
		metricsInstance = &breakerMetrics{
			state: factory.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "productgw",
					Subsystem: "circuit_breaker",
					Name:      "state",
					Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
				},
				[]string{"name"},
			),
			transitions: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "productgw",
					Subsystem: "circuit_breaker",
					Name:      "transitions_total",
					Help:      "Total number of circuit breaker state transitions",
				},
				[]string{"name", "from", "to"},
			),
			rejected: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "productgw",
					Subsystem: "circuit_breaker",
					Name:      "rejected_total",
					Help:      "Total number of calls rejected by an open circuit breaker",
				},
				[]string{"name"},
			),
		}
	})
}

func getMetrics() *breakerMetrics {
	InitMetrics(nil)
	return metricsInstance
}
