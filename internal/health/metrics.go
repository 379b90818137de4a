package health

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type healthMetrics struct {
	checksTotal *prometheus.CounterVec
	checkStatus *prometheus.GaugeVec
}

var (
	healthMetricsInstance *healthMetrics
	healthMetricsOnce     sync.Once
)

// InitMetrics registers the health metrics with registerer. If registerer
// is nil the default registerer is used. Subsequent calls are no-ops.
func InitMetrics(registerer prometheus.Registerer) {
	healthMetricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		factory := promauto.With(registerer)
		healthMetricsInstance = &healthMetrics{
			checksTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "productgw",
					Subsystem: "health",
					Name:      "checks_total",
					Help:      "Total number of health endpoint calls by type",
				},
				[]string{"type"},
			),
			checkStatus: factory.NewGaugeVec(
				prometheus.GaugeOpts{
					Namespace: "productgw",
					Subsystem: "health",
					Name:      "check_status",
					Help:      "Last readiness check result (1=healthy, 0.5=degraded, 0=unhealthy)",
				},
				[]string{"check"},
			),
		}
	})
}

func getMetrics() *healthMetrics {
	InitMetrics(nil)
	return healthMetricsInstance
}

func recordCheck(name string, status Status) {
	value := 0.0
	switch status {
	case StatusHealthy:
		value = 1
	case StatusDegraded:
		value = 0.5
	}
	getMetrics().checkStatus.WithLabelValues(name).Set(value)
}
