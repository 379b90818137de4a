package upstream

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// clientMetrics contains Prometheus metrics for upstream calls.
type clientMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	streamedItems   prometheus.Counter
}

var (
	clientMetricsInstance *clientMetrics
	clientMetricsOnce     sync.Once
)

// InitMetrics registers the upstream client metrics with registerer. If
// registerer is nil the default registerer is used. Subsequent calls
// are no-ops.
func InitMetrics(registerer prometheus.Registerer) {
	clientMetricsOnce.Do(func() {
		if registerer == nil {
			registerer = prometheus.DefaultRegisterer
		}
		factory := promauto.With(registerer)
		clientMetricsInstance = &clientMetrics{
			requestsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "productgw",
					Subsystem: "upstream",
					Name:      "requests_total",
					Help:      "Total number of upstream requests by operation and status",
				},
				[]string{"op", "status"},
			),
			requestDuration: factory.NewHistogramVec(
				prometheus.HistogramOpts{
					Namespace: "productgw",
					Subsystem: "upstream",
					Name:      "request_duration_seconds",
					Help:      "Time until upstream response headers were received",
					Buckets: []float64{
						.001, .005, .01, .025,
						.05, .1, .25, .5,
						1, 2.5, 5, 10,
					},
				},
				[]string{"op"},
			),
			errorsTotal: factory.NewCounterVec(
				prometheus.CounterOpts{
					Namespace: "productgw",
					Subsystem: "upstream",
					Name:      "errors_total",
					Help:      "Total number of upstream failures by operation and type",
				},
				[]string{"op", "error_type"},
			),
			streamedItems: factory.NewCounter(
				prometheus.CounterOpts{
					Namespace: "productgw",
					Subsystem: "upstream",
					Name:      "streamed_products_total",
					Help:      "Total number of products decoded from list streams",
				},
			),
		}
	})
}

func getClientMetrics() *clientMetrics {
	InitMetrics(nil)
	return clientMetricsInstance
}
