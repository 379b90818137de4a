// Package observability provides logging, metrics, and tracing for the
// product forwarding service.
//
// # Logging
//
// The Logger interface wraps zap and carries a runtime-adjustable level:
//
//	logger, err := observability.NewLogger(observability.LogConfig{Level: "info", Format: "json"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	logger.Info("request processed",
//	    observability.String("method", "GET"),
//	    observability.Int("status", 200),
//	)
//
// # Metrics
//
// Inbound request metrics are kept in a dedicated Prometheus registry
// that also backs the /metrics endpoint:
//
//	metrics := observability.NewMetrics("productgw")
//	engine.Use(metrics.GinMiddleware())
//
// # Tracing
//
// OpenTelemetry tracing with OTLP gRPC export. Server spans are started
// by Tracer.GinMiddleware; outbound spans are created by the upstream
// client transport.
package observability
