package main

import (
	"cmp"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vyrodovalexey/productgw/internal/observability"
)

// newOpsHandler serves metrics and health probes. It is kept off the API
// engine so probes and scrapes bypass the product middleware chain.
func newOpsHandler(metricsPath string, app *application) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET "+metricsPath, app.metrics.Handler())
	mux.HandleFunc("GET /health", app.healthChecker.HealthHandler())
	mux.HandleFunc("GET /ready", app.healthChecker.ReadinessHandler())
	mux.HandleFunc("GET /live", app.healthChecker.LivenessHandler())
	return mux
}

// startMetricsServerIfEnabled binds the metrics port and serves it in the
// background. A bind failure is logged and the API keeps running.
func startMetricsServerIfEnabled(app *application, logger observability.Logger) {
	cfg := app.currentConfig().Observability.Metrics
	if !cfg.Enabled {
		return
	}
	path := cmp.Or(cfg.Path, "/metrics")

	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.Port))
	if err != nil {
		logger.Error("metrics server not started", observability.Error(err))
		return
	}

	srv := &http.Server{
		Handler:           newOpsHandler(path, app),
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      10 * time.Second,
	}
	app.metricsServer = srv

	logger.Info("metrics server listening",
		observability.String("address", ln.Addr().String()),
		observability.String("metrics_path", path),
	)
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", observability.Error(err))
		}
	}()
}
