package main

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/vyrodovalexey/productgw/internal/circuitbreaker"
	"github.com/vyrodovalexey/productgw/internal/config"
	"github.com/vyrodovalexey/productgw/internal/handler"
	"github.com/vyrodovalexey/productgw/internal/health"
	"github.com/vyrodovalexey/productgw/internal/middleware"
	"github.com/vyrodovalexey/productgw/internal/observability"
	"github.com/vyrodovalexey/productgw/internal/product"
	"github.com/vyrodovalexey/productgw/internal/server"
	"github.com/vyrodovalexey/productgw/internal/upstream"
)

// application holds all application components.
type application struct {
	server        *server.Server
	client        *upstream.Client
	healthChecker *health.Checker
	metrics       *observability.Metrics
	metricsServer *http.Server
	tracer        *observability.Tracer
	logger        observability.Logger

	mu     sync.Mutex
	config *config.Config
}

// initApplication builds every component from cfg. Nothing is started.
func initApplication(cfg *config.Config, logger observability.Logger) (*application, error) {
	metrics := observability.NewMetrics("productgw")
	metrics.SetBuildInfo(version, gitCommit, buildTime)
	upstream.InitMetrics(metrics.Registry())
	circuitbreaker.InitMetrics(metrics.Registry())
	health.InitMetrics(metrics.Registry())

	tracer, err := initTracer(cfg, logger)
	if err != nil {
		return nil, err
	}

	breaker := newCircuitBreaker(cfg.Upstream.CircuitBreaker, logger)
	client, err := newUpstreamClient(cfg.Upstream, breaker, logger)
	if err != nil {
		return nil, err
	}

	healthChecker := health.NewChecker(version)
	healthChecker.RegisterCheck("circuit_breaker", health.CircuitBreakerCheck(breaker))
	dialCheck, err := health.UpstreamDialCheck(cfg.Upstream.BaseURL)
	if err != nil {
		return nil, err
	}
	healthChecker.RegisterCheck("upstream", dialCheck)

	srv := server.New(serverConfig(cfg.Server), logger)
	srv.Use(
		middleware.RequestID(),
		tracer.GinMiddleware(),
		metrics.GinMiddleware(),
		middleware.Logging(logger),
		middleware.Recovery(logger),
	)
	handler.New(client, handler.WithLogger(logger)).RegisterRoutes(srv.Group(cfg.BasePath))

	return &application{
		server:        srv,
		client:        client,
		healthChecker: healthChecker,
		metrics:       metrics,
		tracer:        tracer,
		logger:        logger,
		config:        cfg,
	}, nil
}

// initTracer initializes the tracer and routes OpenTelemetry's own
// diagnostics to logger.
func initTracer(cfg *config.Config, logger observability.Logger) (*observability.Tracer, error) {
	tracing := cfg.Observability.Tracing
	serviceName := tracing.ServiceName
	if serviceName == "" {
		serviceName = config.DefaultServiceName
	}

	tracer, err := observability.NewTracer(observability.TracerConfig{
		ServiceName:    serviceName,
		ServiceVersion: version,
		OTLPEndpoint:   tracing.OTLPEndpoint,
		SamplingRate:   tracing.SamplingRate,
		Enabled:        tracing.Enabled,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracer: %w", err)
	}

	observability.BridgeOTelLogger(logger)
	return tracer, nil
}

// newCircuitBreaker returns nil when the breaker is disabled.
func newCircuitBreaker(cfg config.CircuitBreakerConfig, logger observability.Logger) *circuitbreaker.Breaker {
	if !cfg.Enabled {
		return nil
	}
	return circuitbreaker.New(circuitbreaker.Config{
		Name:             "upstream",
		MaxRequests:      cfg.MaxRequests,
		Interval:         cfg.Interval.Duration(),
		Timeout:          cfg.Timeout.Duration(),
		FailureThreshold: cfg.FailureThreshold,
	}, circuitbreaker.WithLogger(logger))
}

// newUpstreamClient builds the single upstream client shared by all
// requests.
func newUpstreamClient(
	cfg config.UpstreamConfig,
	breaker *circuitbreaker.Breaker,
	logger observability.Logger,
) (*upstream.Client, error) {
	shape, err := product.ParseShape(cfg.Shape)
	if err != nil {
		return nil, err
	}
	policy, err := upstream.ParsePolicy(cfg.Policy)
	if err != nil {
		return nil, err
	}

	pool := upstream.PoolConfig{
		MaxIdleConns:          cfg.Pool.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.Pool.MaxIdleConnsPerHost,
		MaxConnsPerHost:       cfg.Pool.MaxConnsPerHost,
		IdleConnTimeout:       cfg.Pool.IdleConnTimeout.Duration(),
		ResponseHeaderTimeout: cfg.Pool.ResponseHeaderTimeout.Duration(),
		DialTimeout:           cfg.Pool.DialTimeout.Duration(),
	}

	opts := []upstream.Option{
		upstream.WithHTTPClient(upstream.NewHTTPClient(pool, cfg.Timeout.Duration())),
		upstream.WithShape(shape),
		upstream.WithPolicy(policy),
		upstream.WithLogger(logger),
	}
	if breaker != nil {
		opts = append(opts, upstream.WithCircuitBreaker(breaker))
	}

	client, err := upstream.New(cfg.BaseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create upstream client: %w", err)
	}
	return client, nil
}

func serverConfig(cfg config.ServerConfig) *server.Config {
	return &server.Config{
		Address:            cfg.Address,
		Port:               cfg.Port,
		ReadTimeout:        cfg.ReadTimeout.Duration(),
		WriteTimeout:       cfg.WriteTimeout.Duration(),
		IdleTimeout:        cfg.IdleTimeout.Duration(),
		MaxHeaderBytes:     cfg.MaxHeaderBytes,
		MaxRequestBodySize: cfg.MaxBodySize,
	}
}

// currentConfig returns the last applied configuration.
func (a *application) currentConfig() *config.Config {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.config
}
