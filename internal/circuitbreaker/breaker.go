// Package circuitbreaker guards the upstream client with a sony/gobreaker
// circuit breaker.
package circuitbreaker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vyrodovalexey/productgw/internal/observability"
)

// cbTracer is the OTEL tracer used for state change events.
var cbTracer = otel.Tracer("productgw/circuitbreaker")

// ErrOpen is returned when the breaker rejects a call.
var ErrOpen = errors.New("circuit breaker is open")

// Config configures a Breaker.
type Config struct {
	Name string

	// MaxRequests is the number of probe calls allowed while half-open.
	MaxRequests int

	// Interval is the closed-state window after which counts reset.
	// Zero never resets.
	Interval time.Duration

	// Timeout is how long the breaker stays open before probing.
	Timeout time.Duration

	// FailureThreshold is the minimum number of calls in a window before
	// the failure ratio can trip the breaker.
	FailureThreshold int
}

// StateFunc is called after a state transition.
type StateFunc func(name string, from, to gobreaker.State)

// Breaker wraps gobreaker.CircuitBreaker.
type Breaker struct {
	cb            *gobreaker.CircuitBreaker
	name          string
	logger        observability.Logger
	stateCallback StateFunc
}

// Option is a functional option for configuring the breaker.
type Option func(*Breaker)

// WithLogger sets the logger for the breaker.
func WithLogger(logger observability.Logger) Option {
	return func(b *Breaker) {
		b.logger = logger
	}
}

// WithStateCallback sets a callback for state transitions.
func WithStateCallback(fn StateFunc) Option {
	return func(b *Breaker) {
		b.stateCallback = fn
	}
}

// New creates a breaker that trips when at least FailureThreshold calls
// were made in the current window and half of them failed.
func New(cfg Config, opts ...Option) *Breaker {
	b := &Breaker{
		name:   cfg.Name,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(b)
	}

	threshold := safeIntToUint32(cfg.FailureThreshold)

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: safeIntToUint32(cfg.MaxRequests),
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests == 0 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		// A caller that gave up says nothing about upstream health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: b.onStateChange,
	}

	b.cb = gobreaker.NewCircuitBreaker(settings)
	getMetrics().state.WithLabelValues(cfg.Name).Set(float64(gobreaker.StateClosed))

	return b
}

func (b *Breaker) onStateChange(name string, from, to gobreaker.State) {
	b.logger.Warn("circuit breaker state change",
		observability.String("name", name),
		observability.String("from", from.String()),
		observability.String("to", to.String()),
	)

	m := getMetrics()
	m.state.WithLabelValues(name).Set(float64(to))
	m.transitions.WithLabelValues(name, from.String(), to.String()).Inc()

	_, span := cbTracer.Start(context.Background(),
		"circuitbreaker.state_change",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
	span.AddEvent("state_change", trace.WithAttributes(
		attribute.String("circuitbreaker.name", name),
		attribute.String("circuitbreaker.from", from.String()),
		attribute.String("circuitbreaker.to", to.String()),
	))
	span.End()

	if b.stateCallback != nil {
		b.stateCallback(name, from, to)
	}
}

// safeIntToUint32 clamps n into the uint32 range.
func safeIntToUint32(n int) uint32 {
	if n < 0 {
		return 0
	}
	if n > int(^uint32(0)) {
		return ^uint32(0)
	}
	return uint32(n) //nolint:gosec // bounds checked above
}

// Execute runs fn unless the breaker is open. A non-nil error from fn
// counts as a failure. Rejections wrap ErrOpen.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.cb.Execute(fn)
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		getMetrics().rejected.WithLabelValues(b.name).Inc()
		return nil, fmt.Errorf("%w: %s: %w", ErrOpen, b.name, err)
	}
	return result, err
}

// State returns the current state of the breaker.
func (b *Breaker) State() gobreaker.State {
	return b.cb.State()
}

// Name returns the breaker name.
func (b *Breaker) Name() string {
	return b.name
}
