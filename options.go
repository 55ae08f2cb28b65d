package dispatch

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"
)

// DefaultName is used when no name is configured.
const DefaultName = "dispatch"

// DefaultMaxInFlight caps the background tasks running at once.
const DefaultMaxInFlight = 1024

// PanicHandler receives every listener panic recovered by a dispatcher.
type PanicHandler func(err *ListenerPanicError)

type options struct {
	name           string
	logger         *slog.Logger
	recovery       bool
	panicHandler   PanicHandler
	maxInFlight    int
	spawnLimit     rate.Limit
	spawnBurst     int
	metricsEnabled bool
	tracingEnabled bool
	meterProvider  metric.MeterProvider
	tracerProvider trace.TracerProvider
}

// Option configures a Dispatcher.
type Option func(*options)

// WithName sets the name used for the logger component, meter and tracer.
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithRecovery enables/disables panic recovery around synchronous listener
// calls. When disabled a panicking listener aborts the dispatch and the panic
// reaches the caller. Background tasks always recover.
func WithRecovery(enabled bool) Option {
	return func(o *options) {
		o.recovery = enabled
	}
}

// WithPanicHandler sets a callback for recovered listener panics.
func WithPanicHandler(h PanicHandler) Option {
	return func(o *options) {
		o.panicHandler = h
	}
}

// WithMaxInFlight sets how many background tasks may run at once. Tasks
// beyond the limit queue; ExecuteAsync and ExecuteParallel never wait for them.
func WithMaxInFlight(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxInFlight = n
		}
	}
}

// WithSpawnRate throttles background task creation to limit tasks per second
// with the given burst.
func WithSpawnRate(limit rate.Limit, burst int) Option {
	return func(o *options) {
		if limit > 0 && burst > 0 {
			o.spawnLimit = limit
			o.spawnBurst = burst
		}
	}
}

// WithMetrics enables/disables metrics.
func WithMetrics(enabled bool) Option {
	return func(o *options) {
		o.metricsEnabled = enabled
	}
}

// WithTracing enables/disables tracing.
func WithTracing(enabled bool) Option {
	return func(o *options) {
		o.tracingEnabled = enabled
	}
}

// WithMeterProvider sets the meter provider, the global one is used otherwise.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// WithTracerProvider sets the tracer provider, the global one is used otherwise.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) {
		if tp != nil {
			o.tracerProvider = tp
		}
	}
}

func newOptions(opts ...Option) *options {
	o := &options{
		name:           DefaultName,
		logger:         slog.Default(),
		recovery:       true,
		maxInFlight:    DefaultMaxInFlight,
		spawnLimit:     rate.Inf,
		metricsEnabled: true,
		tracingEnabled: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.meterProvider == nil {
		o.meterProvider = otel.GetMeterProvider()
	}
	if o.tracerProvider == nil {
		o.tracerProvider = otel.GetTracerProvider()
	}
	return o
}
