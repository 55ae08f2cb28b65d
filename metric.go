package dispatch

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
)

const (
	attrStrategy = "dispatch.strategy"
	attrKind     = "dispatch.kind"
	attrCount    = "dispatch.listeners"
	attrResult   = "dispatch.result"
)

// metrics groups the instruments recorded by a dispatcher.
type metrics struct {
	executed metric.Int64Counter
	invoked  metric.Int64Counter
	panicked metric.Int64Counter
	spawned  metric.Int64Counter
	reaped   metric.Int64Counter
	inflight metric.Int64UpDownCounter
	duration metric.Float64Histogram
}

func newMetrics(meter metric.Meter, logger *slog.Logger) *metrics {
	m := &metrics{}
	var err error

	if m.executed, err = meter.Int64Counter("dispatch.executed",
		metric.WithDescription("Total number of dispatches")); err != nil {
		logger.Warn("metric unavailable", "metric", "dispatch.executed", "error", err)
		m.executed = noop.Int64Counter{}
	}
	if m.invoked, err = meter.Int64Counter("dispatch.listener.invoked",
		metric.WithDescription("Total number of listener invocations")); err != nil {
		logger.Warn("metric unavailable", "metric", "dispatch.listener.invoked", "error", err)
		m.invoked = noop.Int64Counter{}
	}
	if m.panicked, err = meter.Int64Counter("dispatch.listener.panicked",
		metric.WithDescription("Total number of recovered listener panics")); err != nil {
		logger.Warn("metric unavailable", "metric", "dispatch.listener.panicked", "error", err)
		m.panicked = noop.Int64Counter{}
	}
	if m.spawned, err = meter.Int64Counter("dispatch.task.spawned",
		metric.WithDescription("Total number of background tasks started")); err != nil {
		logger.Warn("metric unavailable", "metric", "dispatch.task.spawned", "error", err)
		m.spawned = noop.Int64Counter{}
	}
	if m.reaped, err = meter.Int64Counter("dispatch.task.reaped",
		metric.WithDescription("Total number of finished task handles removed from tracking")); err != nil {
		logger.Warn("metric unavailable", "metric", "dispatch.task.reaped", "error", err)
		m.reaped = noop.Int64Counter{}
	}
	if m.inflight, err = meter.Int64UpDownCounter("dispatch.task.inflight",
		metric.WithDescription("Number of background tasks currently running")); err != nil {
		logger.Warn("metric unavailable", "metric", "dispatch.task.inflight", "error", err)
		m.inflight = noop.Int64UpDownCounter{}
	}
	if m.duration, err = meter.Float64Histogram("dispatch.duration",
		metric.WithDescription("Time spent in synchronous dispatches"),
		metric.WithUnit("ms")); err != nil {
		logger.Warn("metric unavailable", "metric", "dispatch.duration", "error", err)
		m.duration = noop.Float64Histogram{}
	}
	return m
}

func strategyAttrs(s Strategy, kind Kind) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String(attrStrategy, s.String()),
		attribute.String(attrKind, string(kind)),
	)
}

func (m *metrics) dispatched(ctx context.Context, s Strategy, kind Kind, invoked int, started time.Time) {
	attrs := strategyAttrs(s, kind)
	m.executed.Add(ctx, 1, attrs)
	if invoked > 0 {
		m.invoked.Add(ctx, int64(invoked), attrs)
	}
	if !s.Background() {
		m.duration.Record(ctx, float64(time.Since(started))/float64(time.Millisecond), attrs)
	}
}

func (m *metrics) recovered(ctx context.Context, s Strategy, kind Kind) {
	m.panicked.Add(ctx, 1, strategyAttrs(s, kind))
}

func (m *metrics) taskStarted(ctx context.Context, s Strategy, kind Kind) {
	attrs := strategyAttrs(s, kind)
	m.spawned.Add(ctx, 1, attrs)
	m.inflight.Add(ctx, 1, attrs)
}

func (m *metrics) taskFinished(ctx context.Context, s Strategy, kind Kind, invoked int) {
	attrs := strategyAttrs(s, kind)
	m.inflight.Add(ctx, -1, attrs)
	if invoked > 0 {
		m.invoked.Add(ctx, int64(invoked), attrs)
	}
}

func (m *metrics) taskReaped(ctx context.Context, n int) {
	if n > 0 {
		m.reaped.Add(ctx, int64(n))
	}
}
