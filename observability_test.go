package dispatch

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
)

// collect sums every data point per instrument; histograms count recordings.
func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	got := make(map[string]int64)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			switch data := m.Data.(type) {
			case metricdata.Sum[int64]:
				if _, ok := got[m.Name]; !ok {
					got[m.Name] = 0
				}
				for _, dp := range data.DataPoints {
					got[m.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				for _, dp := range data.DataPoints {
					got[m.Name] += int64(dp.Count)
				}
			}
		}
	}
	return got
}

func endedSpans(sr *tracetest.SpanRecorder, name string) []sdktrace.ReadOnlySpan {
	var spans []sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		if s.Name() == name {
			spans = append(spans, s)
		}
	}
	return spans
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	d := newTestDispatcher(WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))))
	ctx := context.Background()

	require.NoError(t, d.AddListener(newN(nil, true)))
	require.NoError(t, d.AddListener(newN(nil, true)))
	require.NoError(t, d.AddListener(Func(func(Event) bool { panic("boom") }, KindFor[barEvent]())))

	require.True(t, d.ExecuteFullEIT(ctx, fooEvent{}))
	require.False(t, d.ExecuteFullEIF(ctx, barEvent{}))

	d.ExecuteAsync(ctx, fooEvent{})
	require.NoError(t, d.Wait(ctx))

	// reaps the finished async task before spawning two more
	d.ExecuteParallel(ctx, fooEvent{})
	require.NoError(t, d.Wait(ctx))

	got := collect(t, reader)
	require.Equal(t, int64(4), got["dispatch.executed"])
	require.Equal(t, int64(7), got["dispatch.listener.invoked"])
	require.Equal(t, int64(1), got["dispatch.listener.panicked"])
	require.Equal(t, int64(3), got["dispatch.task.spawned"])
	require.Equal(t, int64(1), got["dispatch.task.reaped"])
	require.Equal(t, int64(2), got["dispatch.duration"])

	require.Contains(t, got, "dispatch.task.inflight")
	require.Equal(t, int64(0), got["dispatch.task.inflight"])
}

func TestMetricsDisabled(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	d := newTestDispatcher(
		WithMeterProvider(sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))),
		WithMetrics(false),
	)
	require.NoError(t, d.AddListener(newN(nil, true)))
	d.ExecuteFullEIT(context.Background(), fooEvent{})

	require.Empty(t, collect(t, reader))
}

func TestTracing(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	d := newTestDispatcher(WithTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))))
	ctx := context.Background()

	require.NoError(t, d.AddListener(newN(nil, true)))
	require.NoError(t, d.AddListener(newN(nil, true)))
	require.NoError(t, d.AddListener(Func(func(Event) bool { panic("boom") }, KindFor[barEvent]())))

	d.ExecuteShortEIF(ctx, barEvent{})
	d.ExecuteAsync(ctx, fooEvent{})
	d.ExecuteParallel(ctx, fooEvent{})
	require.NoError(t, d.Wait(ctx))

	failed := endedSpans(sr, "dispatch.short_eif")
	require.Len(t, failed, 1)
	require.Equal(t, trace.SpanKindInternal, failed[0].SpanKind())
	require.Equal(t, codes.Error, failed[0].Status().Code)

	for _, name := range []string{"dispatch.async", "dispatch.parallel"} {
		publishers := endedSpans(sr, name)
		require.Len(t, publishers, 1, name)
		publisher := publishers[0]
		require.Equal(t, trace.SpanKindProducer, publisher.SpanKind())

		tasks := endedSpans(sr, name+".task")
		require.NotEmpty(t, tasks, name)
		for _, task := range tasks {
			require.Equal(t, trace.SpanKindConsumer, task.SpanKind())
			require.Equal(t, publisher.SpanContext().TraceID(), task.SpanContext().TraceID())
			require.Equal(t, publisher.SpanContext().SpanID(), task.Parent().SpanID())
		}
	}
	require.Len(t, endedSpans(sr, "dispatch.parallel.task"), 2)
}
