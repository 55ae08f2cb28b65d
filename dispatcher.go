package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

const (
	dispatcherRunning = 1
	dispatcherStopped = 0
)

// Service is the lifecycle surface used by whatever manages the dispatcher.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

var _ Service = (*Dispatcher)(nil)

// Dispatcher delivers events to the listeners registered for their kind.
//
// The synchronous strategies run listeners on the calling goroutine and return
// an aggregated outcome. ExecuteAsync and ExecuteParallel hand the work to
// background tasks and return as soon as the tasks are started.
//
// Registration and dispatch are safe for concurrent use. Every dispatch works
// on a snapshot of the listeners taken before the first call, so listeners
// may add or remove listeners from inside OnEvent.
type Dispatcher struct {
	status       int32
	name         string
	logger       *slog.Logger
	registry     *Registry
	tracker      *Tracker
	recovery     bool
	panicHandler PanicHandler
	metrics      *metrics
	tracer       trace.Tracer
}

// New - create a dispatcher. It can register listeners and dispatch right
// away; Start and Stop exist for service managers.
func New(opts ...Option) *Dispatcher {
	o := newOptions(opts...)
	logger := o.logger.With("component", "dispatch>"+o.name)

	meter := o.meterProvider.Meter(o.name)
	if !o.metricsEnabled {
		meter = noop.NewMeterProvider().Meter(o.name)
	}
	tracer := o.tracerProvider.Tracer(o.name)
	if !o.tracingEnabled {
		tracer = tracenoop.NewTracerProvider().Tracer(o.name)
	}

	return &Dispatcher{
		status:       dispatcherStopped,
		name:         o.name,
		logger:       logger,
		registry:     NewRegistry(logger),
		tracker:      NewTracker(o.maxInFlight, o.spawnLimit, o.spawnBurst),
		recovery:     o.recovery,
		panicHandler: o.panicHandler,
		metrics:      newMetrics(meter, logger),
		tracer:       tracer,
	}
}

// Name - return the dispatcher name
func (d *Dispatcher) Name() string {
	return d.name
}

// Running - return true between Start and Stop
func (d *Dispatcher) Running() bool {
	return atomic.LoadInt32(&d.status) == dispatcherRunning
}

// Start - mark the dispatcher as running
func (d *Dispatcher) Start(ctx context.Context) error {
	if atomic.CompareAndSwapInt32(&d.status, dispatcherStopped, dispatcherRunning) {
		d.logger.Info("started event service")
	}
	return nil
}

// Stop - remove every listener and stop tracking background tasks. Tasks
// already running are not interrupted. Calling Stop again is harmless.
func (d *Dispatcher) Stop(ctx context.Context) error {
	atomic.StoreInt32(&d.status, dispatcherStopped)

	d.logger.Info("clearing event listeners")
	removed := d.registry.Clear()
	drained := d.tracker.DrainAll()
	d.logger.Debug("event service stopped", "listeners", removed, "tasks", drained)
	return nil
}

// Registry - return the listener registry
func (d *Dispatcher) Registry() *Registry {
	return d.registry
}

// AddListener - register l under every kind it declares
func (d *Dispatcher) AddListener(l Listener) error {
	return d.registry.Register(l)
}

// RemoveListener - remove l from every kind it was registered under
func (d *Dispatcher) RemoveListener(l Listener) error {
	return d.registry.Unregister(l)
}

// InFlight - return the handles of background tasks that have not been reaped
func (d *Dispatcher) InFlight() []*Task {
	return d.tracker.InFlight()
}

// Wait - block until every tracked background task has finished or ctx is done
func (d *Dispatcher) Wait(ctx context.Context) error {
	return d.tracker.Wait(ctx)
}

// ExecuteFullEIT - run every listener and return true if any of them returned true.
func (d *Dispatcher) ExecuteFullEIT(ctx context.Context, e Event) bool {
	ok, _ := d.Execute(ctx, FullEIT, e)
	return ok
}

// ExecuteFullEIF - run every listener and return false if any of them returned false.
func (d *Dispatcher) ExecuteFullEIF(ctx context.Context, e Event) bool {
	ok, _ := d.Execute(ctx, FullEIF, e)
	return ok
}

// ExecuteArithmetic - run every listener and return true if at least half of
// them, rounded down, returned true.
func (d *Dispatcher) ExecuteArithmetic(ctx context.Context, e Event) bool {
	ok, _ := d.Execute(ctx, Arithmetic, e)
	return ok
}

// ExecuteShortEIT - return true as soon as a listener returns true; the
// remaining listeners are not called.
func (d *Dispatcher) ExecuteShortEIT(ctx context.Context, e Event) bool {
	ok, _ := d.Execute(ctx, ShortEIT, e)
	return ok
}

// ExecuteShortEIF - return false as soon as a listener returns false; the
// remaining listeners are not called.
func (d *Dispatcher) ExecuteShortEIF(ctx context.Context, e Event) bool {
	ok, _ := d.Execute(ctx, ShortEIF, e)
	return ok
}

// ExecuteAsync - run every listener, one after another, on a single background task
func (d *Dispatcher) ExecuteAsync(ctx context.Context, e Event) {
	_, _ = d.Execute(ctx, Async, e)
}

// ExecuteParallel - run each listener on its own background task
func (d *Dispatcher) ExecuteParallel(ctx context.Context, e Event) {
	_, _ = d.Execute(ctx, Parallel, e)
}

// Execute - dispatch e with the given strategy.
//
// For synchronous strategies the error joins the panics recovered from
// listeners; the outcome of a panicking listener counts as false. For Async and
// Parallel the result is always false and the error is non-nil only when ctx
// had already ended, in which case nothing is dispatched. Background tasks
// never make the caller wait: beyond WithMaxInFlight they queue.
func (d *Dispatcher) Execute(ctx context.Context, s Strategy, e Event) (bool, error) {
	switch {
	case s.Background():
		return false, d.executeBackground(ctx, s, e)
	case s.Valid():
		return d.executeSync(ctx, s, e)
	default:
		return false, fmt.Errorf("%w: %d", ErrUnknownStrategy, int(s))
	}
}

func (d *Dispatcher) executeSync(ctx context.Context, s Strategy, e Event) (bool, error) {
	started := time.Now()
	kind := KindOf(e)
	listeners := d.registry.Snapshot(kind)

	ctx, span := d.tracer.Start(ctx, "dispatch."+s.String(),
		trace.WithAttributes(
			attribute.String(attrStrategy, s.String()),
			attribute.String(attrKind, string(kind)),
			attribute.Int(attrCount, len(listeners))),
		trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	if len(listeners) == 0 {
		result := s.defaultOutcome()
		span.SetAttributes(attribute.Bool(attrResult, result))
		d.metrics.dispatched(ctx, s, kind, 0, started)
		return result, nil
	}

	var (
		agg     = newAggregator(s, len(listeners))
		errs    []error
		invoked int
	)
	for _, l := range listeners {
		outcome, perr := d.invoke(ctx, s, kind, l, e)
		invoked++
		if perr != nil {
			errs = append(errs, perr)
		}
		if agg.add(outcome) {
			break
		}
	}

	result := agg.result()
	span.SetAttributes(attribute.Bool(attrResult, result))
	d.metrics.dispatched(ctx, s, kind, invoked, started)

	err := errors.Join(errs...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "listener panicked")
	}
	return result, err
}

func (d *Dispatcher) executeBackground(ctx context.Context, s Strategy, e Event) error {
	kind := KindOf(e)
	if err := ctx.Err(); err != nil {
		d.logger.Warn("background dispatch dropped", "strategy", s, "kind", kind, "error", err)
		return err
	}

	if n := d.tracker.Reap(); n > 0 {
		d.metrics.taskReaped(ctx, n)
	}

	listeners := d.registry.Snapshot(kind)

	ctx, span := d.tracer.Start(ctx, "dispatch."+s.String(),
		trace.WithAttributes(
			attribute.String(attrStrategy, s.String()),
			attribute.String(attrKind, string(kind)),
			attribute.Int(attrCount, len(listeners))),
		trace.WithSpanKind(trace.SpanKindProducer))
	defer span.End()

	d.metrics.dispatched(ctx, s, kind, 0, time.Time{})
	if len(listeners) == 0 {
		return nil
	}

	if s == Async {
		return d.spawn(ctx, s, kind, func(taskCtx context.Context) int {
			return d.invokeAll(taskCtx, s, kind, listeners, e)
		})
	}

	for _, l := range listeners {
		l := l
		err := d.spawn(ctx, s, kind, func(taskCtx context.Context) int {
			d.invoke(taskCtx, s, kind, l, e)
			return 1
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// spawn starts run on a tracked background task. The task's context keeps the
// caller's values and span but not its cancellation, so a queued task still
// runs after the caller has moved on.
func (d *Dispatcher) spawn(ctx context.Context, s Strategy, kind Kind, run func(ctx context.Context) int) error {
	taskCtx := context.WithoutCancel(ctx)
	task, err := d.tracker.Spawn(taskCtx, kind, s, func() {
		d.metrics.taskStarted(taskCtx, s, kind)

		ctx, span := d.tracer.Start(taskCtx, "dispatch."+s.String()+".task",
			trace.WithAttributes(
				attribute.String(attrStrategy, s.String()),
				attribute.String(attrKind, string(kind))),
			trace.WithSpanKind(trace.SpanKindConsumer))
		defer span.End()

		invoked := run(ctx)
		d.metrics.taskFinished(ctx, s, kind, invoked)
	})
	if err != nil {
		d.logger.Warn("background dispatch dropped", "strategy", s, "kind", kind, "error", err)
		return err
	}
	d.logger.Debug("background task started", "strategy", s, "kind", kind, "task", task.ID())
	return nil
}
