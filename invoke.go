package dispatch

import (
	"context"
	"runtime/debug"
)

// invoke calls one listener. Panics are recovered for background strategies,
// and for synchronous ones when recovery is enabled: the outcome is then
// false and the panic is reported.
func (d *Dispatcher) invoke(ctx context.Context, s Strategy, kind Kind, l Listener, e Event) (outcome bool, perr *ListenerPanicError) {
	if !s.Background() && !d.recovery {
		return l.OnEvent(e), nil
	}

	defer func() {
		if v := recover(); v != nil {
			outcome = false
			perr = &ListenerPanicError{
				Kind:     kind,
				Strategy: s,
				Listener: l,
				Value:    v,
				Stack:    debug.Stack(),
			}
			d.reportPanic(ctx, perr)
		}
	}()

	return l.OnEvent(e), nil
}

// invokeAll calls every listener in order and returns how many were called.
// Used by background tasks, which have no outcome to aggregate.
func (d *Dispatcher) invokeAll(ctx context.Context, s Strategy, kind Kind, listeners []Listener, e Event) int {
	for _, l := range listeners {
		d.invoke(ctx, s, kind, l, e)
	}
	return len(listeners)
}

func (d *Dispatcher) reportPanic(ctx context.Context, perr *ListenerPanicError) {
	d.metrics.recovered(ctx, perr.Strategy, perr.Kind)
	d.logger.Error("listener panicked",
		"listener", listenerName(perr.Listener),
		"kind", perr.Kind,
		"strategy", perr.Strategy,
		"panic", perr.Value)

	if d.panicHandler == nil {
		return
	}
	// a failing handler must not take the dispatch down with it
	defer func() {
		if v := recover(); v != nil {
			d.logger.Error("panic handler panicked", "panic", v)
		}
	}()
	d.panicHandler(perr)
}
