package dispatch

import (
	"sync"
	"sync/atomic"
	"time"

	"syreclabs.com/go/faker"
)

func init() {
	faker.Seed(time.Now().UnixNano())
}

type fooEvent struct {
	s string
}

type barEvent struct {
	n int
}

// N counts its calls and answers with a fixed outcome.
type N struct {
	i       *int64
	calls   atomic.Int64
	outcome bool
	kinds   []Kind

	mu sync.Mutex
	s  string
}

func newN(i *int64, outcome bool, kinds ...Kind) *N {
	if len(kinds) == 0 {
		kinds = []Kind{KindFor[fooEvent]()}
	}
	return &N{i: i, outcome: outcome, kinds: kinds}
}

func (n *N) Kinds() []Kind {
	return n.kinds
}

func (n *N) OnEvent(e Event) bool {
	if n.i != nil {
		atomic.AddInt64(n.i, 1)
	}
	n.calls.Add(1)
	if f, ok := e.(fooEvent); ok {
		n.mu.Lock()
		n.s = f.s
		n.mu.Unlock()
	}
	return n.outcome
}

func (n *N) last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.s
}

// stopN records the kinds it was detached from.
type stopN struct {
	N
	stopped chan Kind
}

func newStopN(kinds ...Kind) *stopN {
	return &stopN{N: N{outcome: true, kinds: kinds}, stopped: make(chan Kind, len(kinds))}
}

func (s *stopN) OnStop(kind Kind) {
	s.stopped <- kind
}

// fnListener is not comparable and cannot be registered.
type fnListener func(Event) bool

func (f fnListener) Kinds() []Kind        { return []Kind{KindFor[fooEvent]()} }
func (f fnListener) OnEvent(e Event) bool { return f(e) }

// holder is comparable by type, but not when v holds a slice.
type holder struct {
	v any
}

func (h holder) Kinds() []Kind        { return []Kind{KindFor[fooEvent]()} }
func (h holder) OnEvent(e Event) bool { return true }

func listenersFor(counter *int64, values []bool) []*N {
	ls := make([]*N, 0, len(values))
	for _, v := range values {
		ls = append(ls, newN(counter, v))
	}
	return ls
}
