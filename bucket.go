package dispatch

import (
	"slices"
	"sync/atomic"
)

// bucket holds the listeners of one kind. The listener slice is published
// through an atomic pointer and never written in place: mutations store a
// fresh slice, so readers holding a bucket fetched from the map never race
// with writers and a slice handed out by snapshot stays valid.
type bucket struct {
	kind      Kind
	listeners atomic.Pointer[[]Listener]
}

func newBucket(kind Kind) *bucket {
	return &bucket{kind: kind}
}

// Count - return the number of listeners in the bucket
func (b *bucket) Count() int {
	return len(b.snapshot())
}

func (b *bucket) contains(l Listener) bool {
	return slices.Contains(b.snapshot(), l)
}

func (b *bucket) add(l Listener) bool {
	current := b.snapshot()
	if slices.Contains(current, l) {
		return false
	}
	listeners := make([]Listener, len(current), len(current)+1)
	copy(listeners, current)
	listeners = append(listeners, l)
	b.listeners.Store(&listeners)
	return true
}

func (b *bucket) remove(l Listener) bool {
	current := b.snapshot()
	i := slices.Index(current, l)
	if i < 0 {
		return false
	}
	listeners := make([]Listener, 0, len(current)-1)
	listeners = append(listeners, current[:i]...)
	listeners = append(listeners, current[i+1:]...)
	b.listeners.Store(&listeners)
	return true
}

// snapshot returns the current listener slice. It must not be modified.
func (b *bucket) snapshot() []Listener {
	if p := b.listeners.Load(); p != nil {
		return *p
	}
	return nil
}
