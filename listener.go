package dispatch

import (
	"fmt"
	"reflect"
	"slices"
)

// Listener reacts to events of the kinds it declares.
//
// Kinds is a static declaration: it is read once when the listener is added
// and the result is cached by the registry until the listener is removed.
// OnEvent reports a boolean outcome that the dispatch strategy aggregates.
//
// Listeners are identified by interface equality, so the dynamic type must be
// comparable. Pointer receivers are the usual choice.
type Listener interface {
	Kinds() []Kind
	OnEvent(e Event) bool
}

// Stopper is implemented by listeners that want to know when they leave the
// bucket of a kind, either through RemoveListener or when the dispatcher stops.
type Stopper interface {
	OnStop(kind Kind)
}

type funcListener struct {
	kinds []Kind
	fn    func(Event) bool
}

func (f *funcListener) Kinds() []Kind {
	return f.kinds
}

func (f *funcListener) OnEvent(e Event) bool {
	return f.fn(e)
}

// Func - wrap a function as a Listener for the given kinds. Every call returns a
// distinct listener, keep the result to remove it later.
func Func(fn func(Event) bool, kinds ...Kind) Listener {
	return &funcListener{kinds: slices.Clone(kinds), fn: fn}
}

// On - wrap a typed function as a Listener for events of type E
func On[E any](fn func(E) bool) Listener {
	return &funcListener{
		kinds: []Kind{KindFor[E]()},
		fn: func(e Event) bool {
			v, ok := e.(E)
			if !ok {
				return false
			}
			return fn(v)
		},
	}
}

// identifiable checks that a listener can be used as a set member.
func identifiable(l Listener) error {
	if l == nil {
		return fmt.Errorf("%w: nil listener", ErrInvalidListener)
	}
	if t := reflect.TypeOf(l); !t.Comparable() {
		return fmt.Errorf("%w: %s is not comparable", ErrInvalidListener, t)
	}
	if v := reflect.ValueOf(l); v.Kind() == reflect.Pointer && v.IsNil() {
		return fmt.Errorf("%w: nil %T", ErrInvalidListener, l)
	}
	if !hashable(l) {
		return fmt.Errorf("%w: %T holds a value that is not comparable", ErrInvalidListener, l)
	}
	return nil
}

// hashable reports whether l can be used as a map key. A struct type with an
// interface field is comparable, but hashing panics when that field holds a
// slice, map or func.
func hashable(l Listener) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_ = map[Listener]struct{}{l: {}}
	return true
}

// resolveKinds validates a listener and returns its de-duplicated declaration.
func resolveKinds(l Listener) ([]Kind, error) {
	if err := identifiable(l); err != nil {
		return nil, err
	}

	declared := l.Kinds()
	if len(declared) == 0 {
		return nil, fmt.Errorf("%w: %T declares no event kinds", ErrInvalidListener, l)
	}

	kinds := make([]Kind, 0, len(declared))
	for _, k := range declared {
		if k == "" {
			return nil, fmt.Errorf("%w: %T declares an empty event kind", ErrInvalidListener, l)
		}
		if !slices.Contains(kinds, k) {
			kinds = append(kinds, k)
		}
	}
	return kinds, nil
}
