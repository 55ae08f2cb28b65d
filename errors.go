package dispatch

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidListener is returned by AddListener and RemoveListener when a
	// listener has no usable kind declaration or cannot be identified.
	ErrInvalidListener = errors.New("invalid listener")

	// ErrUnknownStrategy is returned for a Strategy value outside the defined set.
	ErrUnknownStrategy = errors.New("unknown dispatch strategy")
)

// ListenerPanicError reports a listener that panicked inside OnEvent.
type ListenerPanicError struct {
	Kind     Kind
	Strategy Strategy
	Listener Listener
	Value    any
	Stack    []byte
}

func (e *ListenerPanicError) Error() string {
	return fmt.Sprintf("listener %T panicked on %s (%s): %v", e.Listener, e.Kind, e.Strategy, e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *ListenerPanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// IsListenerPanic checks if an error carries a recovered listener panic.
func IsListenerPanic(err error) bool {
	var panicErr *ListenerPanicError
	return errors.As(err, &panicErr)
}
