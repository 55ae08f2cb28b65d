package dispatch

import (
	"reflect"
)

// Event - anything published through a Dispatcher. Only its Kind matters to dispatch.
type Event any

// Kind - identifies the runtime type of an event, used as the registry key
type Kind string

// String - return the kind as plain string
func (k Kind) String() string {
	return string(k)
}

// KindOf - return the kind of an event value. A nil event has the empty kind,
// which never has listeners.
func KindOf(e Event) Kind {
	return kindOfType(reflect.TypeOf(e))
}

// KindFor - return the kind of events of type E
func KindFor[E any]() Kind {
	return kindOfType(reflect.TypeOf((*E)(nil)).Elem())
}

func kindOfType(t reflect.Type) Kind {
	if t == nil {
		return ""
	}
	if t.Kind() == reflect.Pointer {
		return "*" + kindOfType(t.Elem())
	}
	// reflect.Type.String uses the package name only, which is not unique
	if t.Name() != "" && t.PkgPath() != "" {
		return Kind(t.PkgPath() + "." + t.Name())
	}
	return Kind(t.String())
}
