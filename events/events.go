// Package events holds event payloads shared by services built on the dispatcher.
package events

import (
	"fmt"
)

// Exception is published when a service catches an error it cannot handle itself.
type Exception struct {
	Service string
	Err     error
}

// NewException - return an exception event for a service
func NewException(service string, err error) *Exception {
	return &Exception{Service: service, Err: err}
}

func (e *Exception) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: unknown exception", e.Service)
	}
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *Exception) Unwrap() error {
	return e.Err
}

// ModificationFraud is published when there is serious suspicion that the
// files of a service have been modified.
type ModificationFraud struct {
	Service string
}

// NewModificationFraud - return a modification fraud event for a service
func NewModificationFraud(service string) *ModificationFraud {
	return &ModificationFraud{Service: service}
}
