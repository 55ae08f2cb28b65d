package events

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"syreclabs.com/go/faker"
)

func TestException(t *testing.T) {
	service := faker.Lorem().Word()

	e := NewException(service, io.ErrUnexpectedEOF)
	require.Equal(t, service+": unexpected EOF", e.Error())
	require.ErrorIs(t, e, io.ErrUnexpectedEOF)

	var target *Exception
	require.True(t, errors.As(error(e), &target))
	require.Equal(t, service, target.Service)
}

func TestExceptionWithoutCause(t *testing.T) {
	e := NewException("storage", nil)
	require.Equal(t, "storage: unknown exception", e.Error())
	require.Nil(t, e.Unwrap())
}

func TestModificationFraud(t *testing.T) {
	service := faker.Lorem().Word()
	require.Equal(t, service, NewModificationFraud(service).Service)
}
