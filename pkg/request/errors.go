package request

import "errors"

var (
	// ErrEmptyTarget is returned by New when no target URL is given.
	ErrEmptyTarget = errors.New("request target is empty")
	// ErrNilClient is returned by New when no transport is given.
	ErrNilClient = errors.New("request client is nil")
	// ErrCanceled marks failures caused by Cancel.
	ErrCanceled = errors.New("request canceled")
	// ErrNoResponse is recorded when the transport returns neither a
	// response nor an error.
	ErrNoResponse = errors.New("transport returned no response")

	errSuperseded = errors.New("request superseded by a newer attempt")
	errClosed     = errors.New("request controller closed")
)

// cancelError is the cancellation cause recorded by Cancel.
type cancelError struct {
	reason string
}

func (e *cancelError) Error() string {
	if e.reason == "" {
		return ErrCanceled.Error()
	}
	return ErrCanceled.Error() + ": " + e.reason
}

func (e *cancelError) Is(target error) bool { return target == ErrCanceled }
