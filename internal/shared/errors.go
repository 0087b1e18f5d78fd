package shared

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrNoSession indicates the system of record holds no session for the
	// actor. Expected probe outcome, not a fault.
	ErrNoSession = errors.New("no session")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSessionBusy occurs when a probe or credential submission is already
	// in flight.
	ErrSessionBusy = errors.New("session attempt already in flight")
	// ErrInvalidQuantity occurs when a guest cart mutation carries a
	// non-positive quantity.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")
	// ErrAlreadyExists indicates a server-side duplicate the caller may
	// tolerate, e.g. re-adding a favorite.
	ErrAlreadyExists = errors.New("already exists")
	// ErrGuestOnly occurs when a guest-store mutator is called while the
	// actor is authenticated.
	ErrGuestOnly = errors.New("operation only available to guest sessions")
)

// TransportError wraps a network or server fault from the system of record.
// It is retryable and distinct from ErrNoSession.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport wraps err as a TransportError for the given operation.
func Transport(op string, err error) error {
	return &TransportError{Op: op, Err: err}
}

// IsTransport reports whether err is or wraps a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
