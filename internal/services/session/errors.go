package session

import (
	"errors"
	"fmt"

	"veil/internal/domain"
)

var (
	// ErrNoIdentity is returned when an operation is given a nil identity.
	ErrNoIdentity = errors.New("no session identity")
	// ErrRetired is returned for identities whose connection was torn down.
	ErrRetired = errors.New("session identity retired")
	// ErrUnknownEndpoint is returned when selecting an endpoint the party is
	// not connected from.
	ErrUnknownEndpoint = errors.New("endpoint not connected")
	// ErrNoKeyPair is returned when no local key pair can be produced.
	ErrNoKeyPair = errors.New("local key pair unavailable")
)

// DelegateError wraps a failure reported by the transform engine.
type DelegateError struct {
	Op       string
	Identity *domain.SessionIdentity
	Err      error
}

func (e *DelegateError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Identity, e.Err)
}

func (e *DelegateError) Unwrap() error { return e.Err }
