package goAuthz

import (
	"errors"
	"fmt"
)

// ErrorKind classifies an authorization denial.
type ErrorKind int

const (
	// KindNone marks an allowed decision.
	KindNone ErrorKind = iota
	// KindUnauthorized: no credentials, or the caller may not touch this resource.
	KindUnauthorized
	// KindNotAcceptable: the credential is malformed or unverifiable.
	KindNotAcceptable
	// KindForbidden: the credential is understood but access is refused.
	KindForbidden
)

func (k ErrorKind) String() string {
	switch k {
	case KindNone:
		return "none"
	case KindUnauthorized:
		return "unauthorized"
	case KindNotAcceptable:
		return "not_acceptable"
	case KindForbidden:
		return "forbidden"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

var (
	// ErrUnauthorized is the sentinel behind every KindUnauthorized denial.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrNotAcceptable is the sentinel behind every KindNotAcceptable denial.
	ErrNotAcceptable = errors.New("not acceptable")
	// ErrForbidden is the sentinel behind every KindForbidden denial.
	ErrForbidden = errors.New("forbidden")

	// ErrUnknownResolver is returned when a requirement names a resolver kind
	// that was never registered.
	ErrUnknownResolver = errors.New("unknown ownership resolver")
	// ErrUnknownRole is returned when a requirement names a role the hierarchy
	// does not contain.
	ErrUnknownRole = errors.New("unknown role")
	// ErrEngineNotReady is returned by methods called on a nil or unbuilt Engine.
	ErrEngineNotReady = errors.New("engine not initialized")
	// ErrIdentityStoreRequired is returned by Build without an identity store.
	ErrIdentityStoreRequired = errors.New("identity store required")
)

// DenyError carries the kind and caller-facing message of a denial.
// It unwraps to ErrUnauthorized, ErrNotAcceptable or ErrForbidden.
type DenyError struct {
	Kind    ErrorKind
	Message string
}

func (e *DenyError) Error() string {
	return e.Message
}

func (e *DenyError) Unwrap() error {
	return kindSentinel(e.Kind)
}

func kindSentinel(k ErrorKind) error {
	switch k {
	case KindUnauthorized:
		return ErrUnauthorized
	case KindNotAcceptable:
		return ErrNotAcceptable
	case KindForbidden:
		return ErrForbidden
	default:
		return nil
	}
}

// KindOf returns the denial kind carried by err, or KindNone when err is not
// a denial.
func KindOf(err error) ErrorKind {
	var deny *DenyError
	if errors.As(err, &deny) {
		return deny.Kind
	}
	switch {
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	case errors.Is(err, ErrNotAcceptable):
		return KindNotAcceptable
	case errors.Is(err, ErrForbidden):
		return KindForbidden
	default:
		return KindNone
	}
}
