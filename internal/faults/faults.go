// Package faults names the ways the bridge degrades instead of failing.
//
// Every public entry point logs locally and keeps running; the typed kinds
// let callers (and tests) see which degradation path was taken.
package faults

import (
	"errors"
	"fmt"
)

// Kind classifies a failure.
type Kind int

// Failure kinds.
const (
	Transport    Kind = iota + 1 // channel open/write failed
	Malformed                    // message without a usable type or payload
	Inspection                   // active tab could not be read
	Disconnected                 // channel dropped
	NotConnected                 // send attempted with no open channel
	Untrusted                    // message from a sender origin that is not trusted
)

func (k Kind) String() string {
	switch k {
	case Transport:
		return "transport"
	case Malformed:
		return "malformed"
	case Inspection:
		return "inspection"
	case Disconnected:
		return "disconnected"
	case NotConnected:
		return "not-connected"
	case Untrusted:
		return "untrusted"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Error is a failure tagged with its kind and the operation that hit it.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New returns an *Error of the given kind.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Newf is New with a formatted cause.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

// KindOf reports the kind of the first *Error in err's chain, or 0.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
