package broker

import (
	"errors"
	"fmt"
)

// Kind classifies a placement failure: transient failures re-queue the
// signal, permanent ones terminate it.
type Kind int

const (
	KindTransient Kind = iota
	KindPermanent
)

func (k Kind) String() string {
	if k == KindPermanent {
		return "permanent"
	}
	return "transient"
}

// Error is a classified venue failure.
type Error struct {
	Op   string
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Op, e.Err, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Transient wraps err as a retryable failure (timeouts, connectivity,
// rate limits).
func Transient(op string, err error) error {
	return &Error{Op: op, Kind: KindTransient, Err: err}
}

// Permanent wraps err as a terminal failure (explicit rejection, unknown
// instrument, insufficient funds).
func Permanent(op string, err error) error {
	return &Error{Op: op, Kind: KindPermanent, Err: err}
}

// IsTransient reports whether the signal should be re-queued after err.
// Anything an adapter did not explicitly classify as permanent is treated as
// transient: timeouts and dropped connections may be network blips, and the
// gateway owns any retry ceiling.
func IsTransient(err error) bool {
	var berr *Error
	if errors.As(err, &berr) {
		return berr.Kind == KindTransient
	}
	return true
}
