package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers that need to branch on outcome
// rather than message text.
type Kind int

const (
	// KindNotFound: a referenced booking/field/subscription/account does not exist.
	KindNotFound Kind = iota
	// KindConflict: slot unavailable, already refunded, already processed.
	KindConflict
	// KindValidation: invalid rate, malformed time string, illegal state transition.
	KindValidation
	// KindDeferredRetry: funds not settled or balance insufficient. Not a
	// failure; the caller leaves state PENDING for the next sweep.
	KindDeferredRetry
	// KindProcessor: the payment-gateway call itself failed.
	KindProcessor
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "validation"
	case KindDeferredRetry:
		return "deferred_retry"
	case KindProcessor:
		return "processor"
	}
	return "unknown"
}

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Msg: fmt.Sprintf(format, args...)}
}

func Conflict(format string, args ...any) *Error {
	return &Error{Kind: KindConflict, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Msg: fmt.Sprintf(format, args...)}
}

func DeferredRetry(format string, args ...any) *Error {
	return &Error{Kind: KindDeferredRetry, Msg: fmt.Sprintf(format, args...)}
}

func Processor(msg string, err error) *Error {
	return &Error{Kind: KindProcessor, Msg: msg, Err: err}
}

func is(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func IsNotFound(err error) bool      { return is(err, KindNotFound) }
func IsConflict(err error) bool      { return is(err, KindConflict) }
func IsValidation(err error) bool    { return is(err, KindValidation) }
func IsDeferredRetry(err error) bool { return is(err, KindDeferredRetry) }
func IsProcessor(err error) bool     { return is(err, KindProcessor) }
