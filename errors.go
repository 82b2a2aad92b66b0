package pool

import "github.com/pkg/errors"

// baseErr is the common string-carrying error the pool's sentinel
// kinds embed, a split by failure kind rather than a single generic
// error type.
type baseErr struct {
	msg string
}

func (e *baseErr) Error() string {
	return e.msg
}

// IllegalStateErr covers PoolClosed, NotInPool, AlreadyReturned and
// FactoryAlreadySet conditions — all "the pool is not in a state that
// permits this call" cases.
type IllegalStateErr struct {
	baseErr
}

// NewIllegalStateErr builds an IllegalStateErr with msg.
func NewIllegalStateErr(msg string) *IllegalStateErr {
	return &IllegalStateErr{baseErr{msg}}
}

// NoSuchElementErr covers PoolExhausted and BorrowTimeout conditions —
// borrowObject found nothing to return — and the factory failures that
// abort a borrow of a freshly created member ("Unable to activate" /
// "Unable to validate"). cause is non-nil only for "Unable to
// activate", where the original factory error is chained in;
// ValidateObject reports a bare bool, so "Unable to validate" carries
// no cause.
type NoSuchElementErr struct {
	baseErr
	cause error
}

// NewNoSuchElementErr builds a causeless NoSuchElementErr.
func NewNoSuchElementErr(msg string) *NoSuchElementErr {
	return &NoSuchElementErr{baseErr: baseErr{msg}}
}

// NewNoSuchElementErrWithCause builds a NoSuchElementErr whose Cause
// (github.com/pkg/errors convention) is the factory error that made
// the freshly created member unusable.
func NewNoSuchElementErrWithCause(msg string, cause error) *NoSuchElementErr {
	return &NoSuchElementErr{
		baseErr: baseErr{msg + ": " + cause.Error()},
		cause:   cause,
	}
}

// Cause implements the github.com/pkg/errors causer interface so
// errors.Cause(err) unwraps to the original factory error.
func (e *NoSuchElementErr) Cause() error {
	return e.cause
}

// Unwrap supports the standard library's errors.Unwrap/Is/As as well.
func (e *NoSuchElementErr) Unwrap() error {
	return e.cause
}

// Cause unwraps a chained pool error back to its root factory error,
// or returns err unchanged if it was never wrapped.
func Cause(err error) error {
	return errors.Cause(err)
}

// FactoryErr wraps a factory failure that a caller must see directly
// rather than have swallowed. The only current use is a destroy
// failure during an explicit InvalidateObject call: clear, return
// overflow, and the evictor all discard the same failure instead.
type FactoryErr struct {
	baseErr
	cause error
}

// NewFactoryErr builds a FactoryErr whose Cause is the underlying
// factory error.
func NewFactoryErr(msg string, cause error) *FactoryErr {
	return &FactoryErr{
		baseErr: baseErr{msg + ": " + cause.Error()},
		cause:   cause,
	}
}

// Cause implements the github.com/pkg/errors causer interface.
func (e *FactoryErr) Cause() error {
	return e.cause
}

// Unwrap supports the standard library's errors.Unwrap/Is/As as well.
func (e *FactoryErr) Unwrap() error {
	return e.cause
}
