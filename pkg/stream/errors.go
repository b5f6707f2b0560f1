package stream

import (
	"errors"
	"fmt"
)

var (
	// ErrReceiverDropped is returned by Send when no receiver can ever get the value.
	ErrReceiverDropped = errors.New("stream: receiver dropped")

	// ErrHandleClosed is returned when a sender is used after its own Close.
	ErrHandleClosed = errors.New("stream: handle closed")
)

// SendError carries a value that a channel refused to accept back to the caller.
// It unwraps to ErrReceiverDropped.
//
//	var se *stream.SendError[Event]
//	if errors.As(err, &se) {
//		requeue(se.Value)
//	}
type SendError[T any] struct {
	Value T
}

// Error implements the error interface.
func (e *SendError[T]) Error() string {
	return fmt.Sprintf("%s: value of type %T rejected", ErrReceiverDropped, e.Value)
}

// Unwrap returns ErrReceiverDropped.
func (e *SendError[T]) Unwrap() error {
	return ErrReceiverDropped
}

// Rejected returns the value carried by a *SendError[T] in err's chain.
func Rejected[T any](err error) (T, bool) {
	var se *SendError[T]
	if errors.As(err, &se) {
		return se.Value, true
	}
	var zero T
	return zero, false
}
