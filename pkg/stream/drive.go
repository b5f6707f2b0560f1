package stream

import (
	"context"
	"iter"
)

// Next polls p until it yields a value or ends, parking on a fresh Signal
// between polls. It reports ok=false once the stream is closed, and returns
// ctx.Err() if ctx is canceled while suspended.
func Next[T any](ctx context.Context, p Poller[T]) (T, bool, error) {
	return Await(ctx, p, NewSignal())
}

// Await is Next with a caller-owned Signal, so a consumer can reuse one
// Signal across calls. A stale notification left on s only costs an extra poll.
func Await[T any](ctx context.Context, p Poller[T], s *Signal) (T, bool, error) {
	for {
		v, st := p.Poll(s)
		switch st {
		case Ready:
			return v, true, nil
		case Closed:
			var zero T
			return zero, false, nil
		}

		select {
		case <-s.C():
		case <-ctx.Done():
			var zero T
			return zero, false, ctx.Err()
		}
	}
}

// All returns a single-use iterator over the values of p. Iteration stops when
// the stream closes, when ctx is canceled, or when the loop body breaks.
//
//	for msg := range stream.All(ctx, rx) {
//		handle(msg)
//	}
func All[T any](ctx context.Context, p Poller[T]) iter.Seq[T] {
	return func(yield func(T) bool) {
		s := NewSignal()
		for {
			v, ok, err := Await(ctx, p, s)
			if err != nil || !ok {
				return
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Chan pumps the values of p into an unbuffered channel from a new goroutine,
// for use in select statements. The channel is closed when the stream ends or
// ctx is canceled. A value already taken from p when ctx is canceled is lost.
func Chan[T any](ctx context.Context, p Poller[T]) <-chan T {
	out := make(chan T)
	go func() {
		defer close(out)
		for v := range All(ctx, p) {
			select {
			case out <- v:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
