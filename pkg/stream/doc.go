// Package stream defines the polling protocol shared by the channel packages
// in this module (mpsc and broadcast), together with helpers that drive a
// consumer from ordinary goroutines.
//
// # Polling Protocol
//
// A consumer handle implements [Poller]. Each call to Poll returns one of three
// outcomes:
//
//   - [Ready]: a value was delivered.
//   - [Closed]: the stream ended; no value will ever be delivered again.
//   - [Pending]: nothing is available yet. The [Waker] passed to Poll has been
//     stored and will be invoked once polling again can make progress.
//
// The Waker is an opaque resume token. Channels store it and call Wake; they
// never inspect it. Channels check for work and store the waker inside the
// same critical section that senders use to append and wake, so a wakeup is
// never lost between a Pending result and the next Send.
//
// # Driving a Consumer
//
// Most callers never call Poll directly. [Next] blocks until a value arrives,
// the stream ends, or the context is canceled:
//
//	v, ok, err := stream.Next(ctx, rx)
//	switch {
//	case err != nil:
//		// ctx canceled or timed out
//	case !ok:
//		// all senders are gone
//	default:
//		use(v)
//	}
//
// [All] exposes the same loop as a range-over-func iterator and [Chan] bridges
// it to a native channel for select statements.
//
// # Errors
//
// Send operations fail with [*SendError], which unwraps to [ErrReceiverDropped]
// and carries the rejected value back to the caller. [Rejected] extracts it.
package stream
