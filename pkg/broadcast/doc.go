// Package broadcast provides a generic in-memory fan-out channel: many senders
// append to one shared log and every receiver reads it through its own cursor.
//
// # Architecture
//
// The package has two handle types sharing one lock-guarded log:
//   - Sender: appends messages and wakes suspended receivers
//   - Receiver: reads messages from a private cursor via the stream polling protocol
//
// Both handles are cloneable. A cloned Receiver starts at the current end of
// the log, so it never sees messages sent before it existed.
//
// # Usage
//
// Basic broadcasting:
//
//	tx, rx := broadcast.New[string]()
//	defer tx.Close()
//
//	// Give every consumer its own receiver
//	audit := rx.Clone()
//
//	go func() {
//		defer audit.Close()
//		for msg := range audit.All(ctx) {
//			fmt.Printf("audit: %s\n", msg)
//		}
//	}()
//
//	if err := tx.Send("Hello, World!"); err != nil {
//		// no receiver is registered
//	}
//
// # Delivery Guarantees
//
//   - Every message is delivered once to every receiver registered when it was sent
//   - Each receiver sees messages in the single order in which Send calls acquired the lock
//   - A receiver observes the end of the stream after the last Sender is closed
//     and it has read everything up to the end of the log
//
// # Error Handling
//
// Send fails only when no receiver is registered. The returned
// *stream.SendError carries the rejected value:
//
//	if err := tx.Send(msg); err != nil {
//		if v, ok := stream.Rejected[Message](err); ok {
//			log.Warn("message dropped", "message", v)
//		}
//	}
//
// # Memory
//
// Messages are retained for the lifetime of the channel, even after every
// receiver has read them. There is no backpressure: a slow receiver never
// blocks a Send. Long-running producers should account for this growth.
//
// # Thread Safety
//
// All operations on Sender are safe for concurrent use. A single Receiver must
// not be polled from two goroutines at once; clone it instead.
package broadcast
