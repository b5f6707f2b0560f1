// Package mpsc provides an unbounded multi-producer, single-consumer channel
// driven by the polling protocol of package stream.
//
// # Usage
//
//	tx, rx := mpsc.New[Job]()
//
//	for i := range workers {
//		go func(tx *mpsc.Sender[Job]) {
//			defer tx.Close()
//			for job := range produce(i) {
//				if err := tx.Send(job); err != nil {
//					return // receiver is gone
//				}
//			}
//		}(tx.Clone())
//	}
//	tx.Close()
//
//	for job := range rx.All(ctx) {
//		process(job)
//	}
//
// # Semantics
//
// Values are delivered exactly once, in the order Send calls acquired the
// channel lock. The receiver sees the end of the stream once the queue is empty
// and every Sender has been closed. Closing the Receiver makes every later Send
// fail with a *stream.SendError carrying the rejected value.
//
// The queue is unbounded: Send never blocks and never drops values.
//
// Handles should be closed explicitly. A handle that becomes unreachable
// without Close is released by the garbage collector, eventually.
package mpsc
