package mpsc

import (
	"context"
	"iter"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/fanout/pkg/stream"
)

// state is shared by every handle of one channel.
type state[T any] struct {
	mu       sync.Mutex
	messages []T
	senders  int
	dropped  bool
	waker    stream.Waker
}

func (st *state[T]) addSender() {
	st.mu.Lock()
	st.senders++
	st.mu.Unlock()
}

// releaseSender wakes the receiver when the last sender goes away so a
// suspended poll observes the end of the stream.
func (st *state[T]) releaseSender() {
	st.mu.Lock()
	st.senders--
	var w stream.Waker
	if st.senders == 0 {
		w = st.waker
	}
	st.mu.Unlock()

	if w != nil {
		w.Wake()
	}
}

func (st *state[T]) releaseReceiver() {
	st.mu.Lock()
	st.dropped = true
	st.messages = nil
	st.waker = nil
	st.mu.Unlock()
}

// New creates a channel with one live Sender and its only Receiver.
func New[T any]() (*Sender[T], *Receiver[T]) {
	st := &state[T]{senders: 1}
	return newSender(st), newReceiver(st)
}

// Sender pushes values to the Receiver. Clone it for each additional producer
// and Close every handle when done: the Receiver sees the end of the stream
// only after all senders are closed.
type Sender[T any] struct {
	state   *state[T]
	closed  atomic.Bool
	cleanup runtime.Cleanup
}

func newSender[T any](st *state[T]) *Sender[T] {
	s := &Sender[T]{state: st}
	// A sender that is garbage collected without Close still releases its count.
	s.cleanup = runtime.AddCleanup(s, (*state[T]).releaseSender, st)
	return s
}

// Send appends v to the queue and wakes the receiver. If the receiver has been
// closed, Send returns a *stream.SendError[T] holding v.
func (s *Sender[T]) Send(v T) error {
	if s.closed.Load() {
		return stream.ErrHandleClosed
	}

	st := s.state
	st.mu.Lock()
	if st.dropped {
		st.mu.Unlock()
		return &stream.SendError[T]{Value: v}
	}
	st.messages = append(st.messages, v)
	w := st.waker
	st.mu.Unlock()

	if w != nil {
		w.Wake()
	}
	return nil
}

// Clone returns a new Sender for the same channel.
// Cloning a closed Sender panics.
func (s *Sender[T]) Clone() *Sender[T] {
	if s.closed.Load() {
		panic("mpsc: Clone called on a closed Sender")
	}
	s.state.addSender()
	return newSender(s.state)
}

// Close releases the handle. It is safe to call more than once.
func (s *Sender[T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cleanup.Stop()
	s.state.releaseSender()
	return nil
}

// Len returns the number of buffered messages not yet received.
func (s *Sender[T]) Len() int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return len(s.state.messages)
}

// Receiver is the single consumer of a channel. It cannot be cloned.
type Receiver[T any] struct {
	state   *state[T]
	signal  *stream.Signal
	closed  atomic.Bool
	cleanup runtime.Cleanup
}

func newReceiver[T any](st *state[T]) *Receiver[T] {
	r := &Receiver[T]{state: st, signal: stream.NewSignal()}
	r.cleanup = runtime.AddCleanup(r, (*state[T]).releaseReceiver, st)
	return r
}

// Poll implements stream.Poller. The waker is stored on every call, replacing
// the previous one, and the head of the queue is removed if present.
// Polling a closed Receiver reports stream.Closed.
func (r *Receiver[T]) Poll(w stream.Waker) (T, stream.Status) {
	var zero T
	if r.closed.Load() {
		return zero, stream.Closed
	}

	st := r.state
	st.mu.Lock()
	defer st.mu.Unlock()

	st.waker = w
	if len(st.messages) > 0 {
		v := st.messages[0]
		st.messages[0] = zero
		st.messages = st.messages[1:]
		if len(st.messages) == 0 {
			st.messages = nil
		}
		return v, stream.Ready
	}
	if st.senders == 0 {
		return zero, stream.Closed
	}
	return zero, stream.Pending
}

// Recv blocks until a value is available, every sender is closed (ok=false),
// or ctx is canceled.
func (r *Receiver[T]) Recv(ctx context.Context) (v T, ok bool, err error) {
	return stream.Await(ctx, r, r.signal)
}

// All returns an iterator over the remaining values. See stream.All.
func (r *Receiver[T]) All(ctx context.Context) iter.Seq[T] {
	return stream.All(ctx, r)
}

// Close releases the receiver and discards buffered values. Subsequent sends
// fail with stream.ErrReceiverDropped. It is safe to call more than once.
func (r *Receiver[T]) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cleanup.Stop()
	r.state.releaseReceiver()
	return nil
}
