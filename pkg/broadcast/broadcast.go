package broadcast

import (
	"context"
	"iter"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/dmitrymomot/fanout/pkg/stream"
)

// state is the log shared by every handle of one channel.
//
// Receivers address messages by absolute position in the logical sequence.
// evicted is the number of positions dropped from the head of messages; it is
// never incremented today, so the log is retained for the channel's lifetime.
type state[T any] struct {
	mu        sync.Mutex
	messages  []T
	evicted   int
	senders   int
	receivers map[uint64]stream.Waker
	nextID    uint64
}

// at returns the message at absolute position pos, if it is still buffered.
func (st *state[T]) at(pos int) (T, bool) {
	idx := pos - st.evicted
	if idx < 0 || idx >= len(st.messages) {
		var zero T
		return zero, false
	}
	return st.messages[idx], true
}

// tail is the position the next sent message will occupy.
func (st *state[T]) tail() int {
	return st.evicted + len(st.messages)
}

// register adds a receiver and returns its id and starting cursor.
func (st *state[T]) register() (uint64, int) {
	st.mu.Lock()
	defer st.mu.Unlock()

	id := st.nextID
	st.nextID++
	st.receivers[id] = nil
	return id, st.tail()
}

func (st *state[T]) unregister(id uint64) {
	st.mu.Lock()
	delete(st.receivers, id)
	st.mu.Unlock()
}

func (st *state[T]) addSender() {
	st.mu.Lock()
	st.senders++
	st.mu.Unlock()
}

func (st *state[T]) releaseSender() {
	st.mu.Lock()
	st.senders--
	var ws []stream.Waker
	if st.senders == 0 {
		ws = st.wakers()
	}
	st.mu.Unlock()

	wakeAll(ws)
}

// wakers snapshots the stored wakers. Must be called with mu held.
func (st *state[T]) wakers() []stream.Waker {
	ws := make([]stream.Waker, 0, len(st.receivers))
	for _, w := range st.receivers {
		if w != nil {
			ws = append(ws, w)
		}
	}
	return ws
}

func wakeAll(ws []stream.Waker) {
	for _, w := range ws {
		w.Wake()
	}
}

// New creates a channel with one live Sender and one Receiver positioned at
// the start of the log.
func New[T any]() (*Sender[T], *Receiver[T]) {
	st := &state[T]{
		senders:   1,
		receivers: make(map[uint64]stream.Waker),
	}
	id, cursor := st.register()
	return newSender(st), newReceiver(st, id, cursor)
}

// Sender appends values to the shared log. Every registered Receiver
// observes every value sent after it was created.
type Sender[T any] struct {
	state   *state[T]
	closed  atomic.Bool
	cleanup runtime.Cleanup
}

func newSender[T any](st *state[T]) *Sender[T] {
	s := &Sender[T]{state: st}
	s.cleanup = runtime.AddCleanup(s, (*state[T]).releaseSender, st)
	return s
}

// Send appends v to the log and wakes every suspended receiver. If no receiver
// is registered, Send returns a *stream.SendError[T] holding v.
func (s *Sender[T]) Send(v T) error {
	if s.closed.Load() {
		return stream.ErrHandleClosed
	}

	st := s.state
	st.mu.Lock()
	if len(st.receivers) == 0 {
		st.mu.Unlock()
		return &stream.SendError[T]{Value: v}
	}
	st.messages = append(st.messages, v)
	ws := st.wakers()
	st.mu.Unlock()

	wakeAll(ws)
	return nil
}

// Clone returns a new Sender for the same channel.
// Cloning a closed Sender panics.
func (s *Sender[T]) Clone() *Sender[T] {
	if s.closed.Load() {
		panic("broadcast: Clone called on a closed Sender")
	}
	s.state.addSender()
	return newSender(s.state)
}

// Close releases the handle. When the last Sender is closed every receiver is
// woken and, once it has read its remaining messages, observes stream.Closed.
// It is safe to call more than once.
func (s *Sender[T]) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.cleanup.Stop()
	s.state.releaseSender()
	return nil
}

// Len returns the number of messages retained in the log.
func (s *Sender[T]) Len() int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return len(s.state.messages)
}

// ReceiverCount returns the number of registered receivers.
func (s *Sender[T]) ReceiverCount() int {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return len(s.state.receivers)
}

// Receiver reads the shared log through a private cursor. Each Receiver sees
// every message exactly once, in send order, starting from its creation point.
type Receiver[T any] struct {
	state   *state[T]
	id      uint64
	cursor  int
	signal  *stream.Signal
	closed  atomic.Bool
	cleanup runtime.Cleanup
}

func newReceiver[T any](st *state[T], id uint64, cursor int) *Receiver[T] {
	r := &Receiver[T]{
		state:  st,
		id:     id,
		cursor: cursor,
		signal: stream.NewSignal(),
	}
	r.cleanup = runtime.AddCleanup(r, func(st *state[T]) { st.unregister(id) }, st)
	return r
}

// Poll implements stream.Poller. The waker is stored only when Poll returns
// stream.Pending. Polling a closed Receiver reports stream.Closed.
func (r *Receiver[T]) Poll(w stream.Waker) (T, stream.Status) {
	var zero T
	if r.closed.Load() {
		return zero, stream.Closed
	}

	st := r.state
	st.mu.Lock()
	v, ok := st.at(r.cursor)
	if ok {
		st.mu.Unlock()
		r.cursor++
		return v, stream.Ready
	}
	if st.senders == 0 {
		st.mu.Unlock()
		return zero, stream.Closed
	}
	st.receivers[r.id] = w
	st.mu.Unlock()
	return zero, stream.Pending
}

// Clone registers a new Receiver that observes only messages sent after this
// call. Cloning a closed Receiver panics.
func (r *Receiver[T]) Clone() *Receiver[T] {
	if r.closed.Load() {
		panic("broadcast: Clone called on a closed Receiver")
	}
	id, cursor := r.state.register()
	return newReceiver(r.state, id, cursor)
}

// Recv blocks until a value is available, every sender is closed and the
// receiver has caught up (ok=false), or ctx is canceled.
func (r *Receiver[T]) Recv(ctx context.Context) (v T, ok bool, err error) {
	return stream.Await(ctx, r, r.signal)
}

// All returns an iterator over the remaining values. See stream.All.
func (r *Receiver[T]) All(ctx context.Context) iter.Seq[T] {
	return stream.All(ctx, r)
}

// Close unregisters the receiver. Once no receiver remains, Send fails with
// stream.ErrReceiverDropped. It is safe to call more than once.
func (r *Receiver[T]) Close() error {
	if !r.closed.CompareAndSwap(false, true) {
		return nil
	}
	r.cleanup.Stop()
	r.state.unregister(r.id)
	return nil
}
