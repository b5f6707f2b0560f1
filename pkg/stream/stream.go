package stream

// Status is the outcome of a single Poll call.
type Status uint8

const (
	// Pending means no value is available yet. The waker passed to Poll has
	// been stored and will be invoked when polling again can make progress.
	Pending Status = iota

	// Ready means a value was returned.
	Ready

	// Closed means the stream has ended permanently. No value will ever be
	// returned again.
	Closed
)

// String implements fmt.Stringer.
func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Waker is the resume token handed to Poll. A channel stores it while the
// consumer is suspended and calls Wake when the consumer should poll again.
// Wake must not block and must not call back into the channel that invoked it.
type Waker interface {
	Wake()
}

// WakerFunc adapts an ordinary function to the Waker interface.
type WakerFunc func()

// Wake calls f.
func (f WakerFunc) Wake() { f() }

// Poller is implemented by consumer handles. Poll is not re-entrant: a single
// handle must not be polled from two goroutines at once.
type Poller[T any] interface {
	Poll(w Waker) (T, Status)
}

// Signal is a Waker backed by a one-slot channel. Repeated wakes before the
// consumer observes C collapse into a single notification.
type Signal struct {
	ch chan struct{}
}

// NewSignal returns a ready-to-use Signal.
func NewSignal() *Signal {
	return &Signal{ch: make(chan struct{}, 1)}
}

// Wake records a notification without blocking.
func (s *Signal) Wake() {
	select {
	case s.ch <- struct{}{}:
	default:
	}
}

// C returns the channel that receives a value after Wake.
func (s *Signal) C() <-chan struct{} {
	return s.ch
}
