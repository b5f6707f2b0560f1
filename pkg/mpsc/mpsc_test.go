package mpsc_test

import (
	"context"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fanout/pkg/mpsc"
	"github.com/dmitrymomot/fanout/pkg/stream"
)

type countingWaker struct {
	n atomic.Int32
}

func (w *countingWaker) Wake() { w.n.Add(1) }

func recvTimeout[T any](t *testing.T, rx *mpsc.Receiver[T]) (T, bool) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	v, ok, err := rx.Recv(ctx)
	require.NoError(t, err, "timeout waiting for value")
	return v, ok
}

func TestSendRecv(t *testing.T) {
	t.Parallel()

	t.Run("preserves send order", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[int]()
		defer rx.Close()

		for i := range 100 {
			require.NoError(t, tx.Send(i))
		}
		require.NoError(t, tx.Close())

		for i := range 100 {
			v, ok := recvTimeout(t, rx)
			require.True(t, ok)
			assert.Equal(t, i, v)
		}

		_, ok := recvTimeout(t, rx)
		assert.False(t, ok, "stream should end after all senders close")
	})

	t.Run("drains buffered values before reporting closure", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[string]()
		require.NoError(t, tx.Send("a"))
		require.NoError(t, tx.Send("b"))
		require.NoError(t, tx.Close())

		var got []string
		for v := range rx.All(context.Background()) {
			got = append(got, v)
		}
		assert.Equal(t, []string{"a", "b"}, got)
	})
}

func TestClose(t *testing.T) {
	t.Parallel()

	t.Run("stream ends with no values when the only sender closes", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[struct{}]()
		require.NoError(t, tx.Close())

		_, ok := recvTimeout(t, rx)
		assert.False(t, ok)
	})

	t.Run("send after receiver close returns the value", func(t *testing.T) {
		t.Parallel()

		type payload struct{ ID int }

		tx, rx := mpsc.New[*payload]()
		defer tx.Close()
		require.NoError(t, rx.Close())

		in := &payload{ID: 42}
		err := tx.Send(in)
		require.ErrorIs(t, err, stream.ErrReceiverDropped)

		out, ok := stream.Rejected[*payload](err)
		require.True(t, ok)
		assert.Same(t, in, out)
	})

	t.Run("close is idempotent", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[int]()
		clone := tx.Clone()

		require.NoError(t, tx.Close())
		require.NoError(t, tx.Close())

		// The clone keeps the stream open.
		v, st := rx.Poll(&countingWaker{})
		assert.Equal(t, stream.Pending, st)
		assert.Zero(t, v)

		require.NoError(t, clone.Close())
		_, st = rx.Poll(&countingWaker{})
		assert.Equal(t, stream.Closed, st)

		require.NoError(t, rx.Close())
		require.NoError(t, rx.Close())
	})

	t.Run("closed sender rejects sends", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[int]()
		defer rx.Close()
		require.NoError(t, tx.Close())

		assert.ErrorIs(t, tx.Send(1), stream.ErrHandleClosed)
		assert.Panics(t, func() { tx.Clone() })
	})

	t.Run("closed receiver polls as closed", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[int]()
		defer tx.Close()
		require.NoError(t, tx.Send(1))
		require.NoError(t, rx.Close())

		_, st := rx.Poll(&countingWaker{})
		assert.Equal(t, stream.Closed, st)
		assert.Zero(t, tx.Len(), "buffered values are discarded on receiver close")
	})

	t.Run("unreachable sender is released by the collector", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[int]()
		defer rx.Close()

		func() {
			leaked := tx.Clone()
			require.NoError(t, leaked.Send(1))
		}()
		require.NoError(t, tx.Close())

		v, ok := recvTimeout(t, rx)
		require.True(t, ok)
		assert.Equal(t, 1, v)

		require.Eventually(t, func() bool {
			runtime.GC()
			_, st := rx.Poll(&countingWaker{})
			return st == stream.Closed
		}, 2*time.Second, 10*time.Millisecond)
	})
}

func TestPollProtocol(t *testing.T) {
	t.Parallel()

	t.Run("send wakes the stored waker", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[int]()
		defer tx.Close()
		defer rx.Close()

		w := &countingWaker{}
		_, st := rx.Poll(w)
		require.Equal(t, stream.Pending, st)
		assert.Zero(t, w.n.Load())

		require.NoError(t, tx.Send(5))
		assert.Equal(t, int32(1), w.n.Load())

		v, st := rx.Poll(w)
		require.Equal(t, stream.Ready, st)
		assert.Equal(t, 5, v)
	})

	t.Run("each poll replaces the stored waker", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[int]()
		defer tx.Close()
		defer rx.Close()

		first, second := &countingWaker{}, &countingWaker{}
		_, _ = rx.Poll(first)
		_, _ = rx.Poll(second)

		require.NoError(t, tx.Send(1))
		assert.Zero(t, first.n.Load())
		assert.Equal(t, int32(1), second.n.Load())
	})

	t.Run("last sender close wakes the receiver", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[int]()
		defer rx.Close()
		clone := tx.Clone()

		w := &countingWaker{}
		_, st := rx.Poll(w)
		require.Equal(t, stream.Pending, st)

		require.NoError(t, tx.Close())
		assert.Zero(t, w.n.Load(), "a remaining sender keeps the receiver suspended")

		require.NoError(t, clone.Close())
		assert.Equal(t, int32(1), w.n.Load())

		_, st = rx.Poll(w)
		assert.Equal(t, stream.Closed, st)
	})
}

func TestMultipleSenders(t *testing.T) {
	t.Parallel()

	t.Run("every value is received exactly once", func(t *testing.T) {
		t.Parallel()

		tx, rx := mpsc.New[int]()
		defer rx.Close()

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func(tx *mpsc.Sender[int]) {
				defer wg.Done()
				defer tx.Close()
				assert.NoError(t, tx.Send(i))
			}(tx.Clone())
		}
		require.NoError(t, tx.Close())

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var got []int
		for v := range rx.All(ctx) {
			got = append(got, v)
		}
		require.NoError(t, ctx.Err())
		wg.Wait()

		sort.Ints(got)
		assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, got)
	})

	t.Run("concurrent senders with a live consumer", func(t *testing.T) {
		t.Parallel()

		const senders, perSender = 8, 500

		tx, rx := mpsc.New[int]()
		defer rx.Close()

		var wg sync.WaitGroup
		for s := range senders {
			wg.Add(1)
			go func(tx *mpsc.Sender[int]) {
				defer wg.Done()
				defer tx.Close()
				for i := range perSender {
					assert.NoError(t, tx.Send(s*perSender+i))
				}
			}(tx.Clone())
		}
		require.NoError(t, tx.Close())

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		seen := make(map[int]bool, senders*perSender)
		lastPerSender := make(map[int]int, senders)
		for v := range rx.All(ctx) {
			require.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true

			// Values from one sender arrive in that sender's order.
			s := v / perSender
			if last, ok := lastPerSender[s]; ok {
				require.Greater(t, v, last)
			}
			lastPerSender[s] = v
		}
		require.NoError(t, ctx.Err())
		wg.Wait()
		assert.Len(t, seen, senders*perSender)
	})
}

func TestSender_Len(t *testing.T) {
	t.Parallel()

	tx, rx := mpsc.New[int]()
	defer tx.Close()
	defer rx.Close()

	assert.Zero(t, tx.Len())
	require.NoError(t, tx.Send(1))
	require.NoError(t, tx.Send(2))
	assert.Equal(t, 2, tx.Len())

	_, _ = rx.Poll(&countingWaker{})
	assert.Equal(t, 1, tx.Len())
}
