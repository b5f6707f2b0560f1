package stream_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/fanout/pkg/stream"
)

// queuePoller is a minimal Poller used to exercise the drivers.
type queuePoller struct {
	mu    sync.Mutex
	queue []int
	ended bool
	waker stream.Waker
	polls int
}

func (p *queuePoller) Poll(w stream.Waker) (int, stream.Status) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.polls++
	if len(p.queue) > 0 {
		v := p.queue[0]
		p.queue = p.queue[1:]
		return v, stream.Ready
	}
	if p.ended {
		return 0, stream.Closed
	}
	p.waker = w
	return 0, stream.Pending
}

func (p *queuePoller) push(v int) {
	p.mu.Lock()
	p.queue = append(p.queue, v)
	w := p.waker
	p.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}

func (p *queuePoller) end() {
	p.mu.Lock()
	p.ended = true
	w := p.waker
	p.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}

func TestStatus_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "pending", stream.Pending.String())
	assert.Equal(t, "ready", stream.Ready.String())
	assert.Equal(t, "closed", stream.Closed.String())
	assert.Equal(t, "unknown", stream.Status(42).String())
}

func TestSignal(t *testing.T) {
	t.Parallel()

	t.Run("wake does not block and coalesces", func(t *testing.T) {
		t.Parallel()

		s := stream.NewSignal()
		s.Wake()
		s.Wake()
		s.Wake()

		select {
		case <-s.C():
		default:
			t.Fatal("expected a pending notification")
		}

		select {
		case <-s.C():
			t.Fatal("notifications should coalesce into one")
		default:
		}
	})

	t.Run("waker func is invoked", func(t *testing.T) {
		t.Parallel()

		calls := 0
		var w stream.Waker = stream.WakerFunc(func() { calls++ })
		w.Wake()
		w.Wake()
		assert.Equal(t, 2, calls)
	})
}

func TestNext(t *testing.T) {
	t.Parallel()

	t.Run("returns buffered value without suspending", func(t *testing.T) {
		t.Parallel()

		p := &queuePoller{queue: []int{7}}
		v, ok, err := stream.Next(context.Background(), p)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 7, v)
		assert.Equal(t, 1, p.polls)
	})

	t.Run("resumes after wake", func(t *testing.T) {
		t.Parallel()

		p := &queuePoller{}
		go func() {
			time.Sleep(10 * time.Millisecond)
			p.push(3)
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		v, ok, err := stream.Next(ctx, p)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 3, v)
	})

	t.Run("reports end of stream", func(t *testing.T) {
		t.Parallel()

		p := &queuePoller{}
		go p.end()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		_, ok, err := stream.Next(ctx, p)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("returns context error while suspended", func(t *testing.T) {
		t.Parallel()

		p := &queuePoller{}
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, ok, err := stream.Next(ctx, p)
		require.ErrorIs(t, err, context.DeadlineExceeded)
		assert.False(t, ok)
	})
}

func TestAll(t *testing.T) {
	t.Parallel()

	t.Run("yields values until the stream ends", func(t *testing.T) {
		t.Parallel()

		p := &queuePoller{}
		go func() {
			for i := range 5 {
				p.push(i)
			}
			p.end()
		}()

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		var got []int
		for v := range stream.All(ctx, p) {
			got = append(got, v)
		}
		assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
	})

	t.Run("stops when the loop breaks", func(t *testing.T) {
		t.Parallel()

		p := &queuePoller{queue: []int{1, 2, 3}}
		for v := range stream.All(context.Background(), p) {
			if v == 2 {
				break
			}
		}

		v, ok, err := stream.Next(context.Background(), p)
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, 3, v)
	})
}

func TestChan(t *testing.T) {
	t.Parallel()

	t.Run("pumps values and closes", func(t *testing.T) {
		t.Parallel()

		p := &queuePoller{queue: []int{1, 2}}
		p.ended = true

		var got []int
		for v := range stream.Chan(context.Background(), p) {
			got = append(got, v)
		}
		assert.Equal(t, []int{1, 2}, got)
	})

	t.Run("closes on context cancel", func(t *testing.T) {
		t.Parallel()

		p := &queuePoller{}
		ctx, cancel := context.WithCancel(context.Background())
		ch := stream.Chan(ctx, p)
		cancel()

		select {
		case _, ok := <-ch:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("timeout waiting for channel close")
		}
	})
}

func TestSendError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("publish: %w", &stream.SendError[string]{Value: "payload"})

	assert.True(t, errors.Is(err, stream.ErrReceiverDropped))
	assert.Contains(t, err.Error(), "receiver dropped")

	v, ok := stream.Rejected[string](err)
	require.True(t, ok)
	assert.Equal(t, "payload", v)

	_, ok = stream.Rejected[int](err)
	assert.False(t, ok, "value type must match")

	_, ok = stream.Rejected[string](errors.New("other"))
	assert.False(t, ok)
}
