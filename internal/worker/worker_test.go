package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerRunsAllTasks(t *testing.T) {
	w := New(3, nil)

	var done atomic.Int32
	for i := 0; i < 10; i++ {
		w.Submit(Task{Name: "t", Run: func(context.Context) error {
			done.Add(1)
			return nil
		}})
	}

	require.NoError(t, w.Drain(context.Background()))
	assert.Equal(t, int32(10), done.Load())
	assert.Equal(t, int64(10), w.Completed())
	assert.Zero(t, w.Failed())
}

func TestWorkerConcurrencyCap(t *testing.T) {
	const maxSlots = 3
	w := New(maxSlots, nil)

	var current, peak atomic.Int32
	block := make(chan struct{})

	for i := 0; i < 10; i++ {
		w.Submit(Task{Name: "t", Run: func(context.Context) error {
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			<-block
			current.Add(-1)
			return nil
		}})
	}

	// Repeated ticks must never exceed the cap while tasks are blocked.
	for i := 0; i < 5; i++ {
		w.Tick(context.Background())
		time.Sleep(5 * time.Millisecond)
		assert.LessOrEqual(t, w.Active(), maxSlots)
	}
	assert.Equal(t, 10-maxSlots, w.Pending())

	close(block)
	require.NoError(t, w.Drain(context.Background()))

	assert.LessOrEqual(t, peak.Load(), int32(maxSlots))
	assert.Equal(t, int64(10), w.Completed())
}

func TestWorkerFIFODispatch(t *testing.T) {
	// One slot: dispatch order must equal submit order.
	w := New(1, nil)

	var mu sync.Mutex
	var order []int
	for i := 0; i < 5; i++ {
		w.Submit(Task{Name: "t", Run: func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}})
	}

	require.NoError(t, w.Drain(context.Background()))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWorkerErrorDecrementsActive(t *testing.T) {
	w := New(2, nil)

	w.Submit(Task{Name: "bad", Run: func(context.Context) error {
		return errors.New("transport error")
	}})
	w.Submit(Task{Name: "worse", Run: func(context.Context) error {
		panic("boom")
	}})
	w.Submit(Task{Name: "good", Run: func(context.Context) error {
		return nil
	}})

	require.NoError(t, w.Drain(context.Background()))
	assert.Zero(t, w.Active())
	assert.Equal(t, int64(2), w.Failed())
	assert.Equal(t, int64(1), w.Completed())
}

func TestWorkerSubmitNeverBlocks(t *testing.T) {
	w := New(1, nil)

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10000; i++ {
			w.Submit(Task{Name: "t", Run: func(context.Context) error { return nil }})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Submit blocked on an unbounded queue")
	}
}

func TestWorkerDrainHonorsContext(t *testing.T) {
	w := New(1, nil)
	block := make(chan struct{})
	defer close(block)

	w.Submit(Task{Name: "stuck", Run: func(context.Context) error {
		<-block
		return nil
	}})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, w.Drain(ctx), context.DeadlineExceeded)
}
