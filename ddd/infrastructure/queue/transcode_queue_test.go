package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signage-service/pkg/errno"
)

func TestEnqueueNeverOverlapsWithOneSlot(t *testing.T) {
	q := NewTranscodeQueue(1, 16)
	defer q.Close()

	var running, maxRunning int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := q.Enqueue(context.Background(), "encode", func(ctx context.Context) error {
				cur := atomic.AddInt32(&running, 1)
				for {
					max := atomic.LoadInt32(&maxRunning)
					if cur <= max || atomic.CompareAndSwapInt32(&maxRunning, max, cur) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt32(&maxRunning), "jobs must run strictly one at a time")
}

func TestEnqueueStartsInFIFOOrder(t *testing.T) {
	q := NewTranscodeQueue(1, 16)
	defer q.Close()

	var mu sync.Mutex
	var order []int

	// A blocker occupies the only slot so the rest pile up in the queue in
	// a deterministic order.
	release := make(chan struct{})
	blocked := make(chan struct{})
	go q.Enqueue(context.Background(), "blocker", func(ctx context.Context) error {
		close(blocked)
		<-release
		return nil
	})
	<-blocked

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue(context.Background(), "encode", func(ctx context.Context) error {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil
			})
		}()
		// Serialize the submissions so queue order is deterministic.
		time.Sleep(10 * time.Millisecond)
	}

	close(release)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestEnqueuePropagatesJobError(t *testing.T) {
	q := NewTranscodeQueue(1, 4)
	defer q.Close()

	boom := errors.New("encoder exploded")
	err := q.Enqueue(context.Background(), "encode", func(ctx context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)

	// A failed job must release its slot.
	assert.NoError(t, q.Enqueue(context.Background(), "encode", func(ctx context.Context) error { return nil }))
}

func TestEnqueueAfterClose(t *testing.T) {
	q := NewTranscodeQueue(1, 4)
	q.Close()

	err := q.Enqueue(context.Background(), "encode", func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, errno.ErrQueueClosed)
}

func TestQueuedJobSettlesWithContextError(t *testing.T) {
	q := NewTranscodeQueue(1, 4)
	defer q.Close()

	release := make(chan struct{})
	blocked := make(chan struct{})
	go q.Enqueue(context.Background(), "blocker", func(ctx context.Context) error {
		close(blocked)
		<-release
		return nil
	})
	<-blocked

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	var ran atomic.Bool
	go func() {
		done <- q.Enqueue(ctx, "cancelled", func(ctx context.Context) error {
			ran.Store(true)
			return nil
		})
	}()
	// The blocker still holds the only slot, so the job cannot have
	// started; cancelling now must keep it from ever running.
	time.Sleep(10 * time.Millisecond)
	cancel()
	close(release)

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, ran.Load(), "a job abandoned before its start must not run")
}

func TestCloseWaitsForQueuedJobs(t *testing.T) {
	q := NewTranscodeQueue(1, 4)

	var completed int32
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = q.Enqueue(context.Background(), "encode", func(ctx context.Context) error {
				time.Sleep(5 * time.Millisecond)
				atomic.AddInt32(&completed, 1)
				return nil
			})
		}()
	}
	// Give the submissions a moment to land before closing.
	time.Sleep(20 * time.Millisecond)
	q.Close()
	wg.Wait()

	assert.EqualValues(t, 3, atomic.LoadInt32(&completed))
}
