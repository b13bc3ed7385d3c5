package queue

import (
	"context"
	"sync"

	"signage-service/pkg/errno"
	"signage-service/pkg/logger"
)

// job carries one unit of external-encoder work through the queue. done is
// buffered so the dispatcher never blocks on an abandoned caller.
type job struct {
	ctx  context.Context
	name string
	fn   func(ctx context.Context) error
	done chan error
}

// TranscodeQueue bounds the number of concurrently running external-encoder
// invocations. Jobs start in FIFO order; at most maxJobs run at once; the
// slot is released when the job settles, success or failure.
type TranscodeQueue struct {
	jobs  chan *job
	slots chan struct{}

	mu      sync.RWMutex
	closed  bool
	wg      sync.WaitGroup
	drained chan struct{}
}

// NewTranscodeQueue creates a queue with maxJobs concurrency and starts the
// dispatcher. capacity bounds how many jobs may wait.
func NewTranscodeQueue(maxJobs, capacity int) *TranscodeQueue {
	if maxJobs <= 0 {
		maxJobs = 1
	}
	if capacity <= 0 {
		capacity = maxJobs * 50
	}
	q := &TranscodeQueue{
		jobs:    make(chan *job, capacity),
		slots:   make(chan struct{}, maxJobs),
		drained: make(chan struct{}),
	}
	go q.dispatch()
	return q
}

// Enqueue submits fn and blocks until it settles. There is no mid-job
// cancellation: once fn starts it runs to completion even if ctx is
// cancelled; a job still waiting in the queue settles with ctx.Err() without
// running.
func (q *TranscodeQueue) Enqueue(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return errno.ErrQueueClosed
	}
	j := &job{ctx: ctx, name: name, fn: fn, done: make(chan error, 1)}
	// The read lock is held across the send so Close cannot close the
	// channel under a blocked sender; the dispatcher keeps draining, so a
	// full queue frees up without Close needing the write lock first.
	select {
	case q.jobs <- j:
		q.mu.RUnlock()
	case <-ctx.Done():
		q.mu.RUnlock()
		return ctx.Err()
	}
	return <-j.done
}

// dispatch drains the FIFO queue, acquiring a slot before each job so start
// order matches enqueue order.
func (q *TranscodeQueue) dispatch() {
	defer close(q.drained)
	for j := range q.jobs {
		if err := j.ctx.Err(); err != nil {
			// Caller abandoned the job before it started.
			j.done <- err
			continue
		}
		q.slots <- struct{}{}
		q.wg.Add(1)
		go q.run(j)
	}
}

func (q *TranscodeQueue) run(j *job) {
	defer func() {
		<-q.slots
		q.wg.Done()
	}()
	// Re-check after the slot wait: the caller may have given up while the
	// job sat behind a long-running encode.
	if err := j.ctx.Err(); err != nil {
		j.done <- err
		return
	}
	logger.Debugf("transcode job started name=%s", j.name)
	err := j.fn(j.ctx)
	if err != nil {
		logger.Warnf("transcode job failed name=%s error=%v", j.name, err)
	} else {
		logger.Debugf("transcode job finished name=%s", j.name)
	}
	j.done <- err
}

// Pending returns the number of jobs waiting for a slot.
func (q *TranscodeQueue) Pending() int {
	return len(q.jobs)
}

// Close rejects further enqueues, then waits for every queued and running
// job to settle. Queued jobs still run; the queue drains regardless.
func (q *TranscodeQueue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.jobs)
	q.mu.Unlock()
	<-q.drained
	q.wg.Wait()
}
