// Package workqueue provides a small bounded background worker pool used
// for fire-and-forget cleanup and backup work (spec.md §5, "Background
// work"): bulk deletes, orphan sweeps, and snapshot uploads are enqueued
// from request handlers and never block the response.
package workqueue

import (
	"context"
	"sync"
	"time"

	"github.com/nekostore/neko-object/internal/logger"
)

// Job is one unit of background work. Its error is logged, never
// surfaced to a caller.
type Job func(ctx context.Context)

// Queue runs enqueued Jobs on a small fixed pool of workers.
type Queue struct {
	jobs      chan Job
	workers   int
	wg        sync.WaitGroup
	stopCh    chan struct{}
	stoppedCh chan struct{}

	mu        sync.Mutex
	started   bool
	pending   int
	completed int
	dropped   int
}

// Config controls queue capacity and worker count.
type Config struct {
	QueueSize int // default 256
	Workers   int // default 4
}

func DefaultConfig() Config {
	return Config{QueueSize: 256, Workers: 4}
}

func New(cfg Config) *Queue {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	return &Queue{
		jobs:      make(chan Job, cfg.QueueSize),
		workers:   cfg.Workers,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Start launches the worker pool. Safe to call once.
func (q *Queue) Start() {
	q.mu.Lock()
	if q.started {
		q.mu.Unlock()
		return
	}
	q.started = true
	q.mu.Unlock()

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	go func() {
		q.wg.Wait()
		close(q.stoppedCh)
	}()
}

// Stop signals workers to drain the queue and exit, waiting up to timeout.
// Shutdown is allowed to interrupt background work (spec.md §5): whatever
// didn't finish is swept the next time Init/Abort/Purge runs.
func (q *Queue) Stop(timeout time.Duration) {
	q.mu.Lock()
	if !q.started {
		q.mu.Unlock()
		return
	}
	q.mu.Unlock()

	close(q.stopCh)
	select {
	case <-q.stoppedCh:
		logger.Info("work queue stopped")
	case <-time.After(timeout):
		logger.Warn("work queue stop timed out", "pending", q.Pending())
	}
}

// Enqueue schedules job for background execution. Non-blocking: if the
// queue is full, the job is dropped and logged rather than blocking the
// caller's request handler.
func (q *Queue) Enqueue(job Job) {
	select {
	case q.jobs <- job:
		q.mu.Lock()
		q.pending++
		q.mu.Unlock()
	default:
		q.mu.Lock()
		q.dropped++
		q.mu.Unlock()
		logger.Warn("work queue full, dropping background job")
	}
}

// Pending returns the number of enqueued jobs that have not yet completed,
// including jobs that are running. A job that panics stays counted.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending
}

// Stats returns the pending, completed and dropped counters.
func (q *Queue) Stats() (pending, completed, dropped int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.pending, q.completed, q.dropped
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stopCh:
			q.drain()
			return
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.run(job)
		}
	}
}

func (q *Queue) drain() {
	for {
		select {
		case job, ok := <-q.jobs:
			if !ok {
				return
			}
			q.run(job)
		default:
			return
		}
	}
}

func (q *Queue) run(job Job) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			logger.Error("background job panicked", "recover", r)
		}
	}()

	job(ctx)

	q.mu.Lock()
	q.pending--
	q.completed++
	q.mu.Unlock()
}
