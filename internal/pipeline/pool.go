package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/task"
)

// QueueStats reports the current state of the task queue.
type QueueStats struct {
	Workers   int   `json:"workers"`
	Pending   int   `json:"pending"`
	InFlight  int   `json:"in_flight"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// HandlerFunc processes one task. A non-nil error counts as a failure.
type HandlerFunc func(ctx context.Context, log zerolog.Logger, t task.Task) error

// WorkerPoolOptions configures the worker pool.
type WorkerPoolOptions struct {
	Workers    int
	QueueSize  int
	JobTimeout time.Duration
	Handler    HandlerFunc
	Log        zerolog.Logger
}

// WorkerPool runs tasks on a fixed set of goroutines fed by a bounded queue.
type WorkerPool struct {
	jobs   chan task.Task
	opts   WorkerPoolOptions
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex
	stopped bool

	inFlight  atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	if opts.JobTimeout <= 0 {
		opts.JobTimeout = 2 * time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:   make(chan task.Task, opts.QueueSize),
		opts:   opts,
		log:    opts.Log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Int("queue_size", wp.opts.QueueSize).Msg("worker pool started")
}

// Stop refuses new work, lets workers drain the queue and waits for them.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if wp.stopped {
		wp.mu.Unlock()
		return
	}
	wp.stopped = true
	close(wp.jobs)
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("worker pool stopped")
}

// Enqueue adds a task to the queue. Returns false if the queue is full or the
// pool is stopped.
func (wp *WorkerPool) Enqueue(t task.Task) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return false
	}
	select {
	case wp.jobs <- t:
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Workers:   wp.opts.Workers,
		Pending:   len(wp.jobs),
		InFlight:  int(wp.inFlight.Load()),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

// Pending and InFlight satisfy metrics.QueueStats.
func (wp *WorkerPool) Pending() int  { return len(wp.jobs) }
func (wp *WorkerPool) InFlight() int { return int(wp.inFlight.Load()) }

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for t := range wp.jobs {
		wp.inFlight.Add(1)
		if err := wp.processJob(log, t); err != nil {
			wp.failed.Add(1)
		} else {
			wp.completed.Add(1)
		}
		wp.inFlight.Add(-1)
	}
}

func (wp *WorkerPool) processJob(log zerolog.Logger, t task.Task) error {
	ctx, cancel := context.WithTimeout(wp.ctx, wp.opts.JobTimeout)
	defer cancel()
	return wp.opts.Handler(ctx, log.With().Str("task_id", t.ID).Logger(), t)
}
