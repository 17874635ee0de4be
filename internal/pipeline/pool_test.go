package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/snarg/mallok/internal/task"
)

func newTestPool(workers, queueSize int, h HandlerFunc) *WorkerPool {
	if h == nil {
		h = func(context.Context, zerolog.Logger, task.Task) error { return nil }
	}
	return NewWorkerPool(WorkerPoolOptions{
		Workers:   workers,
		QueueSize: queueSize,
		Handler:   h,
		Log:       zerolog.Nop(),
	})
}

func TestWorkerPool_EnqueueBeforeStart(t *testing.T) {
	wp := newTestPool(2, 5, nil)
	if !wp.Enqueue(task.Task{ID: "a"}) {
		t.Error("Enqueue should return true when queue has space")
	}
}

func TestWorkerPool_EnqueueFull(t *testing.T) {
	wp := newTestPool(0, 2, nil) // nobody draining

	wp.Enqueue(task.Task{ID: "a"})
	wp.Enqueue(task.Task{ID: "b"})
	if wp.Enqueue(task.Task{ID: "c"}) {
		t.Error("Enqueue should return false when queue is full")
	}
	if got := wp.Pending(); got != 2 {
		t.Errorf("Pending = %d, want 2", got)
	}
}

func TestWorkerPool_EnqueueAfterStop(t *testing.T) {
	wp := newTestPool(1, 10, nil)
	wp.Start()
	wp.Stop()
	if wp.Enqueue(task.Task{ID: "a"}) {
		t.Error("Enqueue should return false after Stop()")
	}
	wp.Stop()
}

func TestWorkerPool_ProcessesAndCounts(t *testing.T) {
	var mu sync.Mutex
	seen := map[string]bool{}
	wp := newTestPool(3, 10, func(_ context.Context, _ zerolog.Logger, tk task.Task) error {
		mu.Lock()
		seen[tk.ID] = true
		mu.Unlock()
		if tk.ID == "bad" {
			return errors.New("boom")
		}
		return nil
	})
	for _, id := range []string{"a", "b", "bad", "c"} {
		wp.Enqueue(task.Task{ID: id})
	}
	wp.Start()
	wp.Stop()

	stats := wp.Stats()
	if stats.Completed != 3 || stats.Failed != 1 {
		t.Errorf("stats = %+v, want 3 completed 1 failed", stats)
	}
	if len(seen) != 4 {
		t.Errorf("handled %d tasks, want 4", len(seen))
	}
	if stats.InFlight != 0 || stats.Pending != 0 {
		t.Errorf("queue not drained: %+v", stats)
	}
}

func TestWorkerPool_JobTimeout(t *testing.T) {
	var got error
	wp := NewWorkerPool(WorkerPoolOptions{
		Workers:    1,
		QueueSize:  1,
		JobTimeout: 10 * time.Millisecond,
		Log:        zerolog.Nop(),
		Handler: func(ctx context.Context, _ zerolog.Logger, _ task.Task) error {
			<-ctx.Done()
			got = ctx.Err()
			return got
		},
	})
	wp.Enqueue(task.Task{ID: "slow"})
	wp.Start()
	wp.Stop()
	if !errors.Is(got, context.DeadlineExceeded) {
		t.Errorf("handler saw %v, want deadline exceeded", got)
	}
}
