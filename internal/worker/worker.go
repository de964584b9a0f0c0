// Package worker runs workspace requests with bounded concurrency. Producers
// submit without blocking; a periodic scheduling tick dispatches pending
// tasks while free slots exist.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultWorkspaceSlots is the concurrency cap of the workspace worker.
	DefaultWorkspaceSlots = 4
	// DefaultOverpassSlots is the concurrency cap of the overpass-only
	// worker variant.
	DefaultOverpassSlots = 3
)

// Task is one unit of pending work. Run errors are logged and counted, never
// propagated; a failed task leaves its request in a terminal state
// discoverable by inspection.
type Task struct {
	Name string
	Run  func(ctx context.Context) error
}

// Worker holds a FIFO pending queue and an active-task counter, both guarded
// by one mutex. The queue is unbounded, so Submit never blocks. There is no
// cancellation: in-flight tasks run to completion or abandon on error.
type Worker struct {
	mu      sync.Mutex
	pending []Task
	active  int

	max    int
	logger *slog.Logger
	wg     sync.WaitGroup

	totalCompleted atomic.Int64
	totalFailed    atomic.Int64
}

// New creates a worker with the given concurrency cap.
func New(maxConcurrent int, logger *slog.Logger) *Worker {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{max: maxConcurrent, logger: logger}
}

// Submit pushes a task onto the pending queue and returns immediately.
func (w *Worker) Submit(t Task) {
	w.mu.Lock()
	w.pending = append(w.pending, t)
	w.mu.Unlock()
}

// Tick dispatches pending tasks while free slots exist. It is called from the
// host's periodic drain; the lock is held only to pop a task, released before
// spawning.
func (w *Worker) Tick(ctx context.Context) {
	for {
		w.mu.Lock()
		if w.active >= w.max || len(w.pending) == 0 {
			w.mu.Unlock()
			return
		}
		task := w.pending[0]
		w.pending = w.pending[1:]
		w.active++
		w.mu.Unlock()

		w.wg.Add(1)
		go w.run(ctx, task)
	}
}

func (w *Worker) run(ctx context.Context, task Task) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			w.totalFailed.Add(1)
			w.logger.Error("task panicked", "task", task.Name, "panic", r)
		}
		w.mu.Lock()
		w.active--
		w.mu.Unlock()
		w.wg.Done()
	}()

	if err := task.Run(ctx); err != nil {
		w.totalFailed.Add(1)
		w.logger.Error("task failed",
			"task", task.Name,
			"error", err,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		return
	}

	w.totalCompleted.Add(1)
	w.logger.Debug("task completed",
		"task", task.Name,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}

// Active returns the number of in-flight tasks.
func (w *Worker) Active() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.active
}

// Pending returns the queue depth.
func (w *Worker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.pending)
}

// Completed returns the number of tasks finished without error since start.
func (w *Worker) Completed() int64 { return w.totalCompleted.Load() }

// Failed returns the number of tasks that errored or panicked since start.
func (w *Worker) Failed() int64 { return w.totalFailed.Load() }

// Drain ticks until the queue is empty and all in-flight tasks have finished,
// or the context is cancelled. Used by the CLI, which has no frame loop.
func (w *Worker) Drain(ctx context.Context) error {
	for {
		w.Tick(ctx)

		w.mu.Lock()
		idle := w.active == 0 && len(w.pending) == 0
		w.mu.Unlock()
		if idle {
			w.wg.Wait()
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}
