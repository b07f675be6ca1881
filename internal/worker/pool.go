// Package worker provides a fixed-size pool that drains a task queue.
// Scheduler jobs enqueue independent units of work (one source fetch, one
// match-and-notify pass) so a slow unit never blocks its siblings.
package worker

import (
	"context"
	"log/slog"
	"sync"
)

// Task is one independent unit of work. Tasks receive the pool's base
// context and must honor its cancellation.
type Task func(ctx context.Context)

// Pool runs tasks on a bounded set of goroutines fed by a buffered queue.
type Pool struct {
	tasks  chan Task
	logger *slog.Logger

	wg      sync.WaitGroup
	startMu sync.Mutex
	started bool
	cancel  context.CancelFunc
}

// NewPool sizes the queue; workers start on Start.
func NewPool(queueSize int, logger *slog.Logger) *Pool {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Pool{
		tasks:  make(chan Task, queueSize),
		logger: logger,
	}
}

// Start launches n workers bound to ctx. Calling Start twice is a no-op.
func (p *Pool) Start(ctx context.Context, n int) {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if p.started {
		return
	}
	p.started = true

	if n <= 0 {
		n = 4
	}

	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
}

func (p *Pool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-p.tasks:
			if !ok {
				return
			}
			task(ctx)
		}
	}
}

// Submit enqueues a task. It reports false when the queue is full, so a
// backed-up stage sheds load instead of blocking the scheduler tick.
func (p *Pool) Submit(task Task) bool {
	select {
	case p.tasks <- task:
		return true
	default:
		if p.logger != nil {
			p.logger.Warn("task queue full, dropping task")
		}
		return false
	}
}

// Stop cancels the workers and waits for in-flight tasks to finish.
func (p *Pool) Stop() {
	p.startMu.Lock()
	defer p.startMu.Unlock()
	if !p.started {
		return
	}
	p.cancel()
	p.wg.Wait()
	p.started = false
}
