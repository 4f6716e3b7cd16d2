package server

import (
	"context"
	"sync"
)

// Task is a unit of work dispatched off the reactor. Tasks report back
// through the depot or by acting on their own connections; they return
// nothing.
type Task interface {
	Run()
}

const poolQueueCapacity = 4096

// Pool is the bounded worker pool draining the task queue. The reactor
// must never block on submission, so Submit falls back to a transfer
// goroutine if the queue buffer is momentarily full. Pool size must stay
// at or above four: a match task occupies its worker for the whole
// invitation and play window.
type Pool struct {
	workers int
	queue   chan Task
	wg      sync.WaitGroup
}

// NewPool creates a pool with the given number of workers.
func NewPool(workers int) *Pool {
	return &Pool{
		workers: workers,
		queue:   make(chan Task, poolQueueCapacity),
	}
}

// Start launches the workers. They stop when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case t := <-p.queue:
					t.Run()
				}
			}
		}()
	}
}

// Submit enqueues a task without ever blocking the caller.
func (p *Pool) Submit(t Task) {
	select {
	case p.queue <- t:
	default:
		go func() { p.queue <- t }()
	}
}

// Wait blocks until all workers have stopped.
func (p *Pool) Wait() {
	p.wg.Wait()
}
