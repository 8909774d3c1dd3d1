// Package worker runs detached workflows past the lifetime of the request
// that started them.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

var ErrClosed = errors.New("worker pool is shut down")

// Task is a unit of background work. The context is not tied to any request.
type Task func(ctx context.Context) error

// Hooks are optional callbacks for metrics.
type Hooks struct {
	Queued   func()
	Started  func()
	Finished func()
}

type Pool struct {
	sem    *semaphore.Weighted
	wg     sync.WaitGroup
	logger *slog.Logger
	hooks  Hooks

	mu     sync.Mutex
	closed bool
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Pool)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

func WithHooks(h Hooks) Option {
	return func(p *Pool) { p.hooks = h }
}

// New returns a pool running at most concurrency tasks at once.
func New(concurrency int, opts ...Option) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		sem:    semaphore.NewWeighted(int64(concurrency)),
		logger: slog.Default(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Submit queues a task and returns its id. Tasks beyond the concurrency
// limit wait for a slot; every accepted task is tracked until it returns.
func (p *Pool) Submit(name string, task Task) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrClosed
	}

	id := uuid.NewString()
	p.wg.Add(1)
	call(p.hooks.Queued)
	go p.run(id, name, task)
	return id, nil
}

func (p *Pool) run(id, name string, task Task) {
	defer p.wg.Done()
	log := p.logger.With("task", name, "task_id", id)

	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		// only after a forced shutdown
		log.Warn("task dropped before start", "err", err)
		call(p.hooks.Started)
		call(p.hooks.Finished)
		return
	}
	defer p.sem.Release(1)

	call(p.hooks.Started)
	defer call(p.hooks.Finished)

	if err := p.safely(task); err != nil {
		log.Error("task failed", "err", err)
		return
	}
	log.Debug("task done")
}

func (p *Pool) safely(task Task) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v\n%s", r, debug.Stack())
		}
	}()
	return task(p.ctx)
}

// Shutdown stops accepting tasks and waits for the running and queued ones.
// If ctx expires first, in-flight tasks see their context cancelled and
// Shutdown returns ctx's error once they have returned.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return ctx.Err()
	}
}

func call(fn func()) {
	if fn != nil {
		fn()
	}
}
