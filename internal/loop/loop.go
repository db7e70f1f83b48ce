// Package loop provides the single logical thread an editor session runs on.
//
// A Loop drains a FIFO of closures on one goroutine. Post enqueues without
// blocking and is what timers and background work use to hand results back.
// Call enqueues and waits, so public API methods invoked from arbitrary
// goroutines are serialized. A Call made from code already running on the
// loop executes inline instead of deadlocking.
package loop

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// ErrStopped is returned when work is submitted to a loop that has exited.
var ErrStopped = errors.New("loop stopped")

type onLoopKey struct{}

// Task is a unit of work run on the loop. ctx identifies the loop.
type Task func(ctx context.Context)

// Loop is a single-goroutine work queue.
type Loop struct {
	logger *slog.Logger

	mu      sync.Mutex
	queue   []Task
	started bool
	stopped bool

	wake chan struct{}
	done chan struct{}
}

// New creates a loop. It does nothing until Run is called.
func New(logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{
		logger: logger,
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
}

// Run processes tasks until ctx is cancelled. Tasks still queued at that
// point are discarded. Run may only be called once.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return errors.New("loop already running")
	}
	l.started = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.stopped = true
		l.queue = nil
		l.mu.Unlock()
		close(l.done)
	}()

	loopCtx := context.WithValue(ctx, onLoopKey{}, l)
	for {
		for {
			task, ok := l.next()
			if !ok {
				break
			}
			l.run(loopCtx, task)
			if ctx.Err() != nil {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		}
	}
}

func (l *Loop) next() (Task, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 {
		return nil, false
	}
	task := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return task, true
}

func (l *Loop) run(ctx context.Context, task Task) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Loop task panicked.", "panic", r)
		}
	}()
	task(ctx)
}

// Post enqueues a task without waiting. It reports false if the loop has
// stopped.
func (l *Loop) Post(task Task) bool {
	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.queue = append(l.queue, task)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Call runs fn on the loop and waits for it. When ctx already belongs to this
// loop, fn runs inline.
func (l *Loop) Call(ctx context.Context, fn func(ctx context.Context) error) error {
	if l.OnLoop(ctx) {
		return fn(ctx)
	}

	result := make(chan error, 1)
	ok := l.Post(func(loopCtx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				result <- fmt.Errorf("panic on loop: %v", r)
			}
		}()
		result <- fn(loopCtx)
	})
	if !ok {
		return ErrStopped
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		select {
		case err := <-result:
			return err
		default:
			return ErrStopped
		}
	}
}

// OnLoop reports whether ctx was handed out by this loop to a running task.
func (l *Loop) OnLoop(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	owner, _ := ctx.Value(onLoopKey{}).(*Loop)
	return owner == l
}

// Detach returns a context derived from ctx that is no longer recognised as
// being on any loop. Use it for goroutines started from a task.
func Detach(ctx context.Context) context.Context {
	return context.WithValue(ctx, onLoopKey{}, (*Loop)(nil))
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} { return l.done }

// Sync waits until every task posted before the call has run.
func (l *Loop) Sync(ctx context.Context) error {
	return l.Call(ctx, func(context.Context) error { return nil })
}
