// Package debounce implements a coalescing trigger channel.
//
// A Channel holds a single pending payload. Every Trigger replaces it, bumps
// the channel generation and restarts the quiescence timer, so a burst of
// triggers produces one run with the payload of the last trigger. Timer expiry
// never runs work directly: it hands the flush to a post function, normally a
// loop.Loop, and the flush is ignored if a newer trigger has arrived since.
//
// The generation is also handed to the run function. Work that completes
// asynchronously checks Current before applying its result, so a result
// computed for an older request is discarded.
package debounce

import (
	"sync"
	"time"

	"k8s.io/utils/clock"
)

// DefaultWindow is the quiescence window used when none is configured.
const DefaultWindow = 300 * time.Millisecond

// RunFunc does the channel's work for a payload.
type RunFunc[T any] func(gen uint64, payload T)

// PostFunc schedules fn on the owner's thread.
type PostFunc func(fn func())

// Option configures a Channel.
type Option func(*options)

type options struct {
	onCoalesce func()
}

// WithCoalesceHook is called each time a trigger replaces a pending payload.
func WithCoalesceHook(fn func()) Option {
	return func(o *options) { o.onCoalesce = fn }
}

// Channel is a debounced, last-write-wins trigger.
type Channel[T any] struct {
	name   string
	window time.Duration
	clock  clock.WithDelayedExecution
	post   PostFunc
	run    RunFunc[T]
	opts   options

	mu      sync.Mutex
	gen     uint64
	payload T
	pending bool
	timer   clock.Timer
	stopped bool
}

// New creates a channel. A zero window uses DefaultWindow; a nil clock uses
// the real clock.
func New[T any](name string, window time.Duration, clk clock.WithDelayedExecution, post PostFunc, run RunFunc[T], opts ...Option) *Channel[T] {
	if window <= 0 {
		window = DefaultWindow
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	c := &Channel[T]{name: name, window: window, clock: clk, post: post, run: run}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

// Name returns the channel name.
func (c *Channel[T]) Name() string { return c.name }

// Trigger stores payload as the pending request and restarts the timer. It
// returns the generation of the new request.
func (c *Channel[T]) Trigger(payload T) uint64 {
	c.mu.Lock()
	if c.stopped {
		gen := c.gen
		c.mu.Unlock()
		return gen
	}
	coalesced := c.pending
	c.gen++
	gen := c.gen
	c.payload = payload
	c.pending = true
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = c.clock.AfterFunc(c.window, func() {
		c.post(func() { c.flush(gen) })
	})
	c.mu.Unlock()

	if coalesced && c.opts.onCoalesce != nil {
		c.opts.onCoalesce()
	}
	return gen
}

func (c *Channel[T]) flush(gen uint64) {
	c.mu.Lock()
	if c.stopped || !c.pending || gen != c.gen {
		c.mu.Unlock()
		return
	}
	payload := c.payload
	c.pending = false
	c.timer = nil
	var zero T
	c.payload = zero
	c.mu.Unlock()

	c.run(gen, payload)
}

// Flush runs the pending request immediately, if there is one. Must be
// called from the owner's thread.
func (c *Channel[T]) Flush() bool {
	c.mu.Lock()
	if !c.pending {
		c.mu.Unlock()
		return false
	}
	if c.timer != nil {
		c.timer.Stop()
	}
	gen := c.gen
	c.mu.Unlock()

	c.flush(gen)
	return true
}

// Invalidate drops the pending request and makes every earlier generation
// stale.
func (c *Channel[T]) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	var zero T
	c.payload = zero
}

// Current reports whether gen is still the latest generation.
func (c *Channel[T]) Current(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.stopped && gen == c.gen
}

// Generation returns the latest generation.
func (c *Channel[T]) Generation() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen
}

// Pending reports whether a request is waiting for its timer.
func (c *Channel[T]) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending
}

// Stop cancels the timer and refuses further triggers.
func (c *Channel[T]) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopped = true
	c.pending = false
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
