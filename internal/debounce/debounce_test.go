package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"
)

// queue collects posted functions so the test decides when they run.
type queue struct {
	mu  sync.Mutex
	fns []func()
}

func (q *queue) post(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.fns = append(q.fns, fn)
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.fns)
}

// await waits for n posts; timer callbacks may be delivered asynchronously.
func (q *queue) await(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return q.len() >= n }, time.Second, time.Millisecond)
}

func (q *queue) drain() {
	q.mu.Lock()
	fns := q.fns
	q.fns = nil
	q.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

type call struct {
	gen     uint64
	payload string
}

func newChannel(t *testing.T, opts ...Option) (*Channel[string], *clocktesting.FakeClock, *queue, *[]call) {
	t.Helper()
	clk := clocktesting.NewFakeClock(time.Unix(0, 0))
	q := &queue{}
	var calls []call
	c := New("text-to-graph", 300*time.Millisecond, clk, q.post, func(gen uint64, payload string) {
		calls = append(calls, call{gen: gen, payload: payload})
	}, opts...)
	return c, clk, q, &calls
}

func TestTrigger_CoalescesBurst(t *testing.T) {
	coalesced := 0
	c, clk, q, calls := newChannel(t, WithCoalesceHook(func() { coalesced++ }))

	c.Trigger("foo")
	clk.Step(100 * time.Millisecond)
	gen := c.Trigger("foobar")
	clk.Step(299 * time.Millisecond)
	q.drain()
	assert.Empty(t, *calls, "window restarts on every trigger")

	clk.Step(time.Millisecond)
	q.await(t, 1)
	q.drain()

	require.Len(t, *calls, 1)
	assert.Equal(t, call{gen: gen, payload: "foobar"}, (*calls)[0])
	assert.Equal(t, 1, coalesced)
	assert.False(t, c.Pending())
}

func TestTrigger_SeparateWindowsRunTwice(t *testing.T) {
	c, clk, q, calls := newChannel(t)

	c.Trigger("a")
	clk.Step(300 * time.Millisecond)
	q.await(t, 1)
	q.drain()
	c.Trigger("b")
	clk.Step(300 * time.Millisecond)
	q.await(t, 1)
	q.drain()

	require.Len(t, *calls, 2)
	assert.Equal(t, "a", (*calls)[0].payload)
	assert.Equal(t, "b", (*calls)[1].payload)
}

func TestFlush_StaleTimerIgnored(t *testing.T) {
	c, clk, q, calls := newChannel(t)

	c.Trigger("a")
	clk.Step(300 * time.Millisecond)
	q.await(t, 1)
	// Timer fired and posted, but a new trigger lands before the post runs.
	gen := c.Trigger("b")
	q.drain()
	assert.Empty(t, *calls)

	clk.Step(300 * time.Millisecond)
	q.await(t, 1)
	q.drain()
	require.Len(t, *calls, 1)
	assert.Equal(t, call{gen: gen, payload: "b"}, (*calls)[0])
}

func TestFlush_Immediate(t *testing.T) {
	c, clk, q, calls := newChannel(t)

	assert.False(t, c.Flush())
	c.Trigger("now")
	assert.True(t, c.Flush())
	require.Len(t, *calls, 1)

	clk.Step(time.Second)
	q.drain()
	assert.Len(t, *calls, 1, "flushed request does not run again")
}

func TestInvalidate(t *testing.T) {
	c, clk, q, calls := newChannel(t)

	gen := c.Trigger("a")
	assert.True(t, c.Current(gen))
	c.Invalidate()
	assert.False(t, c.Current(gen))
	assert.Greater(t, c.Generation(), gen)

	clk.Step(time.Second)
	q.drain()
	assert.Empty(t, *calls)
}

func TestStop(t *testing.T) {
	c, clk, q, calls := newChannel(t)

	c.Trigger("a")
	c.Stop()
	c.Trigger("b")
	clk.Step(time.Second)
	q.drain()

	assert.Empty(t, *calls)
	assert.False(t, c.Current(c.Generation()))
	assert.Equal(t, "text-to-graph", c.Name())
}
