package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vk/flowgrid/internal/dnd"
	"github.com/vk/flowgrid/internal/editor"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/testutil"
)

type emitted struct {
	event   string
	payload any
}

type fakeHub struct {
	mu       sync.Mutex
	handlers map[string]func(args ...any)
	emitted  []emitted
}

func (h *fakeHub) transport() Transport {
	return Transport{
		Emit: func(event string, payload any) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.emitted = append(h.emitted, emitted{event: event, payload: payload})
		},
		On: func(event string, handler func(args ...any)) {
			h.mu.Lock()
			defer h.mu.Unlock()
			if h.handlers == nil {
				h.handlers = map[string]func(args ...any){}
			}
			h.handlers[event] = handler
		},
	}
}

func (h *fakeHub) send(event string, args ...any) bool {
	h.mu.Lock()
	handler, ok := h.handlers[event]
	h.mu.Unlock()
	if ok {
		handler(args...)
	}
	return ok
}

func (h *fakeHub) events() []emitted {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]emitted(nil), h.emitted...)
}

type fakeTarget struct {
	mu     sync.Mutex
	calls  []string
	notify func(editor.Notification)
	err    error
}

func (f *fakeTarget) record(call string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
	return f.err
}

func (f *fakeTarget) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeTarget) Subscribe(fn func(editor.Notification)) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notify = fn
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.notify = nil
	}
}

func (f *fakeTarget) SetText(_ context.Context, text string) error {
	return f.record("set-text " + text)
}

func (f *fakeTarget) StartDrag(_ context.Context, node string, from dnd.Provenance) error {
	return f.record("start " + node + " " + string(from))
}

func (f *fakeTarget) Drag(_ context.Context, _ graph.Point, _ *dnd.End) (dnd.Descriptor, error) {
	return dnd.Descriptor{Source: dnd.NodeEnd("n", graph.PortOutput), Context: dnd.FromCanvas}, f.record("drag")
}

func (f *fakeTarget) Drop(context.Context) (dnd.Descriptor, error) {
	return dnd.Descriptor{}, f.record("drop")
}

func (f *fakeTarget) CancelDrag(context.Context) error { return f.record("cancel") }

func (f *fakeTarget) DeleteNode(_ context.Context, id string) error {
	return f.record("delete " + id)
}

func (f *fakeTarget) PerformLayout(context.Context) error { return f.record("layout") }

func startBridge(t *testing.T, target *fakeTarget) *fakeHub {
	t.Helper()
	hub := &fakeHub{}
	b := New(target, hub.transport(), testutil.NewLogger(&testutil.SafeBuffer{}))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		require.NoError(t, <-done)
	})

	require.Eventually(t, func() bool {
		target.mu.Lock()
		defer target.mu.Unlock()
		return target.notify != nil
	}, time.Second, time.Millisecond)
	return hub
}

func TestBridge_AppliesCommandsInOrder(t *testing.T) {
	target := &fakeTarget{}
	hub := startBridge(t, target)

	require.True(t, hub.send(EventSetText, map[string]any{"text": "node a {}"}))
	require.True(t, hub.send(EventDragStart, map[string]any{"node": "a"}))
	require.True(t, hub.send(EventDrag, map[string]any{"x": 1, "y": 2}))
	require.True(t, hub.send(EventDrop))
	require.True(t, hub.send(EventDelete, map[string]any{"node": "a"}))
	require.True(t, hub.send(EventLayout))

	want := []string{"set-text node a {}", "start a canvas", "drag", "drop", "delete a", "layout"}
	require.Eventually(t, func() bool { return len(target.Calls()) == len(want) }, time.Second, time.Millisecond)
	assert.Equal(t, want, target.Calls())

	events := hub.events()
	require.Len(t, events, 1)
	assert.Equal(t, EventDragTarget, events[0].event)
}

func TestBridge_ForwardsNotifications(t *testing.T) {
	target := &fakeTarget{}
	hub := startBridge(t, target)

	target.mu.Lock()
	notify := target.notify
	target.mu.Unlock()
	notify(editor.Notification{Kind: editor.TextChanged, Text: "node a {}"})
	notify(editor.Notification{Kind: editor.GraphChanged})

	events := hub.events()
	require.Len(t, events, 1)
	assert.Equal(t, EventTextChanged, events[0].event)
	assert.Equal(t, map[string]any{"text": "node a {}"}, events[0].payload)
}

func TestBridge_ReportsCommandErrors(t *testing.T) {
	target := &fakeTarget{err: errors.New("read-only")}
	hub := startBridge(t, target)

	require.True(t, hub.send(EventDelete, map[string]any{}))
	require.True(t, hub.send(EventLayout))

	require.Eventually(t, func() bool { return len(hub.events()) == 2 }, time.Second, time.Millisecond)
	events := hub.events()
	for _, e := range events {
		assert.Equal(t, EventCommandError, e.event)
	}
	assert.Equal(t, "layout", events[1].payload.(map[string]any)["event"])
	assert.Equal(t, "read-only", events[1].payload.(map[string]any)["error"])
	assert.Equal(t, []string{"layout"}, target.Calls(), "undecodable commands never reach the editor")
}
