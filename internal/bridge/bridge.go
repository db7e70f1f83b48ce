package bridge

import (
	"context"
	"log/slog"

	"github.com/vk/flowgrid/internal/dnd"
	"github.com/vk/flowgrid/internal/editor"
	"github.com/vk/flowgrid/internal/graph"
)

// Target is the part of the editor the bridge drives.
type Target interface {
	Subscribe(fn func(editor.Notification)) (unsubscribe func())
	SetText(ctx context.Context, text string) error
	StartDrag(ctx context.Context, node string, from dnd.Provenance) error
	Drag(ctx context.Context, pointer graph.Point, under *dnd.End) (dnd.Descriptor, error)
	Drop(ctx context.Context) (dnd.Descriptor, error)
	CancelDrag(ctx context.Context) error
	DeleteNode(ctx context.Context, id string) error
	PerformLayout(ctx context.Context) error
}

// Transport carries events to and from the hub.
type Transport struct {
	Emit func(event string, payload any)
	On   func(event string, handler func(args ...any))
}

type inbound struct {
	event string
	args  []any
}

// Bridge forwards editor notifications and applies remote commands.
type Bridge struct {
	target    Target
	transport Transport
	logger    *slog.Logger
	inbox     chan inbound
}

// New creates a bridge. Nothing is exchanged until Run is called.
func New(target Target, transport Transport, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		target:    target,
		transport: transport,
		logger:    logger.With("component", "bridge"),
		inbox:     make(chan inbound, 256),
	}
}

// Run registers the inbound handlers, forwards notifications and applies
// commands until ctx is cancelled.
func (b *Bridge) Run(ctx context.Context) error {
	for _, event := range []string{EventSetText, EventDragStart, EventDrag, EventDrop, EventDragCancel, EventDelete, EventLayout} {
		event := event
		b.transport.On(event, func(args ...any) {
			select {
			case b.inbox <- inbound{event: event, args: args}:
			case <-ctx.Done():
			}
		})
	}

	unsubscribe := b.target.Subscribe(b.forward)
	defer unsubscribe()

	b.logger.Info("Bridge started.")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Bridge stopped.")
			return nil
		case in := <-b.inbox:
			b.handle(ctx, in)
		}
	}
}

func (b *Bridge) forward(n editor.Notification) {
	event, payload, ok := Encode(n)
	if !ok {
		return
	}
	b.transport.Emit(event, payload)
}

func (b *Bridge) handle(ctx context.Context, in inbound) {
	cmd, err := Decode(in.event, in.args...)
	if err == nil {
		err = b.Apply(ctx, cmd)
	}
	if err != nil {
		b.logger.Warn("Command failed.", "event", in.event, "error", err)
		b.transport.Emit(EventCommandError, map[string]any{"event": in.event, "error": err.Error()})
	}
}

// Apply runs one decoded command against the target.
func (b *Bridge) Apply(ctx context.Context, cmd Command) error {
	b.logger.Debug("Applying command.", "event", cmd.Event)
	switch cmd.Event {
	case EventSetText:
		return b.target.SetText(ctx, cmd.Text)
	case EventDragStart:
		return b.target.StartDrag(ctx, cmd.Node, cmd.Context)
	case EventDrag:
		d, err := b.target.Drag(ctx, cmd.Pointer, cmd.Under)
		if err != nil {
			return err
		}
		b.transport.Emit(EventDragTarget, EncodeDescriptor(d))
		return nil
	case EventDrop:
		_, err := b.target.Drop(ctx)
		return err
	case EventDragCancel:
		return b.target.CancelDrag(ctx)
	case EventDelete:
		return b.target.DeleteNode(ctx, cmd.Node)
	case EventLayout:
		return b.target.PerformLayout(ctx)
	}
	return ErrUnknownEvent
}
