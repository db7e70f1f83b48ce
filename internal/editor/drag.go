package editor

import (
	"context"
	"fmt"

	"github.com/vk/flowgrid/internal/dnd"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
)

// resolveDrag computes the descriptor for one drag tick. Loop-only.
func (e *Editor) resolveDrag(in dnd.Input) dnd.Descriptor {
	if e.policy.CalculateDragDescriptor != nil {
		return e.policy.CalculateDragDescriptor(e.loopCtx, e, in)
	}
	return e.resolver.Resolve(e.model, in)
}

// StartDrag begins a drag gesture for node.
func (e *Editor) StartDrag(ctx context.Context, node string, from dnd.Provenance) error {
	return e.mutate(ctx, func(context.Context) error {
		if _, ok := e.model.Node(node); !ok {
			return &graph.NotFoundError{Kind: "node", ID: node}
		}
		return e.drag.Start(node, from)
	})
}

// Drag reports a pointer position during a gesture and returns the resolved
// drop descriptor.
func (e *Editor) Drag(ctx context.Context, pointer graph.Point, under *dnd.End) (dnd.Descriptor, error) {
	var d dnd.Descriptor
	err := e.loop.Call(ctx, func(context.Context) error {
		var err error
		d, _, err = e.drag.Drag(dnd.Input{Pointer: pointer, UnderPointer: under})
		return err
	})
	return d, err
}

// Drop ends the gesture and applies the last descriptor through the policy.
func (e *Editor) Drop(ctx context.Context) (dnd.Descriptor, error) {
	var d dnd.Descriptor
	err := e.mutate(ctx, func(ctx context.Context) error {
		var err error
		d, err = e.drag.Drop()
		if err != nil {
			return err
		}
		defer e.drag.Finish()
		return e.applyDrop(ctx, d)
	})
	return d, err
}

// CancelDrag abandons the gesture without touching the graph.
func (e *Editor) CancelDrag(ctx context.Context) error {
	return e.loop.Call(ctx, func(context.Context) error {
		e.drag.Cancel()
		return nil
	})
}

// DropFromPalette creates a node for the named element at the pointer and
// treats it as dropped there.
func (e *Editor) DropFromPalette(ctx context.Context, group metadata.Group, name string, at graph.Point) (*graph.Node, dnd.Descriptor, error) {
	var (
		created *graph.Node
		d       dnd.Descriptor
	)
	err := e.mutate(ctx, func(ctx context.Context) error {
		element, ok := e.catalog.Lookup(group, name)
		if !ok {
			return fmt.Errorf("%s/%s: %w", group, name, ErrNoElement)
		}
		n, err := e.model.AddNode(&graph.Node{
			Metadata: element,
			Position: at,
			Size:     e.renderer.NodeSize(element, nil),
		})
		if err != nil {
			return err
		}
		created = n.Clone()
		d = e.resolveDrag(dnd.Input{Dragged: n.ID, Pointer: at, Context: dnd.FromPalette})
		return e.applyDrop(ctx, d)
	})
	return created, d, err
}

func (e *Editor) applyDrop(ctx context.Context, d dnd.Descriptor) error {
	if !d.HasTarget() || e.policy.HandleNodeDropping == nil {
		return nil
	}
	if err := e.policy.HandleNodeDropping(ctx, e, d); err != nil {
		return fmt.Errorf("drop %s: %w", d, err)
	}
	return nil
}
