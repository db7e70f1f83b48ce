package editor

import (
	"context"
	"fmt"
	"maps"

	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
	"github.com/vk/flowgrid/internal/validation"
)

// mutate runs fn on the loop unless the editor is read-only.
func (e *Editor) mutate(ctx context.Context, fn func(ctx context.Context) error) error {
	if e.ReadOnly() {
		return ErrReadOnly
	}
	return e.loop.Call(ctx, fn)
}

// SetText replaces the text. The graph is rebuilt once the text has been
// quiet for the debounce window.
func (e *Editor) SetText(ctx context.Context, text string) error {
	return e.mutate(ctx, func(context.Context) error {
		e.sync.SetText(text)
		return nil
	})
}

// Text returns the current text.
func (e *Editor) Text(ctx context.Context) (string, error) {
	var text string
	err := e.loop.Call(ctx, func(context.Context) error {
		text = e.sync.Text()
		return nil
	})
	return text, err
}

// Markers returns the current validation markers.
func (e *Editor) Markers(ctx context.Context) (validation.Markers, error) {
	var markers validation.Markers
	err := e.loop.Call(ctx, func(context.Context) error {
		markers = e.sync.Markers()
		return nil
	})
	return markers, err
}

// Snapshot returns a copy of the graph.
func (e *Editor) Snapshot(ctx context.Context) (*graph.Snapshot, error) {
	var snap *graph.Snapshot
	err := e.loop.Call(ctx, func(context.Context) error {
		snap = e.model.Snapshot()
		return nil
	})
	return snap, err
}

// Settle runs pending synchronization immediately and waits until text, graph
// and markers are consistent.
func (e *Editor) Settle(ctx context.Context) error {
	return e.sync.Settle(ctx)
}

// SetGraphToTextSync enables or disables text regeneration from the graph.
func (e *Editor) SetGraphToTextSync(ctx context.Context, enabled bool) error {
	return e.loop.Call(ctx, func(context.Context) error {
		e.sync.SetGraphToTextSync(enabled)
		return nil
	})
}

// PostValidation schedules a validation pass.
func (e *Editor) PostValidation() {
	e.loop.Post(func(context.Context) { e.sync.PostValidation() })
}

// CreateNode adds a node for element at the given position.
func (e *Editor) CreateNode(ctx context.Context, element *metadata.Element, props map[string]string, at graph.Point) (*graph.Node, error) {
	if element == nil {
		return nil, fmt.Errorf("create node: %w", ErrNoElement)
	}
	var created *graph.Node
	err := e.mutate(ctx, func(context.Context) error {
		n, err := e.model.AddNode(&graph.Node{
			Metadata: element,
			Props:    maps.Clone(props),
			Position: at,
			Size:     e.renderer.NodeSize(element, props),
		})
		if err != nil {
			return fmt.Errorf("create node %q: %w", element.Name, err)
		}
		created = n.Clone()
		return nil
	})
	return created, err
}

// CreateLink links the output of source to the input of target. A link
// refused by the policy yields a nil link and no error.
func (e *Editor) CreateLink(ctx context.Context, source, target string) (*graph.Link, error) {
	var created *graph.Link
	err := e.mutate(ctx, func(context.Context) error {
		l, ok, err := e.topology.CreateLink(source, target)
		if err != nil {
			return err
		}
		if !ok {
			e.logger.Debug("Link rejected by policy.", "source", source, "target", target)
			return nil
		}
		created = l.Clone()
		return nil
	})
	return created, err
}

// RemoveLink deletes a link.
func (e *Editor) RemoveLink(ctx context.Context, id string) error {
	return e.mutate(ctx, func(context.Context) error {
		return e.model.RemoveLink(id)
	})
}

// MoveNode repositions a node.
func (e *Editor) MoveNode(ctx context.Context, id string, to graph.Point) error {
	return e.mutate(ctx, func(context.Context) error {
		return e.model.MoveNode(id, to)
	})
}

// SetProperty sets a node property; an empty value removes it.
func (e *Editor) SetProperty(ctx context.Context, id, key, value string) error {
	return e.mutate(ctx, func(context.Context) error {
		return e.model.SetProperty(id, key, value)
	})
}

// Select makes id the selected node and asks the policy for its handles. An
// empty id clears the selection.
func (e *Editor) Select(ctx context.Context, id string) error {
	return e.loop.Call(ctx, func(ctx context.Context) error {
		if id == "" {
			e.selection = ""
			return nil
		}
		if _, ok := e.model.Node(id); !ok {
			return &graph.NotFoundError{Kind: "node", ID: id}
		}
		e.selection = id
		if e.policy.CreateHandles != nil && e.renderer != nil && e.renderer.CreateHandle != nil && !e.ReadOnly() {
			e.policy.CreateHandles(ctx, e, e.renderer.CreateHandle, id)
		}
		return nil
	})
}

// Selection returns the selected node id, or "" when nothing is selected.
func (e *Editor) Selection(ctx context.Context) (string, error) {
	var id string
	err := e.loop.Call(ctx, func(context.Context) error {
		id = e.selection
		return nil
	})
	return id, err
}

// DeleteSelectedNode deletes the selected node after running the policy's
// pre-delete hook.
func (e *Editor) DeleteSelectedNode(ctx context.Context) error {
	return e.mutate(ctx, func(context.Context) error {
		if e.selection == "" {
			return ErrNoSelection
		}
		return e.topology.DeleteNode(e.selection)
	})
}

// DeleteNode deletes a node after running the policy's pre-delete hook.
func (e *Editor) DeleteNode(ctx context.Context, id string) error {
	return e.mutate(ctx, func(context.Context) error {
		return e.topology.DeleteNode(id)
	})
}

// ClearGraph empties the graph and lets the policy fill in default content.
func (e *Editor) ClearGraph(ctx context.Context) error {
	return e.mutate(ctx, func(ctx context.Context) error {
		e.model.Clear()
		if e.policy.SetDefaultContent == nil {
			return nil
		}
		if err := e.policy.SetDefaultContent(ctx, e, e.catalog); err != nil {
			return fmt.Errorf("set default content: %w", err)
		}
		return nil
	})
}
