package collab

import (
	"context"

	"github.com/vk/flowgrid/internal/dnd"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
	"github.com/vk/flowgrid/internal/topology"
	"github.com/vk/flowgrid/internal/validation"
)

// Context is what the editor exposes to policy functions.
type Context interface {
	Graph() graph.View
	Catalog() metadata.Catalog
	Topology() *topology.Editor

	CreateNode(ctx context.Context, e *metadata.Element, props map[string]string, at graph.Point) (*graph.Node, error)
	CreateLink(ctx context.Context, source, target string) (*graph.Link, error)
	DeleteSelectedNode(ctx context.Context) error
	PerformLayout(ctx context.Context) error
	PostValidation()
	ClearGraph(ctx context.Context) error

	ZoomPercent() int
	SetZoomPercent(percent int)
	GridSize() int
	SetGridSize(size int)
	ReadOnly() bool
	SetReadOnly(readOnly bool)
}

// Policy lists the optional editor behaviours.
type Policy struct {
	// CalculateDragDescriptor replaces the built-in drop target resolution.
	CalculateDragDescriptor func(ctx context.Context, ec Context, in dnd.Input) dnd.Descriptor
	// HandleNodeDropping applies a drop. Without it a drop only moves the node.
	HandleNodeDropping func(ctx context.Context, ec Context, d dnd.Descriptor) error
	// ValidatePort reports whether a connector may take part in a new link.
	ValidatePort func(ec Context, node string, port graph.Port) bool
	// ValidateLink reports whether a link may be created.
	ValidateLink func(ec Context, source, target graph.Endpoint) bool
	// PreDelete runs before a node is removed, in the same atomic burst.
	PreDelete func(ctx context.Context, ec Context, id string) error
	// SetDefaultContent populates a cleared graph.
	SetDefaultContent func(ctx context.Context, ec Context, catalog metadata.Catalog) error
	// CreateHandles creates the handles of a selected node.
	CreateHandles func(ctx context.Context, ec Context, create HandleFactory, owner string)
	// Validate replaces the built-in validation rules. Called off the editor
	// loop on a snapshot.
	Validate func(ctx context.Context, v graph.View) (validation.Markers, error)
	// ShowDragFeedback and HideDragFeedback highlight the current drop target.
	ShowDragFeedback func(ec Context, d dnd.Descriptor)
	HideDragFeedback func(ec Context, d dnd.Descriptor)
	// AllowDuplicateLinks permits several links between the same ports.
	AllowDuplicateLinks bool
}

// handleOffset places the remove handle just past the node's bottom-right corner.
const handleOffset = 3

// DefaultPolicy returns the behaviour of the reference flow editor: drops on
// ports insert the node into the chain, drops on links splice it in, links
// only run from an output to an input of another node, deletion repairs the
// chain and a selected node gets a remove handle.
func DefaultPolicy() *Policy {
	return &Policy{
		HandleNodeDropping: func(ctx context.Context, ec Context, d dnd.Descriptor) error {
			_, err := ec.Topology().HandleDrop(d)
			return err
		},
		ValidatePort: func(Context, string, graph.Port) bool { return true },
		ValidateLink: func(_ Context, source, target graph.Endpoint) bool {
			if source.Port == graph.PortInput || target.Port == graph.PortOutput {
				return false
			}
			return source.Node != target.Node
		},
		PreDelete: func(_ context.Context, ec Context, id string) error {
			return ec.Topology().RepairDamage(id)
		},
		CreateHandles: func(_ context.Context, ec Context, create HandleFactory, owner string) {
			n, ok := ec.Graph().Node(owner)
			if !ok {
				return
			}
			at := graph.Point{
				X: n.Position.X + n.Size.W + handleOffset,
				Y: n.Position.Y + n.Size.H + handleOffset,
			}
			create(owner, HandleRemove, ec.DeleteSelectedNode, at)
		},
	}
}
