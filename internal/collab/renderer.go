package collab

import (
	"context"

	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
	"github.com/vk/flowgrid/internal/validation"
)

// HandleAction runs when a handle is used. It must be called with a context
// that is not tied to the editor loop, or from the loop with the loop's own
// context.
type HandleAction func(ctx context.Context) error

// HandleFactory creates an interaction handle for owner.
type HandleFactory func(owner, kind string, action HandleAction, at graph.Point)

// Handle kinds.
const (
	HandleRemove = "remove"
)

// Renderer lists the optional rendering capabilities.
type Renderer struct {
	// CreateNode returns the shape size for a new node of the element.
	CreateNode func(e *metadata.Element, props map[string]string) graph.Size
	// CreateLink is told about every link the editor creates.
	CreateLink func(l *graph.Link)
	// CreateHandle draws an interaction handle.
	CreateHandle HandleFactory
	// CreateDecoration displays the markers of one element. It is called with
	// an empty slice to clear a decoration.
	CreateDecoration func(id string, markers []validation.Marker)
	// Layout positions nodes.
	Layout func(ctx context.Context, v graph.View) (map[string]graph.Point, error)
	// IsSemanticProperty reports whether a property change affects text and
	// validation rather than presentation only.
	IsSemanticProperty func(path string) bool
	// RefreshVisuals is called after a property change.
	RefreshVisuals func(id, path string)
}

// NodeSize returns the size for a new node, using the default when the
// renderer has no CreateNode capability.
func (r *Renderer) NodeSize(e *metadata.Element, props map[string]string) graph.Size {
	if r == nil || r.CreateNode == nil {
		return graph.DefaultSize
	}
	if s := r.CreateNode(e, props); s != (graph.Size{}) {
		return s
	}
	return graph.DefaultSize
}

// Semantic reports whether a property path is semantic. Every property is
// semantic when the renderer does not say otherwise.
func (r *Renderer) Semantic(path string) bool {
	if r == nil || r.IsSemanticProperty == nil {
		return true
	}
	return r.IsSemanticProperty(path)
}
