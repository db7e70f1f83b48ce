package dnd

import (
	"math"

	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
	"github.com/vk/flowgrid/internal/spatial"
)

// DefaultRadius is the proximity range used when none is configured.
const DefaultRadius = 30.0

// Input is the drag state at one tick.
type Input struct {
	// Dragged is the id of the node being dragged.
	Dragged string
	// Pointer is the current pointer position on the canvas.
	Pointer graph.Point
	// UnderPointer is the element directly under the pointer, if any.
	UnderPointer *End
	Context      Provenance
}

// Resolver computes drag descriptors.
type Resolver struct {
	Radius float64
}

// NewResolver returns a resolver with the given radius, or DefaultRadius when
// radius is not positive.
func NewResolver(radius float64) *Resolver {
	if radius <= 0 {
		radius = DefaultRadius
	}
	return &Resolver{Radius: radius}
}

// Resolve computes the descriptor for one tick. It does not modify v.
func (r *Resolver) Resolve(v graph.View, in Input) Descriptor {
	dragged, ok := v.Node(in.Dragged)
	if !ok {
		return Descriptor{Context: in.Context}
	}
	source := &End{Kind: graph.KindNode, ID: dragged.ID}

	capacity := dragged.Capacity()
	if !capacity.WantsIncoming() && !capacity.WantsOutgoing() {
		return Descriptor{Context: in.Context}
	}

	radius := r.Radius
	if radius <= 0 {
		radius = DefaultRadius
	}

	var best *End
	bestDistance := math.MaxFloat64
	for _, cand := range spatial.FromView(v).Near(in.Pointer, radius) {
		if cand.ID == dragged.ID {
			continue
		}
		for _, port := range []graph.Port{graph.PortInput, graph.PortOutput} {
			if port == graph.PortInput && !capacity.WantsOutgoing() {
				continue
			}
			if port == graph.PortOutput && !capacity.WantsIncoming() {
				continue
			}
			if !hasRoom(v, cand, port) || !takesOver(v, cand, port, capacity) {
				continue
			}
			d := spatial.Distance(in.Pointer, cand.Anchor(port))
			if d < radius && d < bestDistance {
				bestDistance = d
				best = &End{Kind: graph.KindNode, ID: cand.ID, Port: port}
			}
		}
	}

	if best != nil {
		source.Port = opposite(best.Port)
		return Descriptor{Source: source, Target: best, Context: in.Context, Range: bestDistance}
	}

	if in.UnderPointer != nil && in.UnderPointer.Kind == graph.KindLink &&
		dragged.Group() == metadata.GroupProcessor &&
		len(v.ConnectedLinks(dragged.ID, graph.Any)) == 0 {
		if _, ok := v.Link(in.UnderPointer.ID); ok {
			return Descriptor{Source: source, Target: LinkEnd(in.UnderPointer.ID), Context: in.Context}
		}
	}

	return Descriptor{Source: source, Context: in.Context}
}

// hasRoom reports whether the candidate exposes the connector and is not
// already over its capacity on it. This is not a remaining-capacity check:
// inserting next to a node rewires its existing links instead of adding one,
// so a connector that is exactly full still qualifies.
func hasRoom(v graph.View, n *graph.Node, port graph.Port) bool {
	c := n.Capacity()
	if port == graph.PortInput {
		return c.In > 0 && len(v.ConnectedLinks(n.ID, graph.Inbound)) <= c.In
	}
	return c.Out > 0 && len(v.ConnectedLinks(n.ID, graph.Outbound)) <= c.Out
}

// takesOver reports whether the dragged node, with capacity c, can inherit the
// links the candidate hands over when it is inserted on that connector: the
// candidate's outbound links for its output, its inbound links for its input.
func takesOver(v graph.View, n *graph.Node, port graph.Port, c metadata.Capacity) bool {
	if port == graph.PortOutput {
		return len(v.ConnectedLinks(n.ID, graph.Outbound)) <= c.Out
	}
	return len(v.ConnectedLinks(n.ID, graph.Inbound)) <= c.In
}

func opposite(p graph.Port) graph.Port {
	if p == graph.PortInput {
		return graph.PortOutput
	}
	return graph.PortInput
}
