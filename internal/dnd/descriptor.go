package dnd

import (
	"fmt"

	"github.com/vk/flowgrid/internal/graph"
)

// Provenance tells where a drag started.
type Provenance string

const (
	FromCanvas  Provenance = "canvas"
	FromPalette Provenance = "palette"
)

// End identifies one side of a descriptor: an element and, for nodes, the
// connector involved.
type End struct {
	Kind graph.ElementKind
	ID   string
	Port graph.Port
}

func (e *End) String() string {
	if e == nil {
		return "<none>"
	}
	if e.Port == "" {
		return fmt.Sprintf("%s:%s", e.Kind, e.ID)
	}
	return fmt.Sprintf("%s:%s.%s", e.Kind, e.ID, e.Port)
}

// NodeEnd is a shorthand for a node end.
func NodeEnd(id string, port graph.Port) *End {
	return &End{Kind: graph.KindNode, ID: id, Port: port}
}

// LinkEnd is a shorthand for a link end.
func LinkEnd(id string) *End {
	return &End{Kind: graph.KindLink, ID: id}
}

func endEqual(a, b *End) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Descriptor is the result of resolving one drag tick.
type Descriptor struct {
	Source  *End
	Target  *End
	Context Provenance
	// Range is the pointer distance to the chosen connector. Zero when the
	// target is a link or absent.
	Range float64
}

// Equal compares descriptors by element identity and connector. Range is
// ignored so that pointer jitter around the same connector compares equal.
func (d Descriptor) Equal(o Descriptor) bool {
	return d.Context == o.Context && endEqual(d.Source, o.Source) && endEqual(d.Target, o.Target)
}

// HasTarget reports whether the descriptor resolved an actionable target.
func (d Descriptor) HasTarget() bool { return d.Target != nil }

// Empty reports whether the descriptor carries nothing at all.
func (d Descriptor) Empty() bool { return d.Source == nil && d.Target == nil }

func (d Descriptor) String() string {
	return fmt.Sprintf("%s -> %s (%s)", d.Source, d.Target, d.Context)
}
