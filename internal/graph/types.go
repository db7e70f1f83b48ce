package graph

import (
	"maps"
	"slices"
	"sort"

	"github.com/vk/flowgrid/internal/metadata"
)

// Port names a connector on a node.
type Port string

const (
	PortInput  Port = "input"
	PortOutput Port = "output"
)

// Point is a canvas position.
type Point struct {
	X float64
	Y float64
}

// Size is the extent of a node's shape.
type Size struct {
	W float64
	H float64
}

// DefaultSize is used for nodes created without an explicit size.
var DefaultSize = Size{W: 120, H: 35}

// Direction selects which links ConnectedLinks returns.
type Direction int

const (
	Any Direction = iota
	Inbound
	Outbound
)

func (d Direction) String() string {
	switch d {
	case Inbound:
		return "inbound"
	case Outbound:
		return "outbound"
	default:
		return "any"
	}
}

// Endpoint is one end of a link. An empty Node means the end is dangling.
type Endpoint struct {
	Node string
	Port Port
}

// Dangling reports whether the endpoint is not attached to a node.
func (e Endpoint) Dangling() bool { return e.Node == "" }

// TextPos is a 1-based position in the DSL text.
type TextPos struct {
	Line   int
	Column int
}

// TextRange locates an element in the DSL text it was parsed from.
type TextRange struct {
	Start TextPos
	End   TextPos
}

// Node is a typed processing stage.
type Node struct {
	ID       string
	Metadata *metadata.Element
	Props    map[string]string
	Position Point
	Size     Size
	// Range is where the node was declared in text, when it came from text.
	Range *TextRange
}

// Group returns the node's element group, or processor when it has no metadata.
func (n *Node) Group() metadata.Group {
	if n.Metadata == nil {
		return metadata.GroupProcessor
	}
	return n.Metadata.Group
}

// Name returns the element name of the node.
func (n *Node) Name() string {
	if n.Metadata == nil {
		return ""
	}
	return n.Metadata.Name
}

// Capacity returns how many links each of the node's connectors accepts.
func (n *Node) Capacity() metadata.Capacity {
	return metadata.CapacityFor(n.Metadata)
}

// Anchor returns the canvas position of a connector: the middle of the left
// edge for the input and of the right edge for the output.
func (n *Node) Anchor(p Port) Point {
	y := n.Position.Y + n.Size.H/2
	if p == PortOutput {
		return Point{X: n.Position.X + n.Size.W, Y: y}
	}
	return Point{X: n.Position.X, Y: y}
}

// PropKeys returns the node's property keys in sorted order.
func (n *Node) PropKeys() []string {
	keys := slices.Collect(maps.Keys(n.Props))
	sort.Strings(keys)
	return keys
}

// Clone returns a copy of the node. Metadata is shared; it is read-only.
func (n *Node) Clone() *Node {
	c := *n
	c.Props = maps.Clone(n.Props)
	if c.Props == nil {
		c.Props = map[string]string{}
	}
	return &c
}

// Link is a directed data-flow edge from an output port to an input port.
type Link struct {
	ID     string
	Source Endpoint
	Target Endpoint
	Props  map[string]string
}

// Clone returns a copy of the link.
func (l *Link) Clone() *Link {
	c := *l
	c.Props = maps.Clone(l.Props)
	return &c
}

// Touches reports whether either end of the link is attached to the node.
func (l *Link) Touches(nodeID string) bool {
	return l.Source.Node == nodeID || l.Target.Node == nodeID
}

// View is the read-only query surface shared by the live Model and Snapshots.
// Returned values must not be modified.
type View interface {
	Nodes() []*Node
	Links() []*Link
	Node(id string) (*Node, bool)
	Link(id string) (*Link, bool)
	ConnectedLinks(id string, dir Direction) []*Link
}

func connected(links []*Link, id string, dir Direction) []*Link {
	var out []*Link
	for _, l := range links {
		switch dir {
		case Inbound:
			if l.Target.Node == id {
				out = append(out, l)
			}
		case Outbound:
			if l.Source.Node == id {
				out = append(out, l)
			}
		default:
			if l.Touches(id) {
				out = append(out, l)
			}
		}
	}
	return out
}
