// Package spatial answers proximity queries over node shapes with an R-tree.
//
// The drag-and-drop resolver needs every node whose bounds come within a
// radius of the pointer. An Index is built from a graph view once per query
// batch and is immutable afterwards.
package spatial

import (
	"math"
	"sort"

	"github.com/dhconnelly/rtreego"
	"github.com/vk/flowgrid/internal/graph"
)

const (
	minChildren = 2
	maxChildren = 8
	// epsilon gives zero-extent query boxes a positive size, which rtreego requires.
	epsilon = 1e-6
)

type entry struct {
	node  *graph.Node
	order int
	rect  rtreego.Rect
}

func (e *entry) Bounds() rtreego.Rect { return e.rect }

// Index is an R-tree over the bounds of a set of nodes.
type Index struct {
	tree  *rtreego.Rtree
	count int
}

// Build indexes the given nodes. Slice order is remembered and used to order
// query results.
func Build(nodes []*graph.Node) *Index {
	idx := &Index{tree: rtreego.NewTree(2, minChildren, maxChildren)}
	for i, n := range nodes {
		r, err := rectOf(n.Position.X, n.Position.Y, n.Size.W, n.Size.H)
		if err != nil {
			continue
		}
		idx.tree.Insert(&entry{node: n, order: i, rect: r})
		idx.count++
	}
	return idx
}

// FromView indexes every node of a view.
func FromView(v graph.View) *Index {
	return Build(v.Nodes())
}

// Len returns the number of indexed nodes.
func (idx *Index) Len() int { return idx.count }

// Near returns the nodes whose bounds intersect the 2r x 2r box centred on p,
// in build order.
func (idx *Index) Near(p graph.Point, r float64) []*graph.Node {
	if r <= 0 {
		r = epsilon
	}
	box, err := rectOf(p.X-r, p.Y-r, 2*r, 2*r)
	if err != nil {
		return nil
	}
	return idx.search(box)
}

// At returns the nodes whose bounds contain p, in build order.
func (idx *Index) At(p graph.Point) []*graph.Node {
	box, err := rectOf(p.X, p.Y, epsilon, epsilon)
	if err != nil {
		return nil
	}
	return idx.search(box)
}

func (idx *Index) search(box rtreego.Rect) []*graph.Node {
	hits := idx.tree.SearchIntersect(box)
	entries := make([]*entry, 0, len(hits))
	for _, h := range hits {
		entries = append(entries, h.(*entry))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].order < entries[j].order })
	out := make([]*graph.Node, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.node)
	}
	return out
}

func rectOf(x, y, w, h float64) (rtreego.Rect, error) {
	return rtreego.NewRect(rtreego.Point{x, y}, []float64{math.Max(w, epsilon), math.Max(h, epsilon)})
}

// Distance is the Euclidean distance between two points.
func Distance(a, b graph.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// LinkAt returns the first link, in view order, whose straight segment from
// source output anchor to target input anchor passes within tolerance of p.
func LinkAt(v graph.View, p graph.Point, tolerance float64) (*graph.Link, bool) {
	for _, l := range v.Links() {
		src, ok := v.Node(l.Source.Node)
		if !ok {
			continue
		}
		dst, ok := v.Node(l.Target.Node)
		if !ok {
			continue
		}
		if segmentDistance(p, src.Anchor(graph.PortOutput), dst.Anchor(graph.PortInput)) <= tolerance {
			return l, true
		}
	}
	return nil, false
}

func segmentDistance(p, a, b graph.Point) float64 {
	dx, dy := b.X-a.X, b.Y-a.Y
	lenSq := dx*dx + dy*dy
	if lenSq == 0 {
		return Distance(p, a)
	}
	t := ((p.X-a.X)*dx + (p.Y-a.Y)*dy) / lenSq
	t = math.Max(0, math.Min(1, t))
	return Distance(p, graph.Point{X: a.X + t*dx, Y: a.Y + t*dy})
}
