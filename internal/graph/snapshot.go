package graph

// Snapshot is an immutable copy of a graph. It is safe to read from any
// goroutine.
type Snapshot struct {
	nodes     []*Node
	links     []*Link
	nodeIndex map[string]*Node
	linkIndex map[string]*Link
}

// NewSnapshot builds a snapshot from the given elements. Nodes and links are
// copied; order is preserved. Referential integrity is not checked here; it is
// enforced when the snapshot is applied with Model.Replace.
func NewSnapshot(nodes []*Node, links []*Link) *Snapshot {
	s := &Snapshot{
		nodes:     make([]*Node, 0, len(nodes)),
		links:     make([]*Link, 0, len(links)),
		nodeIndex: make(map[string]*Node, len(nodes)),
		linkIndex: make(map[string]*Link, len(links)),
	}
	for _, n := range nodes {
		c := n.Clone()
		s.nodes = append(s.nodes, c)
		s.nodeIndex[c.ID] = c
	}
	for _, l := range links {
		c := l.Clone()
		s.links = append(s.links, c)
		s.linkIndex[c.ID] = c
	}
	return s
}

// Nodes returns the nodes in insertion order.
func (s *Snapshot) Nodes() []*Node {
	if s == nil {
		return nil
	}
	return s.nodes
}

// Links returns the links in insertion order.
func (s *Snapshot) Links() []*Link {
	if s == nil {
		return nil
	}
	return s.links
}

func (s *Snapshot) Node(id string) (*Node, bool) {
	if s == nil {
		return nil, false
	}
	n, ok := s.nodeIndex[id]
	return n, ok
}

func (s *Snapshot) Link(id string) (*Link, bool) {
	if s == nil {
		return nil, false
	}
	l, ok := s.linkIndex[id]
	return l, ok
}

func (s *Snapshot) ConnectedLinks(id string, dir Direction) []*Link {
	if s == nil {
		return nil
	}
	return connected(s.links, id, dir)
}

// Empty reports whether the snapshot has no nodes and no links.
func (s *Snapshot) Empty() bool {
	return s == nil || (len(s.nodes) == 0 && len(s.links) == 0)
}
