package graph

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
)

// Option configures a Model.
type Option func(*Model)

// WithDuplicateLinks allows more than one link between the same pair of ports.
func WithDuplicateLinks() Option {
	return func(m *Model) { m.allowDuplicates = true }
}

// WithIDGenerator replaces the uuid-based id generator. Used by tests that
// need predictable ids.
func WithIDGenerator(gen func() string) Option {
	return func(m *Model) { m.newID = gen }
}

type state struct {
	nodes     map[string]*Node
	nodeOrder []string
	links     map[string]*Link
	linkOrder []string
}

func (s state) clone() state {
	c := state{
		nodes:     make(map[string]*Node, len(s.nodes)),
		nodeOrder: slices.Clone(s.nodeOrder),
		links:     make(map[string]*Link, len(s.links)),
		linkOrder: slices.Clone(s.linkOrder),
	}
	for id, n := range s.nodes {
		c.nodes[id] = n.Clone()
	}
	for id, l := range s.links {
		c.links[id] = l.Clone()
	}
	return c
}

type subscription struct {
	id int
	fn func(Event)
}

// Model is the live, mutable flow graph of an editor session.
type Model struct {
	state

	allowDuplicates bool
	newID           func() string

	subs    []subscription
	nextSub int

	depth   int
	pending []Event
}

// New creates an empty model.
func New(opts ...Option) *Model {
	m := &Model{
		state: state{
			nodes: map[string]*Node{},
			links: map[string]*Link{},
		},
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// AllowsDuplicateLinks reports whether the model was built WithDuplicateLinks.
func (m *Model) AllowsDuplicateLinks() bool { return m.allowDuplicates }

// Subscribe registers fn for every subsequent event. The returned function
// removes the subscription.
func (m *Model) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.nextSub++
	id := m.nextSub
	m.subs = append(m.subs, subscription{id: id, fn: fn})
	return func() {
		m.subs = slices.DeleteFunc(m.subs, func(s subscription) bool { return s.id == id })
	}
}

func (m *Model) emit(e Event) {
	if m.depth > 0 {
		m.pending = append(m.pending, e)
		return
	}
	m.deliver([]Event{e})
}

func (m *Model) deliver(events []Event) {
	subs := slices.Clone(m.subs)
	for _, e := range events {
		for _, s := range subs {
			s.fn(e)
		}
	}
}

// Atomic runs fn with event delivery deferred until it returns. If fn returns
// an error or panics, the model is restored to its state before the call and
// the events it produced are dropped. Calls may be nested.
func (m *Model) Atomic(fn func() error) (err error) {
	saved := m.state.clone()
	mark := len(m.pending)
	m.depth++

	defer func() {
		m.depth--
		r := recover()
		if r != nil || err != nil {
			m.state = saved
			m.pending = m.pending[:mark]
		}
		if m.depth == 0 && len(m.pending) > 0 {
			events := m.pending
			m.pending = nil
			if r == nil {
				m.deliver(events)
			}
		}
		if r != nil {
			panic(r)
		}
	}()

	return fn()
}

// Nodes returns the nodes in insertion order.
func (m *Model) Nodes() []*Node {
	out := make([]*Node, 0, len(m.nodeOrder))
	for _, id := range m.nodeOrder {
		out = append(out, m.nodes[id])
	}
	return out
}

// Links returns the links in insertion order.
func (m *Model) Links() []*Link {
	out := make([]*Link, 0, len(m.linkOrder))
	for _, id := range m.linkOrder {
		out = append(out, m.links[id])
	}
	return out
}

func (m *Model) Node(id string) (*Node, bool) {
	n, ok := m.nodes[id]
	return n, ok
}

func (m *Model) Link(id string) (*Link, bool) {
	l, ok := m.links[id]
	return l, ok
}

// ConnectedLinks returns the links attached to a node, in insertion order.
func (m *Model) ConnectedLinks(id string, dir Direction) []*Link {
	return connected(m.Links(), id, dir)
}

// Len returns the number of nodes and links.
func (m *Model) Len() (nodes, links int) {
	return len(m.nodeOrder), len(m.linkOrder)
}

// AddNode inserts a copy of n. A missing id is generated and a zero size is
// replaced by DefaultSize. The stored node is returned.
func (m *Model) AddNode(n *Node) (*Node, error) {
	c := n.Clone()
	if c.ID == "" {
		c.ID = m.newID()
	}
	if _, exists := m.nodes[c.ID]; exists {
		return nil, fmt.Errorf("node %q: %w", c.ID, ErrDuplicateID)
	}
	if c.Size == (Size{}) {
		c.Size = DefaultSize
	}
	m.nodes[c.ID] = c
	m.nodeOrder = append(m.nodeOrder, c.ID)
	m.emit(Event{Kind: EventAdded, Element: KindNode, ID: c.ID})
	return c, nil
}

// RemoveNode removes a node together with every link attached to it. Link
// removals are announced before the node removal, in one burst.
func (m *Model) RemoveNode(id string) error {
	if _, ok := m.nodes[id]; !ok {
		return nodeNotFound(id)
	}
	return m.Atomic(func() error {
		for _, l := range m.ConnectedLinks(id, Any) {
			if err := m.RemoveLink(l.ID); err != nil {
				return err
			}
		}
		delete(m.nodes, id)
		m.nodeOrder = slices.DeleteFunc(m.nodeOrder, func(s string) bool { return s == id })
		m.emit(Event{Kind: EventRemoved, Element: KindNode, ID: id})
		return nil
	})
}

// AddLink inserts a link between two existing nodes. Empty ports default to
// output on the source and input on the target.
func (m *Model) AddLink(l Link) (*Link, error) {
	if l.Source.Dangling() || l.Target.Dangling() {
		return nil, ErrDanglingLink
	}
	if _, ok := m.nodes[l.Source.Node]; !ok {
		return nil, nodeNotFound(l.Source.Node)
	}
	if _, ok := m.nodes[l.Target.Node]; !ok {
		return nil, nodeNotFound(l.Target.Node)
	}
	if l.Source.Port == "" {
		l.Source.Port = PortOutput
	}
	if l.Target.Port == "" {
		l.Target.Port = PortInput
	}
	if l.ID == "" {
		l.ID = m.newID()
	}
	if _, exists := m.links[l.ID]; exists {
		return nil, fmt.Errorf("link %q: %w", l.ID, ErrDuplicateID)
	}
	if !m.allowDuplicates {
		for _, other := range m.links {
			if other.Source == l.Source && other.Target == l.Target {
				return nil, fmt.Errorf("%s -> %s: %w", l.Source.Node, l.Target.Node, ErrDuplicateLink)
			}
		}
	}

	c := l.Clone()
	m.links[c.ID] = c
	m.linkOrder = append(m.linkOrder, c.ID)

	m.withBurst(func() {
		m.emit(Event{Kind: EventAdded, Element: KindLink, ID: c.ID, Link: c.Clone()})
		m.emit(Event{Kind: EventConnectedChanged, Element: KindNode, ID: c.Source.Node, Link: c.Clone()})
		m.emit(Event{Kind: EventConnectedChanged, Element: KindNode, ID: c.Target.Node, Link: c.Clone()})
	})
	return c, nil
}

// RemoveLink removes a link by id.
func (m *Model) RemoveLink(id string) error {
	l, ok := m.links[id]
	if !ok {
		return linkNotFound(id)
	}
	delete(m.links, id)
	m.linkOrder = slices.DeleteFunc(m.linkOrder, func(s string) bool { return s == id })

	m.withBurst(func() {
		m.emit(Event{Kind: EventRemoved, Element: KindLink, ID: id, Link: l.Clone()})
		m.emit(Event{Kind: EventConnectedChanged, Element: KindNode, ID: l.Source.Node, Link: l.Clone()})
		m.emit(Event{Kind: EventConnectedChanged, Element: KindNode, ID: l.Target.Node, Link: l.Clone()})
	})
	return nil
}

// MoveNode sets the canvas position of a node.
func (m *Model) MoveNode(id string, p Point) error {
	n, ok := m.nodes[id]
	if !ok {
		return nodeNotFound(id)
	}
	if n.Position == p {
		return nil
	}
	n.Position = p
	m.emit(Event{Kind: EventMoved, Element: KindNode, ID: id})
	return nil
}

// SetProperty sets a node property. An empty value removes it.
func (m *Model) SetProperty(id, key, value string) error {
	n, ok := m.nodes[id]
	if !ok {
		return nodeNotFound(id)
	}
	old, had := n.Props[key]
	if value == "" {
		if !had {
			return nil
		}
		delete(n.Props, key)
	} else {
		if had && old == value {
			return nil
		}
		n.Props[key] = value
	}
	m.emit(Event{Kind: EventPropertyChanged, Element: KindNode, ID: id, Property: key})
	return nil
}

// Clear removes every node and link and emits a single EventCleared.
func (m *Model) Clear() {
	m.state = state{
		nodes: map[string]*Node{},
		links: map[string]*Link{},
	}
	m.emit(Event{Kind: EventCleared})
}

// Snapshot returns a deep copy of the current graph.
func (m *Model) Snapshot() *Snapshot {
	return NewSnapshot(m.Nodes(), m.Links())
}

// Replace clears the model and rebuilds it from s. If any element of s is
// rejected, the model is left unchanged and the error is returned.
func (m *Model) Replace(s *Snapshot) error {
	return m.Atomic(func() error {
		m.Clear()
		for _, n := range s.Nodes() {
			if _, err := m.AddNode(n); err != nil {
				return err
			}
		}
		for _, l := range s.Links() {
			if _, err := m.AddLink(*l); err != nil {
				return fmt.Errorf("link %q: %w", l.ID, err)
			}
		}
		return nil
	})
}

func (m *Model) withBurst(fn func()) {
	m.depth++
	fn()
	m.depth--
	if m.depth == 0 && len(m.pending) > 0 {
		events := m.pending
		m.pending = nil
		m.deliver(events)
	}
}
