package topology

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/vk/flowgrid/internal/dnd"
	"github.com/vk/flowgrid/internal/graph"
)

// ErrCapacity is returned when a link would exceed a node's connector capacity.
var ErrCapacity = errors.New("capacity exceeded")

// Side selects where a node is inserted relative to a pivot.
type Side string

const (
	// SideLeft inserts before the pivot.
	SideLeft Side = "left"
	// SideRight inserts after the pivot.
	SideRight Side = "right"
)

// LinkValidator is consulted before a link is created. Returning false
// rejects the link without an error.
type LinkValidator func(v graph.View, source, target graph.Endpoint) bool

// PreDeleteFunc runs before a node is removed, inside the same atomic burst.
type PreDeleteFunc func(e *Editor, nodeID string) error

// Observer is told about every completed operation.
type Observer func(op, result string)

// Option configures an Editor.
type Option func(*Editor)

func WithLinkValidator(fn LinkValidator) Option {
	return func(e *Editor) { e.validateLink = fn }
}

func WithPreDelete(fn PreDeleteFunc) Option {
	return func(e *Editor) { e.preDelete = fn }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Editor) { e.logger = l }
}

func WithObserver(fn Observer) Option {
	return func(e *Editor) { e.observe = fn }
}

// Editor applies topology operations to a model.
type Editor struct {
	model        *graph.Model
	validateLink LinkValidator
	preDelete    PreDeleteFunc
	observe      Observer
	logger       *slog.Logger
}

// New creates an editor bound to m.
func New(m *graph.Model, opts ...Option) *Editor {
	e := &Editor{model: m, logger: slog.Default()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Model returns the model the editor mutates.
func (e *Editor) Model() *graph.Model { return e.model }

func (e *Editor) record(op string, err error) {
	if e.observe == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	e.observe(op, result)
}

// CreateLink links the output of source to the input of target. ok is false
// when the link policy refused the link; err is set for structural and
// capacity violations.
func (e *Editor) CreateLink(source, target string) (l *graph.Link, ok bool, err error) {
	l, ok, err = e.connect(source, target)
	e.record("create-link", err)
	return l, ok, err
}

func (e *Editor) connect(source, target string) (*graph.Link, bool, error) {
	src, found := e.model.Node(source)
	if !found {
		return nil, false, &graph.NotFoundError{Kind: "node", ID: source}
	}
	dst, found := e.model.Node(target)
	if !found {
		return nil, false, &graph.NotFoundError{Kind: "node", ID: target}
	}

	if out := len(e.model.ConnectedLinks(source, graph.Outbound)); out >= src.Capacity().Out {
		return nil, false, fmt.Errorf("node %q already has %d outgoing link(s): %w", source, out, ErrCapacity)
	}
	if in := len(e.model.ConnectedLinks(target, graph.Inbound)); in >= dst.Capacity().In {
		return nil, false, fmt.Errorf("node %q already has %d incoming link(s): %w", target, in, ErrCapacity)
	}

	s := graph.Endpoint{Node: source, Port: graph.PortOutput}
	t := graph.Endpoint{Node: target, Port: graph.PortInput}
	if e.validateLink != nil && !e.validateLink(e.model, s, t) {
		e.logger.Debug("Link rejected by policy.", "source", source, "target", target)
		return nil, false, nil
	}

	l, err := e.model.AddLink(graph.Link{Source: s, Target: t})
	if err != nil {
		return nil, false, err
	}
	return l, true, nil
}

// CanSwap reports whether inserting node next to pivot on side changes the
// topology. It is false when the two are the same node or already linked in
// the implied direction.
func (e *Editor) CanSwap(node, pivot string, side Side) bool {
	if node == pivot {
		return false
	}
	for _, l := range e.model.ConnectedLinks(node, graph.Any) {
		if side == SideLeft && l.Source.Node == node && l.Target.Node == pivot {
			return false
		}
		if side == SideRight && l.Source.Node == pivot && l.Target.Node == node {
			return false
		}
	}
	return true
}

// MoveNodeOnNode inserts node before (SideLeft) or after (SideRight) pivot.
// The links that fed into the pivot on that side are rewired to the node and
// a single link joins node and pivot. With repair set, the node's own links
// are first removed and its old neighbours reconnected.
func (e *Editor) MoveNodeOnNode(node, pivot string, side Side, repair bool) error {
	err := e.moveNodeOnNode(node, pivot, side, repair)
	e.record("move-on-node", err)
	return err
}

func (e *Editor) moveNodeOnNode(node, pivot string, side Side, repair bool) error {
	if _, ok := e.model.Node(node); !ok {
		return &graph.NotFoundError{Kind: "node", ID: node}
	}
	if _, ok := e.model.Node(pivot); !ok {
		return &graph.NotFoundError{Kind: "node", ID: pivot}
	}
	if side != SideLeft && side != SideRight {
		return fmt.Errorf("unknown side %q", side)
	}
	if !e.CanSwap(node, pivot, side) {
		e.logger.Debug("Insert skipped, nodes already adjacent.", "node", node, "pivot", pivot, "side", side)
		return nil
	}

	return e.model.Atomic(func() error {
		if repair {
			if err := e.repairDamage(node); err != nil {
				return err
			}
		}

		if side == SideLeft {
			var sources []string
			for _, l := range e.model.ConnectedLinks(pivot, graph.Inbound) {
				sources = append(sources, l.Source.Node)
				if err := e.model.RemoveLink(l.ID); err != nil {
					return err
				}
			}
			for _, s := range sources {
				if _, _, err := e.connect(s, node); err != nil {
					return err
				}
			}
			_, _, err := e.connect(node, pivot)
			return err
		}

		var targets []string
		for _, l := range e.model.ConnectedLinks(pivot, graph.Outbound) {
			targets = append(targets, l.Target.Node)
			if err := e.model.RemoveLink(l.ID); err != nil {
				return err
			}
		}
		for _, t := range targets {
			if _, _, err := e.connect(node, t); err != nil {
				return err
			}
		}
		_, _, err := e.connect(pivot, node)
		return err
	})
}

// MoveNodeOnLink splices node into a link: the link S->T is replaced by S->node
// and node->T.
func (e *Editor) MoveNodeOnLink(node, linkID string, repair bool) error {
	err := e.moveNodeOnLink(node, linkID, repair)
	e.record("move-on-link", err)
	return err
}

func (e *Editor) moveNodeOnLink(node, linkID string, repair bool) error {
	if _, ok := e.model.Node(node); !ok {
		return &graph.NotFoundError{Kind: "node", ID: node}
	}
	l, ok := e.model.Link(linkID)
	if !ok {
		return &graph.NotFoundError{Kind: "link", ID: linkID}
	}
	source, target := l.Source.Node, l.Target.Node

	return e.model.Atomic(func() error {
		if repair {
			if err := e.repairDamage(node); err != nil {
				return err
			}
		}
		if _, ok := e.model.Link(linkID); ok {
			if err := e.model.RemoveLink(linkID); err != nil {
				return err
			}
		}
		if source != "" && source != node {
			if _, _, err := e.connect(source, node); err != nil {
				return err
			}
		}
		if target != "" && target != node {
			if _, _, err := e.connect(node, target); err != nil {
				return err
			}
		}
		return nil
	})
}

// RepairDamage removes every link attached to node and reconnects its former
// neighbours: a single source is linked to every former target, or every
// former source is linked to a single target. When there are several of both
// the links are dropped and the gap is left.
func (e *Editor) RepairDamage(node string) error {
	if _, ok := e.model.Node(node); !ok {
		return &graph.NotFoundError{Kind: "node", ID: node}
	}
	err := e.model.Atomic(func() error { return e.repairDamage(node) })
	e.record("repair", err)
	return err
}

func (e *Editor) repairDamage(node string) error {
	var sources, targets []string
	for _, l := range e.model.ConnectedLinks(node, graph.Any) {
		switch {
		case l.Target.Node == node && l.Source.Node != node:
			sources = append(sources, l.Source.Node)
		case l.Source.Node == node && l.Target.Node != node:
			targets = append(targets, l.Target.Node)
		}
		if err := e.model.RemoveLink(l.ID); err != nil {
			return err
		}
	}

	switch {
	case len(sources) == 1:
		for _, t := range targets {
			e.reconnect(sources[0], t)
		}
	case len(targets) == 1:
		for _, s := range sources {
			e.reconnect(s, targets[0])
		}
	case len(sources) > 1 && len(targets) > 1:
		e.logger.Debug("Repair left a gap, ambiguous many-to-many neighbours.",
			"node", node, "sources", sources, "targets", targets)
	}
	return nil
}

func (e *Editor) reconnect(source, target string) {
	if source == target {
		return
	}
	if _, _, err := e.connect(source, target); err != nil {
		e.logger.Debug("Repair link skipped.", "source", source, "target", target, "error", err)
	}
}

// DeleteNode runs the pre-delete hook and removes the node with its links.
func (e *Editor) DeleteNode(id string) error {
	if _, ok := e.model.Node(id); !ok {
		return &graph.NotFoundError{Kind: "node", ID: id}
	}
	err := e.model.Atomic(func() error {
		if e.preDelete != nil {
			if err := e.preDelete(e, id); err != nil {
				return fmt.Errorf("pre-delete %q: %w", id, err)
			}
		}
		return e.model.RemoveNode(id)
	})
	e.record("delete", err)
	return err
}

// HandleDrop applies the default reaction to a resolved drop: a node dropped
// on an output port goes after its owner, on an input port before it, and on
// a link it is spliced in. handled is false when the descriptor has nothing
// actionable.
func (e *Editor) HandleDrop(d dnd.Descriptor) (handled bool, err error) {
	if d.Source == nil || d.Target == nil || d.Source.Kind != graph.KindNode {
		return false, nil
	}
	switch d.Target.Kind {
	case graph.KindNode:
		switch d.Target.Port {
		case graph.PortOutput:
			return true, e.MoveNodeOnNode(d.Source.ID, d.Target.ID, SideRight, true)
		case graph.PortInput:
			return true, e.MoveNodeOnNode(d.Source.ID, d.Target.ID, SideLeft, true)
		}
	case graph.KindLink:
		return true, e.MoveNodeOnLink(d.Source.ID, d.Target.ID, false)
	}
	return false, nil
}
