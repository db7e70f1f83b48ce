package dnd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
)

func addAt(t *testing.T, m *graph.Model, id string, group metadata.Group, x, y float64) {
	t.Helper()
	_, err := m.AddNode(&graph.Node{
		ID:       id,
		Metadata: &metadata.Element{Name: id, Group: group},
		Position: graph.Point{X: x, Y: y},
	})
	require.NoError(t, err)
}

func link(t *testing.T, m *graph.Model, from, to string) *graph.Link {
	t.Helper()
	l, err := m.AddLink(graph.Link{Source: graph.Endpoint{Node: from}, Target: graph.Endpoint{Node: to}})
	require.NoError(t, err)
	return l
}

// chain builds A(source) -> B(processor) -> C(sink) on one row, plus an
// unconnected processor D below it.
func chain(t *testing.T) *graph.Model {
	m := graph.New()
	addAt(t, m, "A", metadata.GroupSource, 0, 0)
	addAt(t, m, "B", metadata.GroupProcessor, 200, 0)
	addAt(t, m, "C", metadata.GroupSink, 400, 0)
	addAt(t, m, "D", metadata.GroupProcessor, 200, 300)
	link(t, m, "A", "B")
	link(t, m, "B", "C")
	return m
}

func TestResolve_ClosestPort(t *testing.T) {
	m := chain(t)
	r := NewResolver(0)

	d := r.Resolve(m, Input{Dragged: "D", Pointer: graph.Point{X: 322, Y: 17.5}, Context: FromCanvas})

	require.True(t, d.HasTarget())
	assert.Equal(t, NodeEnd("B", graph.PortOutput), d.Target)
	assert.Equal(t, NodeEnd("D", graph.PortInput), d.Source)
	assert.InDelta(t, 2.0, d.Range, 1e-9)
	assert.Equal(t, FromCanvas, d.Context)
}

func TestResolve_Deterministic(t *testing.T) {
	m := chain(t)
	r := NewResolver(30)
	in := Input{Dragged: "D", Pointer: graph.Point{X: 205, Y: 20}}

	first := r.Resolve(m, in)
	second := r.Resolve(m, in)

	assert.True(t, first.Equal(second))
	assert.Equal(t, first, second)
	assert.Equal(t, NodeEnd("B", graph.PortInput), first.Target)
}

func TestResolve_RadiusBoundary(t *testing.T) {
	m := graph.New()
	// X output anchor sits at (-29.9, 0); Y input anchor at (30.1, 0).
	addAt(t, m, "X", metadata.GroupSource, -149.9, -17.5)
	addAt(t, m, "Y", metadata.GroupSink, 30.1, -17.5)
	addAt(t, m, "D", metadata.GroupProcessor, 500, 500)

	d := NewResolver(30).Resolve(m, Input{Dragged: "D", Pointer: graph.Point{}})

	require.True(t, d.HasTarget())
	assert.Equal(t, "X", d.Target.ID)
	assert.Less(t, d.Range, 30.0)
}

func TestResolve_ExactlyAtRadiusIsExcluded(t *testing.T) {
	m := graph.New()
	addAt(t, m, "Y", metadata.GroupSink, 30, -17.5)
	addAt(t, m, "D", metadata.GroupProcessor, 500, 500)

	d := NewResolver(30).Resolve(m, Input{Dragged: "D", Pointer: graph.Point{}})

	assert.False(t, d.HasTarget())
	assert.Equal(t, "D", d.Source.ID)
}

func TestResolve_TieKeepsGraphOrder(t *testing.T) {
	m := graph.New()
	addAt(t, m, "P1", metadata.GroupProcessor, 10, -17.5)
	addAt(t, m, "P2", metadata.GroupProcessor, -10, -17.5)
	addAt(t, m, "D", metadata.GroupSource, 500, 500)

	d := NewResolver(30).Resolve(m, Input{Dragged: "D", Pointer: graph.Point{}})

	require.True(t, d.HasTarget())
	assert.Equal(t, NodeEnd("P1", graph.PortInput), d.Target)
}

func TestResolve_GroupCompatibility(t *testing.T) {
	m := graph.New()
	// Only the output of S is near the pointer.
	addAt(t, m, "S", metadata.GroupSource, -120, -17.5)
	addAt(t, m, "src", metadata.GroupSource, 500, 500)
	addAt(t, m, "sink", metadata.GroupSink, 800, 800)
	r := NewResolver(30)

	d := r.Resolve(m, Input{Dragged: "src", Pointer: graph.Point{}})
	assert.False(t, d.HasTarget(), "a source cannot attach to another output")

	d = r.Resolve(m, Input{Dragged: "sink", Pointer: graph.Point{}})
	require.True(t, d.HasTarget())
	assert.Equal(t, NodeEnd("S", graph.PortOutput), d.Target)
}

func TestResolve_LinkFallback(t *testing.T) {
	m := chain(t)
	ab, ok := m.Link(m.Links()[0].ID)
	require.True(t, ok)
	r := NewResolver(30)
	in := Input{Dragged: "D", Pointer: graph.Point{X: 160, Y: 17.5}, UnderPointer: LinkEnd(ab.ID)}

	d := r.Resolve(m, in)
	require.True(t, d.HasTarget())
	assert.Equal(t, LinkEnd(ab.ID), d.Target)
	assert.Equal(t, &End{Kind: graph.KindNode, ID: "D"}, d.Source)

	addAt(t, m, "E", metadata.GroupSink, 600, 300)
	link(t, m, "D", "E")
	d = r.Resolve(m, in)
	assert.False(t, d.HasTarget(), "connected processors do not splice into links")
}

func TestResolve_UnknownDragged(t *testing.T) {
	d := NewResolver(30).Resolve(graph.New(), Input{Dragged: "x", Context: FromPalette})
	assert.True(t, d.Empty())
}

func TestDescriptor_EqualIgnoresRange(t *testing.T) {
	a := Descriptor{Source: NodeEnd("D", graph.PortInput), Target: NodeEnd("B", graph.PortOutput), Range: 3}
	b := Descriptor{Source: NodeEnd("D", graph.PortInput), Target: NodeEnd("B", graph.PortOutput), Range: 7}
	c := Descriptor{Source: NodeEnd("D", graph.PortInput), Target: NodeEnd("B", graph.PortInput)}

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(Descriptor{Source: a.Source}))
	assert.True(t, Descriptor{}.Equal(Descriptor{}))
}

func TestResolve_SkipsConnectorsTheDraggedNodeCannotTakeOver(t *testing.T) {
	m := chain(t)
	addAt(t, m, "S", metadata.GroupSink, 600, 600)
	addAt(t, m, "R", metadata.GroupSource, 600, 700)
	r := NewResolver(30)

	t.Run("sink near a linked output", func(t *testing.T) {
		d := r.Resolve(m, Input{Dragged: "S", Pointer: graph.Point{X: 322, Y: 17.5}})
		assert.False(t, d.HasTarget(), "a sink cannot inherit the outbound link of B")
	})

	t.Run("source near a linked input", func(t *testing.T) {
		d := r.Resolve(m, Input{Dragged: "R", Pointer: graph.Point{X: 198, Y: 17.5}})
		assert.False(t, d.HasTarget(), "a source cannot inherit the inbound link of B")
	})

	t.Run("sink near an unlinked output", func(t *testing.T) {
		d := r.Resolve(m, Input{Dragged: "S", Pointer: graph.Point{X: 322, Y: 317.5}})
		require.True(t, d.HasTarget())
		assert.Equal(t, NodeEnd("D", graph.PortOutput), d.Target)
	})
}
