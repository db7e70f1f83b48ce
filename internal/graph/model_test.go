package graph

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/metadata"
)

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id%d", n)
	}
}

func newTestModel(opts ...Option) *Model {
	return New(append([]Option{WithIDGenerator(sequentialIDs())}, opts...)...)
}

func addNode(t *testing.T, m *Model, id string, group metadata.Group) *Node {
	t.Helper()
	n, err := m.AddNode(&Node{ID: id, Metadata: &metadata.Element{Name: id, Group: group}})
	require.NoError(t, err)
	return n
}

func connect(t *testing.T, m *Model, from, to string) *Link {
	t.Helper()
	l, err := m.AddLink(Link{Source: Endpoint{Node: from}, Target: Endpoint{Node: to}})
	require.NoError(t, err)
	return l
}

func record(m *Model) *[]Event {
	var events []Event
	m.Subscribe(func(e Event) { events = append(events, e) })
	return &events
}

func kinds(events []Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, fmt.Sprintf("%s:%s:%s", e.Kind, e.Element, e.ID))
	}
	return out
}

func TestAddNode_Defaults(t *testing.T) {
	m := newTestModel()

	n, err := m.AddNode(&Node{})
	require.NoError(t, err)
	assert.Equal(t, "id1", n.ID)
	assert.Equal(t, DefaultSize, n.Size)
	assert.NotNil(t, n.Props)
	assert.Equal(t, metadata.GroupProcessor, n.Group())

	_, err = m.AddNode(&Node{ID: "id1"})
	assert.ErrorIs(t, err, ErrDuplicateID)
}

func TestAddNode_StoresCopy(t *testing.T) {
	m := newTestModel()
	in := &Node{ID: "a", Props: map[string]string{"k": "v"}}
	_, err := m.AddNode(in)
	require.NoError(t, err)

	in.Props["k"] = "changed"
	n, ok := m.Node("a")
	require.True(t, ok)
	assert.Equal(t, "v", n.Props["k"])
}

func TestAddLink_RejectsInvalid(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	addNode(t, m, "b", metadata.GroupSink)

	_, err := m.AddLink(Link{Source: Endpoint{Node: "a"}})
	assert.ErrorIs(t, err, ErrDanglingLink)

	_, err = m.AddLink(Link{Source: Endpoint{Node: "a"}, Target: Endpoint{Node: "x"}})
	assert.ErrorIs(t, err, ErrNotFound)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "x", nf.ID)

	l := connect(t, m, "a", "b")
	assert.Equal(t, PortOutput, l.Source.Port)
	assert.Equal(t, PortInput, l.Target.Port)

	_, err = m.AddLink(Link{Source: Endpoint{Node: "a"}, Target: Endpoint{Node: "b"}})
	assert.ErrorIs(t, err, ErrDuplicateLink)

	_, links := m.Len()
	assert.Equal(t, 1, links)
}

func TestAddLink_DuplicatesAllowed(t *testing.T) {
	m := newTestModel(WithDuplicateLinks())
	addNode(t, m, "a", metadata.GroupSource)
	addNode(t, m, "b", metadata.GroupSink)

	connect(t, m, "a", "b")
	connect(t, m, "a", "b")
	assert.Len(t, m.Links(), 2)
	assert.True(t, m.AllowsDuplicateLinks())
}

func TestAddLink_Events(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	addNode(t, m, "b", metadata.GroupSink)
	events := record(m)

	l := connect(t, m, "a", "b")

	assert.Equal(t, []string{
		"added:link:" + l.ID,
		"connected-changed:node:a",
		"connected-changed:node:b",
	}, kinds(*events))
}

func TestRemoveNode_RemovesLinksFirst(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	addNode(t, m, "b", metadata.GroupProcessor)
	addNode(t, m, "c", metadata.GroupSink)
	ab := connect(t, m, "a", "b")
	bc := connect(t, m, "b", "c")

	var seenDangling bool
	events := record(m)
	m.Subscribe(func(e Event) {
		for _, l := range m.Links() {
			if _, ok := m.Node(l.Source.Node); !ok {
				seenDangling = true
			}
			if _, ok := m.Node(l.Target.Node); !ok {
				seenDangling = true
			}
		}
	})

	require.NoError(t, m.RemoveNode("b"))

	assert.False(t, seenDangling)
	assert.Empty(t, m.Links())
	got := kinds(*events)
	require.NotEmpty(t, got)
	assert.Equal(t, "removed:node:b", got[len(got)-1])
	assert.Contains(t, got, "removed:link:"+ab.ID)
	assert.Contains(t, got, "removed:link:"+bc.ID)
}

func TestMutations_UnknownID(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	before := m.Snapshot()

	assert.ErrorIs(t, m.RemoveNode("x"), ErrNotFound)
	assert.ErrorIs(t, m.RemoveLink("x"), ErrNotFound)
	assert.ErrorIs(t, m.MoveNode("x", Point{}), ErrNotFound)
	assert.ErrorIs(t, m.SetProperty("x", "k", "v"), ErrNotFound)

	assert.Equal(t, before, m.Snapshot())
}

func TestConnectedLinks_Direction(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	addNode(t, m, "b", metadata.GroupProcessor)
	addNode(t, m, "c", metadata.GroupSink)
	ab := connect(t, m, "a", "b")
	bc := connect(t, m, "b", "c")

	assert.Equal(t, []*Link{ab}, m.ConnectedLinks("b", Inbound))
	assert.Equal(t, []*Link{bc}, m.ConnectedLinks("b", Outbound))
	assert.Equal(t, []*Link{ab, bc}, m.ConnectedLinks("b", Any))
	assert.Empty(t, m.ConnectedLinks("a", Inbound))
}

func TestSetProperty(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	events := record(m)

	require.NoError(t, m.SetProperty("a", "port", "8080"))
	require.NoError(t, m.SetProperty("a", "port", "8080"))
	require.NoError(t, m.SetProperty("a", "port", ""))

	assert.Equal(t, []string{"property-changed:node:a", "property-changed:node:a"}, kinds(*events))
	n, _ := m.Node("a")
	assert.Empty(t, n.Props)
}

func TestMoveNode(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	events := record(m)

	require.NoError(t, m.MoveNode("a", Point{X: 10, Y: 20}))
	n, _ := m.Node("a")
	assert.Equal(t, Point{X: 10, Y: 20}, n.Position)
	assert.Equal(t, Point{X: 10, Y: 20 + DefaultSize.H/2}, n.Anchor(PortInput))
	assert.Equal(t, Point{X: 10 + DefaultSize.W, Y: 20 + DefaultSize.H/2}, n.Anchor(PortOutput))
	require.Len(t, *events, 1)
	assert.False(t, (*events)[0].Structural())
}

func TestAtomic_DefersEvents(t *testing.T) {
	m := newTestModel()
	events := record(m)

	err := m.Atomic(func() error {
		addNode(t, m, "a", metadata.GroupSource)
		addNode(t, m, "b", metadata.GroupSink)
		assert.Empty(t, *events)
		connect(t, m, "a", "b")
		return nil
	})

	require.NoError(t, err)
	assert.Len(t, *events, 5)
}

func TestAtomic_RollsBackOnError(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	before := m.Snapshot()
	events := record(m)
	boom := errors.New("boom")

	err := m.Atomic(func() error {
		addNode(t, m, "b", metadata.GroupSink)
		connect(t, m, "a", "b")
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Empty(t, *events)
	assert.Equal(t, before, m.Snapshot())
}

func TestAtomic_NestedInnerFailureKeepsOuter(t *testing.T) {
	m := newTestModel()
	events := record(m)

	err := m.Atomic(func() error {
		addNode(t, m, "a", metadata.GroupSource)
		inner := m.Atomic(func() error {
			addNode(t, m, "b", metadata.GroupSink)
			return errors.New("inner")
		})
		assert.Error(t, inner)
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"added:node:a"}, kinds(*events))
	_, ok := m.Node("b")
	assert.False(t, ok)
}

func TestAtomic_PanicRestores(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	before := m.Snapshot()

	assert.Panics(t, func() {
		_ = m.Atomic(func() error {
			require.NoError(t, m.RemoveNode("a"))
			panic("boom")
		})
	})
	assert.Equal(t, before, m.Snapshot())
}

func TestReplace(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "old", metadata.GroupSource)

	snap := NewSnapshot(
		[]*Node{{ID: "a"}, {ID: "b"}},
		[]*Link{{ID: "l1", Source: Endpoint{Node: "a"}, Target: Endpoint{Node: "b"}}},
	)
	events := record(m)
	require.NoError(t, m.Replace(snap))

	_, ok := m.Node("old")
	assert.False(t, ok)
	assert.Len(t, m.Nodes(), 2)
	assert.Len(t, m.Links(), 1)
	assert.Equal(t, "cleared::", kinds(*events)[0])

	bad := NewSnapshot([]*Node{{ID: "a"}}, []*Link{{ID: "l", Source: Endpoint{Node: "a"}, Target: Endpoint{Node: "zz"}}})
	before := m.Snapshot()
	assert.ErrorIs(t, m.Replace(bad), ErrNotFound)
	assert.Equal(t, before, m.Snapshot())
}

func TestSnapshot_IsIndependent(t *testing.T) {
	m := newTestModel()
	addNode(t, m, "a", metadata.GroupSource)
	snap := m.Snapshot()

	require.NoError(t, m.SetProperty("a", "k", "v"))
	require.NoError(t, m.RemoveNode("a"))

	n, ok := snap.Node("a")
	require.True(t, ok)
	assert.Empty(t, n.Props)
	assert.False(t, snap.Empty())
}

func TestUnsubscribe(t *testing.T) {
	m := newTestModel()
	var count int
	unsubscribe := m.Subscribe(func(Event) { count++ })

	addNode(t, m, "a", metadata.GroupSource)
	unsubscribe()
	addNode(t, m, "b", metadata.GroupSource)

	assert.Equal(t, 1, count)
}
