package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
)

// Catalog returns a small stream catalog: sources http and file, processors
// transform and filter, sinks log and store.
func Catalog() metadata.Catalog {
	c := metadata.Catalog{}
	c.Add(&metadata.Element{
		Name:  "http",
		Group: metadata.GroupSource,
		Properties: map[string]*metadata.Property{
			"port": {Name: "port", Default: "8080", HasDefault: true},
		},
	})
	c.Add(&metadata.Element{Name: "file", Group: metadata.GroupSource})
	c.Add(&metadata.Element{
		Name:  "transform",
		Group: metadata.GroupProcessor,
		Properties: map[string]*metadata.Property{
			"expression": {Name: "expression"},
		},
	})
	c.Add(&metadata.Element{Name: "filter", Group: metadata.GroupProcessor})
	c.Add(&metadata.Element{Name: "log", Group: metadata.GroupSink})
	c.Add(&metadata.Element{Name: "store", Group: metadata.GroupSink})
	return c
}

// Element looks up an element of Catalog and fails the test if it is missing.
func Element(t *testing.T, group metadata.Group, name string) *metadata.Element {
	t.Helper()
	e, ok := Catalog().Lookup(group, name)
	require.True(t, ok, "element %s/%s", group, name)
	return e
}

// AddNode adds a node with the given id and element at (x, y).
func AddNode(t *testing.T, m *graph.Model, id string, e *metadata.Element, x, y float64) {
	t.Helper()
	_, err := m.AddNode(&graph.Node{ID: id, Metadata: e, Position: graph.Point{X: x, Y: y}})
	require.NoError(t, err)
}

// Connect links the output of from to the input of to.
func Connect(t *testing.T, m *graph.Model, from, to string) *graph.Link {
	t.Helper()
	l, err := m.AddLink(graph.Link{
		Source: graph.Endpoint{Node: from, Port: graph.PortOutput},
		Target: graph.Endpoint{Node: to, Port: graph.PortInput},
	})
	require.NoError(t, err)
	return l
}

// Edges returns the graph's links as "from->to" strings, in model order.
func Edges(v graph.View) []string {
	var out []string
	for _, l := range v.Links() {
		out = append(out, l.Source.Node+"->"+l.Target.Node)
	}
	return out
}
