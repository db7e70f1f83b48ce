package validation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
)

func element(name string, group metadata.Group, props ...string) *metadata.Element {
	e := &metadata.Element{Name: name, Group: group, Properties: map[string]*metadata.Property{}}
	for _, p := range props {
		e.Properties[p] = &metadata.Property{Name: p}
	}
	return e
}

func addNode(t *testing.T, m *graph.Model, id string, e *metadata.Element, props map[string]string) {
	t.Helper()
	_, err := m.AddNode(&graph.Node{ID: id, Metadata: e, Props: props})
	require.NoError(t, err)
}

func connect(t *testing.T, m *graph.Model, from, to string) {
	t.Helper()
	_, err := m.AddLink(graph.Link{Source: graph.Endpoint{Node: from}, Target: graph.Endpoint{Node: to}})
	require.NoError(t, err)
}

func messages(list []Marker) []string {
	out := make([]string, 0, len(list))
	for _, m := range list {
		out = append(out, m.Message)
	}
	return out
}

func TestBuiltinRules_LinkCounts(t *testing.T) {
	min1 := 1
	m := graph.New(graph.WithDuplicateLinks())
	addNode(t, m, "src", element("http", metadata.GroupSource), nil)
	addNode(t, m, "p", element("transform", metadata.GroupProcessor), nil)
	addNode(t, m, "snk", element("log", metadata.GroupSink), nil)
	needy := element("needy", metadata.GroupProcessor)
	needy.Constraints = &metadata.Constraints{MinIncoming: &min1, MinOutgoing: &min1}
	addNode(t, m, "n", needy, nil)
	// Links the model accepts but the capacity model does not.
	connect(t, m, "p", "src")
	connect(t, m, "snk", "p")
	connect(t, m, "src", "p")

	markers, err := New(BuiltinRules()).Validate(context.Background(), m.Snapshot())
	require.NoError(t, err)

	assert.Equal(t, []string{"Sources must appear at the start of a stream"}, messages(markers["src"]))
	assert.Equal(t, []string{"Sinks must appear at the end of a stream"}, messages(markers["snk"]))
	assert.Equal(t, []string{"Max allowed number of incoming links is 1"}, messages(markers["p"]))
	assert.Equal(t, []string{
		"Min allowed number of incoming links is 1",
		"Min allowed number of outgoing links is 1",
	}, messages(markers["n"]))
}

func TestBuiltinRules_XorSourceSink(t *testing.T) {
	hub := func() *metadata.Element {
		e := element("hub", metadata.GroupProcessor)
		two := 2
		e.Constraints = &metadata.Constraints{MaxIncoming: &two, MaxOutgoing: &two, XorSourceSink: true}
		return e
	}
	m := graph.New()
	addNode(t, m, "src", element("http", metadata.GroupSource), nil)
	addNode(t, m, "in", hub(), nil)
	addNode(t, m, "both", hub(), nil)
	addNode(t, m, "snk", element("log", metadata.GroupSink), nil)
	connect(t, m, "src", "in")
	connect(t, m, "src", "both")
	connect(t, m, "both", "snk")

	markers, err := New(BuiltinRules()).Validate(context.Background(), m.Snapshot())
	require.NoError(t, err)

	assert.NotContains(t, markers, "in")
	assert.Equal(t, []string{"Node can either have incoming or outgoing links, but not both"}, messages(markers["both"]))
}

func TestBuiltinRules_UnknownAndUnrecognized(t *testing.T) {
	m := graph.New()
	addNode(t, m, "u", metadata.UnresolvedElement("mystery", metadata.GroupProcessor), map[string]string{"x": "1"})
	addNode(t, m, "k", element("transform", metadata.GroupProcessor, "expression"), map[string]string{
		"expression": "a", "colour": "red", "bogus": "1",
	})
	free := element("script", metadata.GroupProcessor)
	free.AllowAdditionalProperties = true
	addNode(t, m, "f", free, map[string]string{"anything": "1"})

	markers, err := New(BuiltinRules()).Validate(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, []string{"Unknown element 'mystery' from group 'processor'."}, messages(markers["u"]))
	assert.Equal(t, []string{
		"unrecognized option 'bogus' for module 'transform'",
		"unrecognized option 'colour' for module 'transform'",
	}, messages(markers["k"]))
	assert.NotContains(t, markers, "f")
}

func TestValidate_Idempotent(t *testing.T) {
	m := graph.New()
	addNode(t, m, "u", nil, nil)
	p := New(BuiltinRules())

	first, err := p.Validate(context.Background(), m)
	require.NoError(t, err)
	second, err := p.Validate(context.Background(), m)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.True(t, first.Equal(second))
	assert.Equal(t, []string{"Unknown element ''"}, messages(first["u"]))
}

func TestValidate_RuleFailureBecomesMarker(t *testing.T) {
	broken := RuleFunc{RuleName: "broken", Fn: func(context.Context, graph.View) (Markers, error) {
		return nil, errors.New("boom")
	}}
	panicky := RuleFunc{RuleName: "panicky", Fn: func(context.Context, graph.View) (Markers, error) {
		panic("oops")
	}}

	markers, err := New([]Rule{broken, panicky}).Validate(context.Background(), graph.New())

	require.NoError(t, err)
	require.Len(t, markers[DocumentID], 2)
	assert.True(t, markers.HasErrors())
	assert.Contains(t, markers[DocumentID][0].Message, "boom")
}

func TestValidate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(BuiltinRules()).Validate(ctx, graph.New())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSetRules_ConcurrentWithValidate(t *testing.T) {
	m := graph.New()
	addNode(t, m, "u", nil, nil)
	snap := m.Snapshot()
	p := New(BuiltinRules())
	only := []Rule{RuleFunc{RuleName: "noop", Fn: func(context.Context, graph.View) (Markers, error) {
		return nil, nil
	}}}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			if i%2 == 0 {
				p.SetRules(only)
			} else {
				p.SetRules(BuiltinRules())
			}
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 200; i++ {
			_, err := p.Validate(context.Background(), snap)
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	p.SetRules(only)
	markers, err := p.Validate(context.Background(), snap)
	require.NoError(t, err)
	assert.Empty(t, markers)
}

func TestSetRules_CopiesSlice(t *testing.T) {
	rules := BuiltinRules()
	p := New(nil)
	p.SetRules(rules)
	rules[0] = RuleFunc{RuleName: "boom", Fn: func(context.Context, graph.View) (Markers, error) {
		return nil, errors.New("boom")
	}}

	m := graph.New()
	addNode(t, m, "u", nil, nil)
	markers, err := p.Validate(context.Background(), m)
	require.NoError(t, err)
	assert.NotContains(t, markers, DocumentID)
	assert.Equal(t, []string{"Unknown element ''"}, messages(markers["u"]))
}

func TestApply_Decorates(t *testing.T) {
	var got Markers
	p := New(nil, WithDecorator(func(m Markers) { got = m }))
	markers := Markers{"a": {{Severity: SeverityWarning, Message: "w"}}}

	p.Apply(markers)

	assert.Equal(t, markers, got)
	assert.Equal(t, markers, p.Markers())
	assert.Equal(t, 1, p.Markers().Count(SeverityWarning))
	assert.False(t, p.Markers().HasErrors())
}

func TestMarkers_SortedErrorsFirst(t *testing.T) {
	m := Markers{"a": {
		{Severity: SeverityWarning, Message: "a"},
		{Severity: SeverityError, Message: "z"},
		{Severity: SeverityError, Message: "b"},
	}, "empty": {}}
	m.normalize()

	assert.Equal(t, []string{"b", "z", "a"}, messages(m["a"]))
	assert.Equal(t, []string{"a"}, m.IDs())
	assert.Equal(t, SeverityWarning, ParseSeverity("warning"))
	assert.Equal(t, SeverityError, ParseSeverity("fatal"))
}

func TestParseError(t *testing.T) {
	r := &graph.TextRange{Start: graph.TextPos{Line: 2, Column: 1}}
	m := ParseError(errors.New("bad token"), r)

	require.Len(t, m[DocumentID], 1)
	assert.Equal(t, r, m[DocumentID][0].Range)
}
