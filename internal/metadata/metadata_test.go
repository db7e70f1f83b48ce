package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int { return &v }

func TestCapacityOf(t *testing.T) {
	tests := []struct {
		group Group
		want  Capacity
	}{
		{GroupSource, Capacity{In: 0, Out: 1}},
		{GroupProcessor, Capacity{In: 1, Out: 1}},
		{GroupSink, Capacity{In: 1, Out: 0}},
		{Group("task"), Capacity{In: 1, Out: 1}},
	}
	for _, tt := range tests {
		t.Run(string(tt.group), func(t *testing.T) {
			assert.Equal(t, tt.want, CapacityOf(tt.group))
		})
	}
}

func TestCapacityFor_ConstraintsOverride(t *testing.T) {
	e := &Element{
		Name:        "fanout",
		Group:       GroupProcessor,
		Constraints: &Constraints{MaxOutgoing: intPtr(3)},
	}
	c := CapacityFor(e)
	assert.Equal(t, 1, c.In)
	assert.Equal(t, 3, c.Out)
	assert.Equal(t, CapacityOf(GroupProcessor), CapacityFor(nil))
}

func TestCatalog_LookupAndFind(t *testing.T) {
	c := Catalog{}
	c.Add(&Element{Name: "http", Group: GroupSource})
	c.Add(&Element{Name: "log", Group: GroupSink})
	c.Add(&Element{Name: "log", Group: GroupProcessor})
	c.Add(&Element{Name: "custom", Group: Group("extra")})

	e, ok := c.Lookup(GroupSink, "log")
	require.True(t, ok)
	assert.Equal(t, GroupSink, e.Group)

	_, ok = c.Lookup(GroupSource, "log")
	assert.False(t, ok)

	e, ok = c.Find("log", DefaultGroups)
	require.True(t, ok)
	assert.Equal(t, GroupProcessor, e.Group, "processor precedes sink in the default order")

	e, ok = c.Find("custom", DefaultGroups)
	require.True(t, ok)
	assert.Equal(t, Group("extra"), e.Group)

	_, ok = c.Find("missing", DefaultGroups)
	assert.False(t, ok)
	assert.Equal(t, 4, c.Len())
}

func TestCatalog_ElementsOrdered(t *testing.T) {
	c := Catalog{}
	c.Add(&Element{Name: "b", Group: GroupSource})
	c.Add(&Element{Name: "a", Group: GroupSource})
	c.Add(&Element{Name: "z", Group: GroupProcessor})

	var names []string
	for _, e := range c.Elements() {
		names = append(names, string(e.Group)+"/"+e.Name)
	}
	assert.Equal(t, []string{"processor/z", "source/a", "source/b"}, names)
}

func TestElement_CloneIsDeep(t *testing.T) {
	e := &Element{
		Name:        "transform",
		Group:       GroupProcessor,
		Properties:  map[string]*Property{"expression": {Name: "expression"}},
		Rules:       []Rule{{Name: "r"}},
		Constraints: &Constraints{MaxIncoming: intPtr(2)},
	}
	c := e.Clone()
	c.Properties["expression"].Description = "changed"
	c.Rules[0].Name = "other"
	*c.Constraints.MaxIncoming = 5

	assert.Empty(t, e.Properties["expression"].Description)
	assert.Equal(t, "r", e.Rules[0].Name)
	assert.Equal(t, 2, *e.Constraints.MaxIncoming)
	assert.Equal(t, []string{"expression"}, c.PropertyNames())

	var nilElem *Element
	_, ok := nilElem.Property("x")
	assert.False(t, ok)
}
