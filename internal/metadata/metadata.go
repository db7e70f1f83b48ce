package metadata

import (
	"slices"
	"sort"
)

// Group classifies an element by its position in a stream.
type Group string

const (
	GroupSource    Group = "source"
	GroupProcessor Group = "processor"
	GroupSink      Group = "sink"
)

// DefaultGroups is the lookup order used when a DSL name does not say which
// group it belongs to.
var DefaultGroups = []Group{GroupSource, GroupProcessor, GroupSink}

// Property is the schema of a single configurable property of an element.
type Property struct {
	Name        string
	Description string
	Default     string
	HasDefault  bool
}

// Rule is an element-declared validation rule. Condition is a CEL boolean
// expression; a node violates the rule when it evaluates to false.
type Rule struct {
	Name      string
	Condition string
	// Severity is "error" or "warning"; empty means "error".
	Severity string
}

// Constraints overrides the link-count limits derived from the group.
// Nil fields fall back to the group capacity (for max) or to no limit (for min).
type Constraints struct {
	MinIncoming *int
	MaxIncoming *int
	MinOutgoing *int
	MaxOutgoing *int
	// XorSourceSink forbids a node from having both incoming and outgoing links.
	XorSourceSink bool
}

// Element is the metadata behind a node.
type Element struct {
	Name        string
	Group       Group
	Description string
	Properties  map[string]*Property
	Rules       []Rule
	Constraints *Constraints

	// AllowAdditionalProperties disables the unrecognized-property check.
	AllowAdditionalProperties bool
	// NoPaletteEntry hides the element from palettes; it can still appear in text.
	NoPaletteEntry bool
	// Unresolved marks placeholder metadata created for a DSL name that no
	// catalog entry matched.
	Unresolved bool
}

// Property returns the schema for the named property.
func (e *Element) Property(name string) (*Property, bool) {
	if e == nil || e.Properties == nil {
		return nil, false
	}
	p, ok := e.Properties[name]
	return p, ok
}

// PropertyNames returns the declared property names in sorted order.
func (e *Element) PropertyNames() []string {
	if e == nil {
		return nil
	}
	names := make([]string, 0, len(e.Properties))
	for name := range e.Properties {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy of the element.
func (e *Element) Clone() *Element {
	if e == nil {
		return nil
	}
	c := *e
	if e.Properties != nil {
		c.Properties = make(map[string]*Property, len(e.Properties))
		for k, v := range e.Properties {
			p := *v
			c.Properties[k] = &p
		}
	}
	c.Rules = slices.Clone(e.Rules)
	if e.Constraints != nil {
		c.Constraints = &Constraints{
			MinIncoming: cloneInt(e.Constraints.MinIncoming),
			MaxIncoming: cloneInt(e.Constraints.MaxIncoming),
			MinOutgoing: cloneInt(e.Constraints.MinOutgoing),
			MaxOutgoing: cloneInt(e.Constraints.MaxOutgoing),
		}
	}
	return &c
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// UnresolvedElement builds placeholder metadata for a name the catalog does not know.
func UnresolvedElement(name string, group Group) *Element {
	return &Element{Name: name, Group: group, Unresolved: true}
}

// Catalog maps group to element name to element metadata.
type Catalog map[Group]map[string]*Element

// Add registers an element under its group, replacing any previous entry.
func (c Catalog) Add(e *Element) {
	if c[e.Group] == nil {
		c[e.Group] = make(map[string]*Element)
	}
	c[e.Group][e.Name] = e
}

// Lookup returns the element registered under group and name.
func (c Catalog) Lookup(group Group, name string) (*Element, bool) {
	byName, ok := c[group]
	if !ok {
		return nil, false
	}
	e, ok := byName[name]
	return e, ok
}

// Find resolves a bare element name by trying each group in order. Groups in
// the catalog but not in order are tried afterwards, sorted by name.
func (c Catalog) Find(name string, order []Group) (*Element, bool) {
	seen := make(map[Group]bool, len(order))
	for _, g := range order {
		seen[g] = true
		if e, ok := c.Lookup(g, name); ok {
			return e, true
		}
	}
	for _, g := range c.Groups() {
		if seen[g] {
			continue
		}
		if e, ok := c.Lookup(g, name); ok {
			return e, true
		}
	}
	return nil, false
}

// Groups returns the groups present in the catalog, sorted.
func (c Catalog) Groups() []Group {
	groups := make([]Group, 0, len(c))
	for g := range c {
		groups = append(groups, g)
	}
	slices.Sort(groups)
	return groups
}

// Elements returns every element, ordered by group then name.
func (c Catalog) Elements() []*Element {
	var out []*Element
	for _, g := range c.Groups() {
		names := make([]string, 0, len(c[g]))
		for name := range c[g] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			out = append(out, c[g][name])
		}
	}
	return out
}

// Len returns the number of elements in the catalog.
func (c Catalog) Len() int {
	n := 0
	for _, byName := range c {
		n += len(byName)
	}
	return n
}
