package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/vk/flowgrid/internal/collab"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
)

// Metamodel is a recording collab.Metamodel with a line based text format:
//
//	node <id> <element>
//	link <from> <to>
//
// Element names are resolved against the catalog in source, processor, sink
// order. Any other non-blank line is a parse error.
type Metamodel struct {
	mu        sync.Mutex
	catalog   metadata.Catalog
	loadErr   error
	parsed    []string
	printed   int
	gates     map[string]chan struct{}
	listeners []collab.MetamodelListener
}

var (
	_ collab.Metamodel         = (*Metamodel)(nil)
	_ collab.MetamodelNotifier = (*Metamodel)(nil)
)

// NewMetamodel returns a metamodel serving catalog.
func NewMetamodel(catalog metadata.Catalog) *Metamodel {
	return &Metamodel{catalog: catalog, gates: map[string]chan struct{}{}}
}

func (m *Metamodel) Load(context.Context) (metadata.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.catalog, nil
}

func (m *Metamodel) Groups() []string { return []string{"source", "processor", "sink"} }

func (m *Metamodel) TextToGraph(_ context.Context, catalog metadata.Catalog, text string) (*graph.Snapshot, error) {
	m.mu.Lock()
	m.parsed = append(m.parsed, text)
	gate := m.gates[text]
	m.mu.Unlock()
	if gate != nil {
		<-gate
	}

	var nodes []*graph.Node
	var links []*graph.Link
	for i, line := range strings.Split(text, "\n") {
		f := strings.Fields(line)
		switch {
		case len(f) == 0:
		case len(f) == 3 && f[0] == "node":
			e, ok := catalog.Find(f[2], metadata.DefaultGroups)
			if !ok {
				e = metadata.UnresolvedElement(f[2], metadata.GroupProcessor)
			}
			nodes = append(nodes, &graph.Node{
				ID:       f[1],
				Metadata: e,
				Range:    &graph.TextRange{Start: graph.TextPos{Line: i + 1, Column: 1}, End: graph.TextPos{Line: i + 1, Column: len(line) + 1}},
			})
		case len(f) == 3 && f[0] == "link":
			links = append(links, &graph.Link{
				ID:     f[1] + "-" + f[2],
				Source: graph.Endpoint{Node: f[1], Port: graph.PortOutput},
				Target: graph.Endpoint{Node: f[2], Port: graph.PortInput},
			})
		default:
			return nil, fmt.Errorf("line %d: unexpected input %q", i+1, line)
		}
	}
	return graph.NewSnapshot(nodes, links), nil
}

func (m *Metamodel) GraphToText(_ context.Context, s *graph.Snapshot) (string, error) {
	m.mu.Lock()
	m.printed++
	m.mu.Unlock()
	var b strings.Builder
	for _, n := range s.Nodes() {
		fmt.Fprintf(&b, "node %s %s\n", n.ID, n.Name())
	}
	for _, l := range s.Links() {
		fmt.Fprintf(&b, "link %s %s\n", l.Source.Node, l.Target.Node)
	}
	return b.String(), nil
}

// Parsed returns every text handed to TextToGraph, in call order.
func (m *Metamodel) Parsed() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.parsed...)
}

// Printed returns the number of GraphToText calls.
func (m *Metamodel) Printed() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.printed
}

// Gate makes TextToGraph block on text until the returned function is called.
func (m *Metamodel) Gate(text string) (release func()) {
	ch := make(chan struct{})
	m.mu.Lock()
	m.gates[text] = ch
	m.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// SetCatalog replaces the catalog and notifies listeners.
func (m *Metamodel) SetCatalog(c metadata.Catalog) {
	m.mu.Lock()
	listeners := append([]collab.MetamodelListener(nil), m.listeners...)
	m.mu.Unlock()
	for _, l := range listeners {
		l.MetadataAboutToChange()
	}
	m.mu.Lock()
	m.catalog = c
	m.mu.Unlock()
	for _, l := range listeners {
		l.MetadataChanged()
	}
}

// FailLoad makes Load return err.
func (m *Metamodel) FailLoad(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadErr = err
}

func (m *Metamodel) Subscribe(l collab.MetamodelListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Metamodel) Unsubscribe(l collab.MetamodelListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.listeners {
		if existing == l {
			m.listeners = append(m.listeners[:i], m.listeners[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of subscribed listeners.
func (m *Metamodel) Listeners() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.listeners)
}
