package collab

import (
	"context"

	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
)

// Metamodel converts between DSL text and graphs.
//
// TextToGraph and GraphToText are called off the editor loop with immutable
// inputs and must not retain them.
type Metamodel interface {
	// Load returns the element catalog.
	Load(ctx context.Context) (metadata.Catalog, error)
	// TextToGraph parses text into a graph whose nodes reference catalog
	// elements. Names that match no element get unresolved metadata.
	TextToGraph(ctx context.Context, catalog metadata.Catalog, text string) (*graph.Snapshot, error)
	// GraphToText renders a graph as text. Equal graphs must render equal text.
	GraphToText(ctx context.Context, g *graph.Snapshot) (string, error)
	// Groups returns the element groups in lookup order.
	Groups() []string
}

// MetamodelListener is told about catalog changes.
type MetamodelListener interface {
	MetadataError(err error)
	MetadataAboutToChange()
	MetadataChanged()
}

// MetamodelNotifier is implemented by metamodels whose catalog can change
// while an editor is open.
type MetamodelNotifier interface {
	Subscribe(l MetamodelListener)
	Unsubscribe(l MetamodelListener)
}

// ListenerFuncs adapts functions to MetamodelListener. Nil fields are ignored.
type ListenerFuncs struct {
	OnError         func(err error)
	OnAboutToChange func()
	OnChanged       func()
}

func (l *ListenerFuncs) MetadataError(err error) {
	if l.OnError != nil {
		l.OnError(err)
	}
}

func (l *ListenerFuncs) MetadataAboutToChange() {
	if l.OnAboutToChange != nil {
		l.OnAboutToChange()
	}
}

func (l *ListenerFuncs) MetadataChanged() {
	if l.OnChanged != nil {
		l.OnChanged()
	}
}

// GroupOrder converts Metamodel.Groups to catalog groups, falling back to the
// default order when the metamodel names none.
func GroupOrder(m interface{ Groups() []string }) []metadata.Group {
	names := m.Groups()
	if len(names) == 0 {
		return metadata.DefaultGroups
	}
	out := make([]metadata.Group, 0, len(names))
	for _, n := range names {
		out = append(out, metadata.Group(n))
	}
	return out
}
