package hcldsl

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/vk/flowgrid/internal/collab"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/metadata"
)

// Option configures a Metamodel.
type Option func(*Metamodel)

// WithPaths adds manifest files or directories.
func WithPaths(paths ...string) Option {
	return func(m *Metamodel) { m.paths = append(m.paths, paths...) }
}

// WithSource adds an in-memory manifest.
func WithSource(name, text string) Option {
	return func(m *Metamodel) { m.sources = append(m.sources, source{name: name, data: []byte(text)}) }
}

// WithBuiltin adds the manifest embedded in the package. Elements from later
// sources and from paths override it.
func WithBuiltin() Option {
	return func(m *Metamodel) {
		m.sources = append([]source{{name: BuiltinName, data: builtinManifest}}, m.sources...)
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(l *slog.Logger) Option {
	return func(m *Metamodel) { m.logger = l }
}

// Metamodel implements collab.Metamodel and collab.MetamodelNotifier.
type Metamodel struct {
	paths   []string
	sources []source
	logger  *slog.Logger

	mu        sync.Mutex
	catalog   metadata.Catalog
	listeners []collab.MetamodelListener
}

var (
	_ collab.Metamodel         = (*Metamodel)(nil)
	_ collab.MetamodelNotifier = (*Metamodel)(nil)
)

// New creates a metamodel. The catalog is empty until Load.
func New(opts ...Option) *Metamodel {
	m := &Metamodel{logger: slog.Default(), catalog: metadata.Catalog{}}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Metamodel) ctx(ctx context.Context) context.Context {
	if ctxlog.FromContext(ctx) == slog.Default() {
		return ctxlog.WithLogger(ctx, m.logger)
	}
	return ctx
}

// Groups returns the lookup order for unqualified element names.
func (m *Metamodel) Groups() []string {
	return []string{string(metadata.GroupSource), string(metadata.GroupProcessor), string(metadata.GroupSink)}
}

// Load reads every manifest and returns the resulting catalog.
func (m *Metamodel) Load(ctx context.Context) (metadata.Catalog, error) {
	catalog, err := m.loadCatalog(m.ctx(ctx))
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.catalog = catalog
	m.mu.Unlock()
	return catalog, nil
}

// Catalog returns the catalog from the last successful Load.
func (m *Metamodel) Catalog() metadata.Catalog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog
}

// Refresh reloads the manifests and tells listeners. A failed reload keeps
// the previous catalog.
func (m *Metamodel) Refresh(ctx context.Context) error {
	listeners := m.snapshotListeners()
	for _, l := range listeners {
		l.MetadataAboutToChange()
	}
	if _, err := m.Load(ctx); err != nil {
		for _, l := range listeners {
			l.MetadataError(err)
		}
		return err
	}
	for _, l := range listeners {
		l.MetadataChanged()
	}
	return nil
}

func (m *Metamodel) Subscribe(l collab.MetamodelListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, l)
}

func (m *Metamodel) Unsubscribe(l collab.MetamodelListener) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = slices.DeleteFunc(m.listeners, func(x collab.MetamodelListener) bool { return x == l })
}

func (m *Metamodel) snapshotListeners() []collab.MetamodelListener {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.listeners)
}
