package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/flowgrid/internal/celrules"
	"github.com/vk/flowgrid/internal/collab"
	"github.com/vk/flowgrid/internal/dnd"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/layout"
	"github.com/vk/flowgrid/internal/loop"
	"github.com/vk/flowgrid/internal/metadata"
	"github.com/vk/flowgrid/internal/metrics"
	"github.com/vk/flowgrid/internal/syncengine"
	"github.com/vk/flowgrid/internal/topology"
	"github.com/vk/flowgrid/internal/validation"
	"k8s.io/utils/clock"
)

var (
	// ErrReadOnly is returned by mutations while the editor is read-only.
	ErrReadOnly = errors.New("editor is read-only")
	// ErrNoSelection is returned by DeleteSelectedNode when nothing is selected.
	ErrNoSelection = errors.New("no node selected")
	// ErrNoMetamodel is returned by Open when the editor has no metamodel.
	ErrNoMetamodel = errors.New("no metamodel configured")
	// ErrNoElement is returned when an operation needs element metadata and
	// none was given or found.
	ErrNoElement = errors.New("element not found")
)

// Notification kinds delivered to subscribers.
const (
	TextChanged    = syncengine.TextChanged
	MarkersChanged = syncengine.MarkersChanged
	GraphChanged   = syncengine.GraphChanged
	SyncFailed     = syncengine.SyncFailed
)

// Notification is an editor change notification.
type Notification = syncengine.Notification

// Options configures an Editor. Only Metamodel is required.
type Options struct {
	Metamodel collab.Metamodel
	Renderer  *collab.Renderer
	// Policy defaults to collab.DefaultPolicy.
	Policy *collab.Policy

	Debounce        time.Duration
	Clock           clock.WithDelayedExecution
	ProximityRadius float64
	GridSize        int
	ReadOnly        bool
	// DisableGraphToText stops graph edits from regenerating the text.
	DisableGraphToText bool

	Metrics *metrics.Registry
	Logger  *slog.Logger
}

// Editor implements collab.Context.
type Editor struct {
	metamodel collab.Metamodel
	renderer  *collab.Renderer
	policy    *collab.Policy
	metrics   *metrics.Registry
	logger    *slog.Logger

	loop     *loop.Loop
	model    *graph.Model
	topology *topology.Editor
	resolver *dnd.Resolver
	drag     *dnd.Session
	pipeline *validation.Pipeline
	sync     *syncengine.Engine
	layout   *layout.Hierarchical

	// Loop-owned state.
	loopCtx   context.Context
	catalog   metadata.Catalog
	selection string
	decorated map[string]bool

	mu          sync.Mutex
	zoom        int
	grid        int
	readOnly    bool
	viewport    Viewport
	subscribers map[int]func(Notification)
	nextSub     int
	metaUnsub   func()
}

var _ collab.Context = (*Editor)(nil)

// New creates an editor. Nothing runs until Run is called.
func New(opts Options) *Editor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	policy := opts.Policy
	if policy == nil {
		policy = collab.DefaultPolicy()
	}
	grid := opts.GridSize
	if grid <= 0 {
		grid = DefaultGridSize
	}

	e := &Editor{
		metamodel:   opts.Metamodel,
		renderer:    opts.Renderer,
		policy:      policy,
		metrics:     opts.Metrics,
		logger:      logger,
		loop:        loop.New(logger),
		resolver:    dnd.NewResolver(opts.ProximityRadius),
		layout:      layout.NewHierarchical(layout.DefaultConfig()),
		loopCtx:     context.Background(),
		catalog:     metadata.Catalog{},
		decorated:   make(map[string]bool),
		zoom:        DefaultZoom,
		grid:        grid,
		readOnly:    opts.ReadOnly,
		subscribers: make(map[int]func(Notification)),
	}

	var modelOpts []graph.Option
	if policy.AllowDuplicateLinks {
		modelOpts = append(modelOpts, graph.WithDuplicateLinks())
	}
	e.model = graph.New(modelOpts...)
	e.model.Subscribe(e.onGraphEvent)

	e.topology = topology.New(e.model,
		topology.WithLogger(logger),
		topology.WithLinkValidator(e.allowLink),
		topology.WithPreDelete(e.preDelete),
		topology.WithObserver(e.metrics.RecordTopologyOperation),
	)
	e.drag = dnd.NewSession(e.resolveDrag, dnd.Feedback{
		Show: func(d dnd.Descriptor) {
			if policy.ShowDragFeedback != nil {
				policy.ShowDragFeedback(e, d)
			}
		},
		Hide: func(d dnd.Descriptor) {
			if policy.HideDragFeedback != nil {
				policy.HideDragFeedback(e, d)
			}
		},
	}, logger)
	e.pipeline = validation.New(validation.BuiltinRules(),
		validation.WithLogger(logger),
		validation.WithDecorator(e.decorate),
	)
	if policy.Validate != nil {
		e.pipeline.SetRules([]validation.Rule{validation.RuleFunc{RuleName: "policy", Fn: policy.Validate}})
	}
	e.sync = syncengine.New(e.loop, e.model, opts.Metamodel, e.pipeline, syncengine.Config{
		Window:             opts.Debounce,
		Clock:              opts.Clock,
		DisableGraphToText: opts.DisableGraphToText,
		Renderer:           opts.Renderer,
		Metrics:            opts.Metrics,
		Logger:             logger,
		Notify:             e.publish,
	})
	// First task on the loop, whenever Run starts it.
	e.loop.Post(func(ctx context.Context) {
		e.loopCtx = ctx
		e.sync.Start(ctx)
		e.logger.Debug("Editor loop started.")
	})
	return e
}

// Run drives the editor loop until ctx is cancelled.
func (e *Editor) Run(ctx context.Context) error {
	err := e.loop.Run(ctx)
	e.sync.Wait()
	return err
}

// Do runs fn on the loop with the editor as policy context.
func (e *Editor) Do(ctx context.Context, fn func(ctx context.Context, ec collab.Context) error) error {
	return e.loop.Call(ctx, func(ctx context.Context) error { return fn(ctx, e) })
}

// Open loads the element catalog, compiles element rules and starts
// listening for metadata changes.
func (e *Editor) Open(ctx context.Context) error {
	if e.metamodel == nil {
		return ErrNoMetamodel
	}
	catalog, err := e.metamodel.Load(ctx)
	if err != nil {
		return fmt.Errorf("load metadata: %w", err)
	}
	if err := e.loop.Call(ctx, func(context.Context) error {
		e.applyCatalog(catalog)
		return nil
	}); err != nil {
		return err
	}

	if notifier, ok := e.metamodel.(collab.MetamodelNotifier); ok {
		listener := &collab.ListenerFuncs{
			OnError:         e.metadataError,
			OnAboutToChange: func() { e.logger.Debug("Metadata about to change.") },
			OnChanged:       e.metadataChanged,
		}
		notifier.Subscribe(listener)
		e.mu.Lock()
		e.metaUnsub = func() { notifier.Unsubscribe(listener) }
		e.mu.Unlock()
	}
	e.logger.Info("Editor opened.", "elements", catalog.Len())
	return nil
}

// Close stops listening for metadata changes and drops pending sync work.
// Cancel the Run context afterwards to stop the loop.
func (e *Editor) Close(ctx context.Context) error {
	e.mu.Lock()
	unsub := e.metaUnsub
	e.metaUnsub = nil
	e.mu.Unlock()
	if unsub != nil {
		unsub()
	}
	return e.loop.Call(ctx, func(context.Context) error {
		e.drag.Cancel()
		e.sync.Stop()
		return nil
	})
}

// applyCatalog swaps in a new catalog. Loop-only.
func (e *Editor) applyCatalog(catalog metadata.Catalog) {
	if catalog == nil {
		catalog = metadata.Catalog{}
	}
	e.catalog = catalog
	e.sync.SetCatalog(catalog)
	if e.policy.Validate != nil {
		return
	}
	rules := validation.BuiltinRules()
	ruleSet, err := celrules.Compile(catalog, e.logger)
	if err != nil {
		e.logger.Warn("Element rules unavailable.", "error", err)
	} else if ruleSet.Len() > 0 {
		rules = append(rules, ruleSet)
	}
	e.pipeline.SetRules(rules)
}

func (e *Editor) metadataChanged() {
	e.loop.Post(func(ctx context.Context) {
		base := loop.Detach(ctx)
		go func() {
			catalog, err := e.metamodel.Load(base)
			if err != nil {
				e.metadataError(fmt.Errorf("reload metadata: %w", err))
				return
			}
			e.loop.Post(func(context.Context) {
				e.applyCatalog(catalog)
				e.sync.Rebuild()
				e.logger.Info("Metadata reloaded.", "elements", catalog.Len())
			})
		}()
	})
}

func (e *Editor) metadataError(err error) {
	e.logger.Warn("Metadata error.", "error", err)
	e.loop.Post(func(context.Context) {
		e.publish(Notification{Kind: SyncFailed, Channel: "metadata", Err: err})
	})
}

// Subscribe registers fn for editor notifications. fn runs on the loop and
// must not block. The returned function removes the subscription.
func (e *Editor) Subscribe(fn func(Notification)) (unsubscribe func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextSub
	e.nextSub++
	e.subscribers[id] = fn
	return func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		delete(e.subscribers, id)
	}
}

func (e *Editor) publish(n Notification) {
	e.mu.Lock()
	fns := make([]func(Notification), 0, len(e.subscribers))
	for id := 0; id < e.nextSub; id++ {
		if fn, ok := e.subscribers[id]; ok {
			fns = append(fns, fn)
		}
	}
	e.mu.Unlock()
	for _, fn := range fns {
		fn(n)
	}
}

func (e *Editor) onGraphEvent(ev graph.Event) {
	switch ev.Kind {
	case graph.EventAdded:
		if ev.Element == graph.KindLink && ev.Link != nil && e.renderer != nil && e.renderer.CreateLink != nil {
			e.renderer.CreateLink(ev.Link)
		}
	case graph.EventRemoved, graph.EventCleared:
		if e.selection == "" {
			return
		}
		if _, ok := e.model.Node(e.selection); !ok {
			e.logger.Debug("Selection dropped.", "node", e.selection)
			e.selection = ""
		}
	}
}

// decorate hands markers to the renderer, clearing elements that no longer
// have any. Loop-only.
func (e *Editor) decorate(markers validation.Markers) {
	if e.renderer == nil || e.renderer.CreateDecoration == nil {
		return
	}
	for id := range e.decorated {
		if _, ok := markers[id]; !ok {
			e.renderer.CreateDecoration(id, nil)
			delete(e.decorated, id)
		}
	}
	for _, id := range markers.IDs() {
		e.renderer.CreateDecoration(id, markers[id])
		e.decorated[id] = true
	}
}

func (e *Editor) allowLink(_ graph.View, source, target graph.Endpoint) bool {
	if vp := e.policy.ValidatePort; vp != nil {
		if !vp(e, source.Node, source.Port) || !vp(e, target.Node, target.Port) {
			return false
		}
	}
	if vl := e.policy.ValidateLink; vl != nil && !vl(e, source, target) {
		return false
	}
	return true
}

func (e *Editor) preDelete(_ *topology.Editor, id string) error {
	if e.policy.PreDelete == nil {
		return nil
	}
	return e.policy.PreDelete(e.loopCtx, e, id)
}

// Graph returns the live graph. Loop-only.
func (e *Editor) Graph() graph.View { return e.model }

// Catalog returns the loaded catalog. Loop-only.
func (e *Editor) Catalog() metadata.Catalog { return e.catalog }

// Topology returns the topology editor bound to the graph. Loop-only.
func (e *Editor) Topology() *topology.Editor { return e.topology }
