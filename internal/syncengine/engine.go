package syncengine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/vk/flowgrid/internal/collab"
	"github.com/vk/flowgrid/internal/debounce"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/loop"
	"github.com/vk/flowgrid/internal/metadata"
	"github.com/vk/flowgrid/internal/metrics"
	"github.com/vk/flowgrid/internal/validation"
	"k8s.io/utils/clock"
)

// Channel names, also used as metric labels.
const (
	ChannelGraphToText = "graph-to-text"
	ChannelTextToGraph = "text-to-graph"
	ChannelValidation  = "validation"
)

// NotificationKind identifies an engine notification.
type NotificationKind int

const (
	TextChanged NotificationKind = iota + 1
	MarkersChanged
	GraphChanged
	SyncFailed
)

func (k NotificationKind) String() string {
	switch k {
	case TextChanged:
		return "text-changed"
	case MarkersChanged:
		return "markers-changed"
	case GraphChanged:
		return "graph-changed"
	case SyncFailed:
		return "sync-failed"
	default:
		return "unknown"
	}
}

// Notification is delivered on the loop after the engine state changed.
type Notification struct {
	Kind    NotificationKind
	Text    string
	Markers validation.Markers
	Event   *graph.Event
	Channel string
	Err     error
}

// Config configures an Engine.
type Config struct {
	// Window is the quiescence window of every channel.
	Window time.Duration
	// Clock drives the debounce timers.
	Clock clock.WithDelayedExecution
	// DisableGraphToText turns off text regeneration from the graph.
	DisableGraphToText bool
	Renderer           *collab.Renderer
	Metrics            *metrics.Registry
	Logger             *slog.Logger
	Notify             func(Notification)
}

// Engine synchronizes a graph model with its text.
type Engine struct {
	loop      *loop.Loop
	model     *graph.Model
	metamodel collab.Metamodel
	pipeline  *validation.Pipeline
	renderer  *collab.Renderer
	metrics   *metrics.Registry
	logger    *slog.Logger
	notify    func(Notification)

	graphToText *debounce.Channel[struct{}]
	textToGraph *debounce.Channel[string]
	validate    *debounce.Channel[struct{}]

	// Loop-owned state.
	baseCtx      context.Context
	text         string
	catalog      metadata.Catalog
	g2tEnabled   bool
	parseMarkers validation.Markers
	inflight     int
	unsubscribe  func()
	// revision counts local semantic graph edits; textRevision is its value
	// when the pending text was handed to text-to-graph.
	revision     uint64
	textRevision uint64
	replacing    bool

	wg sync.WaitGroup
}

// New creates an engine. Start must be called on the loop before use.
func New(l *loop.Loop, m *graph.Model, mm collab.Metamodel, p *validation.Pipeline, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		loop:       l,
		model:      m,
		metamodel:  mm,
		pipeline:   p,
		renderer:   cfg.Renderer,
		metrics:    cfg.Metrics,
		logger:     logger,
		notify:     cfg.Notify,
		g2tEnabled: !cfg.DisableGraphToText,
		baseCtx:    context.Background(),
		catalog:    metadata.Catalog{},
	}
	post := func(fn func()) {
		l.Post(func(context.Context) { fn() })
	}
	coalesce := func(channel string) debounce.Option {
		return debounce.WithCoalesceHook(func() { e.metrics.RecordCoalesced(channel) })
	}
	e.graphToText = debounce.New(ChannelGraphToText, cfg.Window, cfg.Clock, post, e.runGraphToText, coalesce(ChannelGraphToText))
	e.textToGraph = debounce.New(ChannelTextToGraph, cfg.Window, cfg.Clock, post, e.runTextToGraph, coalesce(ChannelTextToGraph))
	e.validate = debounce.New(ChannelValidation, cfg.Window, cfg.Clock, post, e.runValidation, coalesce(ChannelValidation))
	return e
}

// Start subscribes to the model. ctx is the loop context; collaborator calls
// inherit its values and cancellation. Loop-only.
func (e *Engine) Start(ctx context.Context) {
	e.baseCtx = loop.Detach(ctx)
	e.unsubscribe = e.model.Subscribe(e.onGraphEvent)
}

// Stop cancels pending work and unsubscribes from the model. Results still in
// flight are discarded. Loop-only.
func (e *Engine) Stop() {
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.graphToText.Stop()
	e.textToGraph.Stop()
	e.validate.Stop()
}

// Wait blocks until every collaborator goroutine has returned.
func (e *Engine) Wait() { e.wg.Wait() }

// Text returns the held text. Loop-only.
func (e *Engine) Text() string { return e.text }

// Markers returns the last applied markers. Loop-only.
func (e *Engine) Markers() validation.Markers { return e.pipeline.Markers() }

// Catalog returns the catalog text is resolved against. Loop-only.
func (e *Engine) Catalog() metadata.Catalog { return e.catalog }

// SetCatalog replaces the catalog used by text-to-graph. Loop-only.
func (e *Engine) SetCatalog(c metadata.Catalog) {
	if c == nil {
		c = metadata.Catalog{}
	}
	e.catalog = c
}

// GraphToTextSync reports whether graph changes regenerate text. Loop-only.
func (e *Engine) GraphToTextSync() bool { return e.g2tEnabled }

// SetGraphToTextSync enables or disables text regeneration. Loop-only.
func (e *Engine) SetGraphToTextSync(enabled bool) {
	e.g2tEnabled = enabled
	if !enabled {
		e.graphToText.Invalidate()
	}
}

// SetText replaces the held text and schedules a rebuild of the graph. A
// pending regeneration of the text from the graph is dropped. Loop-only.
func (e *Engine) SetText(text string) {
	if text == e.text {
		return
	}
	e.text = text
	e.textRevision = e.revision
	e.graphToText.Invalidate()
	e.textToGraph.Trigger(text)
}

// Rebuild schedules a rebuild of the graph from the held text, for example
// after the catalog changed. Loop-only.
func (e *Engine) Rebuild() {
	e.textRevision = e.revision
	e.graphToText.Invalidate()
	e.textToGraph.Trigger(e.text)
}

// RegenerateText schedules text regeneration from the graph. Loop-only.
func (e *Engine) RegenerateText() {
	if e.g2tEnabled {
		e.graphToText.Trigger(struct{}{})
	}
}

// PostValidation schedules a validation pass. Loop-only.
func (e *Engine) PostValidation() {
	e.validate.Trigger(struct{}{})
}

// Flush runs every pending channel now instead of waiting for its timer, text
// first. It reports whether anything ran. Loop-only.
func (e *Engine) Flush() bool {
	ran := e.textToGraph.Flush()
	if e.graphToText.Flush() {
		ran = true
	}
	if e.validate.Flush() {
		ran = true
	}
	return ran
}

// Busy reports whether work is pending or in flight. Loop-only.
func (e *Engine) Busy() bool {
	return e.inflight > 0 || e.textToGraph.Pending() || e.graphToText.Pending() || e.validate.Pending()
}

// Settle flushes the channels and waits until the engine is idle. It must be
// called from outside the loop.
func (e *Engine) Settle(ctx context.Context) error {
	ticker := time.NewTicker(time.Millisecond)
	defer ticker.Stop()
	for {
		var busy bool
		err := e.loop.Call(ctx, func(context.Context) error {
			e.Flush()
			busy = e.Busy()
			return nil
		})
		if err != nil {
			return err
		}
		if !busy {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func (e *Engine) onGraphEvent(ev graph.Event) {
	switch {
	case ev.Structural():
		e.graphEdited()
	case ev.Kind == graph.EventPropertyChanged:
		path := "props/" + ev.Property
		if e.renderer != nil && e.renderer.RefreshVisuals != nil {
			e.renderer.RefreshVisuals(ev.ID, path)
		}
		if e.renderer.Semantic(path) {
			e.graphEdited()
		}
	}
	changed := ev
	e.emit(Notification{Kind: GraphChanged, Event: &changed})
}

func (e *Engine) graphEdited() {
	if !e.replacing {
		e.revision++
	}
	e.RegenerateText()
	e.PostValidation()
}

func (e *Engine) emit(n Notification) {
	if e.notify != nil {
		e.notify(n)
	}
}

// async runs work off the loop and hands its result back to apply on the loop.
func (e *Engine) async(channel string, work func(ctx context.Context) func()) {
	e.inflight++
	e.wg.Add(1)
	ctx := e.baseCtx
	go func() {
		defer e.wg.Done()
		apply := work(ctx)
		posted := e.loop.Post(func(context.Context) {
			e.inflight--
			apply()
		})
		if !posted {
			e.logger.Debug("Result dropped, loop stopped.", "channel", channel)
		}
	}()
}

func (e *Engine) stale(channel string, gen uint64) {
	e.metrics.RecordStale(channel)
	e.logger.Debug("Discarding stale result.", "channel", channel, "generation", gen)
}

func (e *Engine) failed(channel string, err error) {
	e.logger.Warn("Sync failed.", "channel", channel, "error", err)
	e.emit(Notification{Kind: SyncFailed, Channel: channel, Err: err})
}

func (e *Engine) runGraphToText(gen uint64, _ struct{}) {
	if !e.g2tEnabled {
		return
	}
	snap := e.model.Snapshot()
	e.async(ChannelGraphToText, func(ctx context.Context) func() {
		start := time.Now()
		text, err := e.metamodel.GraphToText(ctx, snap)
		e.metrics.RecordSyncRun(ChannelGraphToText, time.Since(start), err)
		return func() {
			if !e.graphToText.Current(gen) {
				e.stale(ChannelGraphToText, gen)
				return
			}
			if err != nil {
				e.failed(ChannelGraphToText, fmt.Errorf("graph to text: %w", err))
				return
			}
			if text == e.text {
				e.logger.Debug("Generated text unchanged.")
				return
			}
			e.text = text
			e.emit(Notification{Kind: TextChanged, Text: text})
		}
	})
}

func (e *Engine) runTextToGraph(gen uint64, text string) {
	catalog := e.catalog
	rev := e.textRevision
	e.async(ChannelTextToGraph, func(ctx context.Context) func() {
		start := time.Now()
		snap, err := e.metamodel.TextToGraph(ctx, catalog, text)
		e.metrics.RecordSyncRun(ChannelTextToGraph, time.Since(start), err)
		return func() {
			if !e.textToGraph.Current(gen) {
				e.stale(ChannelTextToGraph, gen)
				return
			}
			if e.revision != rev {
				// The graph was edited after this text was set; the edit wins
				// and the text is regenerated from it.
				e.stale(ChannelTextToGraph, gen)
				e.RegenerateText()
				return
			}
			e.applyGraph(snap, err)
		}
	})
}

func (e *Engine) applyGraph(snap *graph.Snapshot, err error) {
	if err == nil {
		e.replacing = true
		err = e.model.Replace(snap)
		e.replacing = false
	}
	if err != nil {
		e.parseMarkers = validation.ParseError(err, nil)
		e.failed(ChannelTextToGraph, fmt.Errorf("text to graph: %w", err))
		e.PostValidation()
		return
	}
	e.parseMarkers = nil
	e.PostValidation()
}

func (e *Engine) runValidation(gen uint64, _ struct{}) {
	snap := e.model.Snapshot()
	e.async(ChannelValidation, func(ctx context.Context) func() {
		start := time.Now()
		markers, err := e.pipeline.Validate(ctx, snap)
		e.metrics.RecordSyncRun(ChannelValidation, time.Since(start), err)
		return func() {
			if !e.validate.Current(gen) {
				e.stale(ChannelValidation, gen)
				return
			}
			if err != nil {
				e.failed(ChannelValidation, fmt.Errorf("validate: %w", err))
				return
			}
			e.applyMarkers(markers)
		}
	})
}

func (e *Engine) applyMarkers(markers validation.Markers) {
	if len(e.parseMarkers) > 0 {
		merged := validation.Markers{}
		merged.Merge(markers)
		merged.Merge(e.parseMarkers)
		markers = merged
	}
	previous := e.pipeline.Markers()
	e.pipeline.Apply(markers)
	e.metrics.SetMarkers(markers.Count(validation.SeverityError), markers.Count(validation.SeverityWarning))
	if previous.Equal(markers) {
		return
	}
	e.emit(Notification{Kind: MarkersChanged, Markers: markers})
}
