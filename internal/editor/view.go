package editor

import (
	"context"
	"fmt"

	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/layout"
)

// Zoom limits, in percent.
const (
	MinZoom     = 5
	MaxZoom     = 400
	ZoomStep    = 5
	DefaultZoom = 100
)

// DefaultGridSize is the grid spacing used when none is configured.
const DefaultGridSize = 10

// Viewport is the canvas area that FitToPage selected.
type Viewport struct {
	Min, Max graph.Point
}

// ZoomPercent returns the zoom level.
func (e *Editor) ZoomPercent() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.zoom
}

// SetZoomPercent sets the zoom level, clamped to [MinZoom, MaxZoom] and
// rounded to ZoomStep.
func (e *Editor) SetZoomPercent(percent int) {
	percent = (percent + ZoomStep/2) / ZoomStep * ZoomStep
	percent = max(MinZoom, min(MaxZoom, percent))
	e.mu.Lock()
	defer e.mu.Unlock()
	e.zoom = percent
}

// GridSize returns the grid spacing.
func (e *Editor) GridSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.grid
}

// SetGridSize sets the grid spacing. Non-positive sizes are ignored.
func (e *Editor) SetGridSize(size int) {
	if size <= 0 {
		return
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.grid = size
}

// ReadOnly reports whether mutations are refused.
func (e *Editor) ReadOnly() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.readOnly
}

// SetReadOnly toggles read-only mode. Leaving a drag running is not allowed
// in read-only mode, so an active gesture is cancelled.
func (e *Editor) SetReadOnly(readOnly bool) {
	e.mu.Lock()
	e.readOnly = readOnly
	e.mu.Unlock()
	if readOnly {
		e.loop.Post(func(context.Context) { e.drag.Cancel() })
	}
}

// Viewport returns the area selected by the last FitToPage.
func (e *Editor) Viewport() Viewport {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.viewport
}

// PerformLayout positions every node with the renderer's layout, or the
// built-in hierarchical layout, and fits the page to the result.
func (e *Editor) PerformLayout(ctx context.Context) error {
	if e.ReadOnly() {
		return ErrReadOnly
	}
	snap, err := e.Snapshot(ctx)
	if err != nil {
		return err
	}

	compute := e.layout.Compute
	if e.renderer != nil && e.renderer.Layout != nil {
		compute = e.renderer.Layout
	}
	positions, err := compute(ctx, snap)
	if err != nil {
		return fmt.Errorf("layout: %w", err)
	}

	return e.loop.Call(ctx, func(context.Context) error {
		err := e.model.Atomic(func() error {
			for _, n := range e.model.Nodes() {
				p, ok := positions[n.ID]
				if !ok || p == n.Position {
					continue
				}
				if err := e.model.MoveNode(n.ID, p); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("apply layout: %w", err)
		}
		e.fitToPage()
		return nil
	})
}

// FitToPage sets the viewport to the graph bounds plus one grid cell.
func (e *Editor) FitToPage(ctx context.Context) (Viewport, error) {
	var vp Viewport
	err := e.loop.Call(ctx, func(context.Context) error {
		vp = e.fitToPage()
		return nil
	})
	return vp, err
}

func (e *Editor) fitToPage() Viewport {
	lo, hi, ok := layout.Bounds(e.model)
	if !ok {
		return e.Viewport()
	}
	pad := float64(e.GridSize())
	vp := Viewport{
		Min: graph.Point{X: lo.X - pad, Y: lo.Y - pad},
		Max: graph.Point{X: hi.X + pad, Y: hi.Y + pad},
	}
	e.mu.Lock()
	e.viewport = vp
	e.mu.Unlock()
	return vp
}
