// Package layout provides the default node placement used when the renderer
// has no layout capability: a left-to-right hierarchy where each column is one
// BFS level from the stream roots.
package layout

import (
	"context"
	"math"

	"github.com/vk/flowgrid/internal/graph"
)

// Config configures the hierarchical layout.
type Config struct {
	Padding float64
	// ColumnGap is the horizontal space between node columns.
	ColumnGap float64
	// RowGap is the vertical space between nodes in a column.
	RowGap float64
}

// DefaultConfig returns the spacing used by the editor.
func DefaultConfig() Config {
	return Config{Padding: 50, ColumnGap: 60, RowGap: 40}
}

// Hierarchical arranges nodes in columns by distance from the roots.
type Hierarchical struct {
	config Config
}

// NewHierarchical creates a layout with cfg; zero fields take the defaults.
func NewHierarchical(cfg Config) *Hierarchical {
	def := DefaultConfig()
	if cfg.Padding == 0 {
		cfg.Padding = def.Padding
	}
	if cfg.ColumnGap == 0 {
		cfg.ColumnGap = def.ColumnGap
	}
	if cfg.RowGap == 0 {
		cfg.RowGap = def.RowGap
	}
	return &Hierarchical{config: cfg}
}

// Compute returns a position for every node of v.
func (h *Hierarchical) Compute(ctx context.Context, v graph.View) (map[string]graph.Point, error) {
	nodes := v.Nodes()
	positions := make(map[string]graph.Point, len(nodes))
	if len(nodes) == 0 {
		return positions, nil
	}

	// Roots are nodes with no incoming links.
	var roots []string
	for _, n := range nodes {
		if len(v.ConnectedLinks(n.ID, graph.Inbound)) == 0 {
			roots = append(roots, n.ID)
		}
	}
	if len(roots) == 0 {
		roots = []string{nodes[0].ID}
	}

	var levels [][]string
	visited := make(map[string]bool, len(nodes))
	for _, id := range roots {
		visited[id] = true
	}
	current := roots
	for len(current) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		levels = append(levels, current)
		var next []string
		for _, id := range current {
			for _, l := range v.ConnectedLinks(id, graph.Outbound) {
				if !visited[l.Target.Node] {
					visited[l.Target.Node] = true
					next = append(next, l.Target.Node)
				}
			}
		}
		current = next
	}

	// Nodes only reachable through a cycle join the last column.
	for _, n := range nodes {
		if !visited[n.ID] {
			levels[len(levels)-1] = append(levels[len(levels)-1], n.ID)
		}
	}

	x := h.config.Padding
	for _, level := range levels {
		y := h.config.Padding
		width := 0.0
		for _, id := range level {
			n, _ := v.Node(id)
			positions[id] = graph.Point{X: x, Y: y}
			y += n.Size.H + h.config.RowGap
			width = math.Max(width, n.Size.W)
		}
		x += width + h.config.ColumnGap
	}
	return positions, nil
}

// Bounds returns the smallest rectangle containing every node, as its top
// left and bottom right corners. ok is false for an empty view.
func Bounds(v graph.View) (min, max graph.Point, ok bool) {
	nodes := v.Nodes()
	if len(nodes) == 0 {
		return graph.Point{}, graph.Point{}, false
	}
	min = graph.Point{X: math.Inf(1), Y: math.Inf(1)}
	max = graph.Point{X: math.Inf(-1), Y: math.Inf(-1)}
	for _, n := range nodes {
		min.X = math.Min(min.X, n.Position.X)
		min.Y = math.Min(min.Y, n.Position.Y)
		max.X = math.Max(max.X, n.Position.X+n.Size.W)
		max.Y = math.Max(max.Y, n.Position.Y+n.Size.H)
	}
	return min, max, true
}
