package validation

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/vk/flowgrid/internal/graph"
)

// Decorator receives the marker set after each applied pass.
type Decorator func(Markers)

// Pipeline runs rules over a graph and keeps the last applied markers.
type Pipeline struct {
	mu       sync.RWMutex
	rules    []Rule
	decorate Decorator
	logger   *slog.Logger
	last     Markers
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithDecorator hands every applied marker set to d.
func WithDecorator(d Decorator) Option {
	return func(p *Pipeline) { p.decorate = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

// New creates a pipeline over the given rules, evaluated in order.
func New(rules []Rule, opts ...Option) *Pipeline {
	p := &Pipeline{rules: slices.Clone(rules), logger: slog.Default(), last: Markers{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// SetRules replaces the rule set. It may run while Validate passes are in
// flight; those finish with the rules they started with.
func (p *Pipeline) SetRules(rules []Rule) {
	rules = slices.Clone(rules)
	p.mu.Lock()
	p.rules = rules
	p.mu.Unlock()
}

func (p *Pipeline) currentRules() []Rule {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.rules
}

// Validate recomputes the markers of v. It does not touch the pipeline's
// stored markers and is safe to call on a snapshot from any goroutine. The
// only error is the context's.
func (p *Pipeline) Validate(ctx context.Context, v graph.View) (Markers, error) {
	out := Markers{}
	for _, r := range p.currentRules() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		markers, err := safeCheck(ctx, r, v)
		if err != nil {
			p.logger.Warn("Validation rule failed.", "rule", r.Name(), "error", err)
			out.Add(DocumentID, Marker{
				Severity: SeverityError,
				Message:  fmt.Sprintf("rule %s failed: %v", r.Name(), err),
			})
			continue
		}
		out.Merge(markers)
	}
	out.normalize()
	return out, nil
}

// Apply stores markers as the current set and hands them to the decorator.
func (p *Pipeline) Apply(m Markers) {
	if m == nil {
		m = Markers{}
	}
	p.last = m
	if p.decorate != nil {
		p.decorate(m)
	}
}

// Markers returns the last applied marker set.
func (p *Pipeline) Markers() Markers { return p.last }

func safeCheck(ctx context.Context, r Rule, v graph.View) (m Markers, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	return r.Check(ctx, v)
}
