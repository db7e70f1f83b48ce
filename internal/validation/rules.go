package validation

import (
	"context"
	"fmt"

	"github.com/vk/flowgrid/internal/graph"
)

// Rule produces markers for a graph view.
type Rule interface {
	Name() string
	Check(ctx context.Context, v graph.View) (Markers, error)
}

// RuleFunc adapts a function to Rule.
type RuleFunc struct {
	RuleName string
	Fn       func(ctx context.Context, v graph.View) (Markers, error)
}

func (r RuleFunc) Name() string { return r.RuleName }

func (r RuleFunc) Check(ctx context.Context, v graph.View) (Markers, error) {
	return r.Fn(ctx, v)
}

// BuiltinRules returns the link-count, unknown-element and unrecognized
// property checks.
func BuiltinRules() []Rule {
	return []Rule{
		RuleFunc{RuleName: "link-count", Fn: checkLinkCounts},
		RuleFunc{RuleName: "unknown-element", Fn: checkUnknownElements},
		RuleFunc{RuleName: "unrecognized-property", Fn: checkProperties},
	}
}

func checkLinkCounts(_ context.Context, v graph.View) (Markers, error) {
	out := Markers{}
	for _, n := range v.Nodes() {
		capacity := n.Capacity()
		var minIn, minOut *int
		var xor bool
		if n.Metadata != nil && n.Metadata.Constraints != nil {
			minIn = n.Metadata.Constraints.MinIncoming
			minOut = n.Metadata.Constraints.MinOutgoing
			xor = n.Metadata.Constraints.XorSourceSink
		}
		incoming := len(v.ConnectedLinks(n.ID, graph.Inbound))
		outgoing := len(v.ConnectedLinks(n.ID, graph.Outbound))

		if incoming > capacity.In {
			msg := fmt.Sprintf("Max allowed number of incoming links is %d", capacity.In)
			if capacity.In == 0 {
				msg = "Sources must appear at the start of a stream"
			}
			out.Add(n.ID, Marker{Severity: SeverityError, Message: msg, Range: n.Range})
		}
		if minIn != nil && incoming < *minIn {
			out.Add(n.ID, Marker{
				Severity: SeverityError,
				Message:  fmt.Sprintf("Min allowed number of incoming links is %d", *minIn),
				Range:    n.Range,
			})
		}
		if outgoing > capacity.Out {
			msg := fmt.Sprintf("Max allowed number of outgoing links is %d", capacity.Out)
			if capacity.Out == 0 {
				msg = "Sinks must appear at the end of a stream"
			}
			out.Add(n.ID, Marker{Severity: SeverityError, Message: msg, Range: n.Range})
		}
		if minOut != nil && outgoing < *minOut {
			out.Add(n.ID, Marker{
				Severity: SeverityError,
				Message:  fmt.Sprintf("Min allowed number of outgoing links is %d", *minOut),
				Range:    n.Range,
			})
		}
		if xor && incoming > 0 && outgoing > 0 {
			out.Add(n.ID, Marker{
				Severity: SeverityError,
				Message:  "Node can either have incoming or outgoing links, but not both",
				Range:    n.Range,
			})
		}
	}
	return out, nil
}

func checkUnknownElements(_ context.Context, v graph.View) (Markers, error) {
	out := Markers{}
	for _, n := range v.Nodes() {
		if n.Metadata != nil && !n.Metadata.Unresolved {
			continue
		}
		msg := fmt.Sprintf("Unknown element '%s'", n.Name())
		if n.Metadata != nil && n.Metadata.Group != "" {
			msg += fmt.Sprintf(" from group '%s'.", n.Metadata.Group)
		}
		out.Add(n.ID, Marker{Severity: SeverityError, Message: msg, Range: n.Range})
	}
	return out, nil
}

func checkProperties(_ context.Context, v graph.View) (Markers, error) {
	out := Markers{}
	for _, n := range v.Nodes() {
		if n.Metadata == nil || n.Metadata.Unresolved || n.Metadata.AllowAdditionalProperties {
			continue
		}
		for _, key := range n.PropKeys() {
			if _, ok := n.Metadata.Property(key); ok {
				continue
			}
			out.Add(n.ID, Marker{
				Severity: SeverityError,
				Message:  fmt.Sprintf("unrecognized option '%s' for module '%s'", key, n.Name()),
				Range:    n.Range,
			})
		}
	}
	return out, nil
}

// ParseError builds the document marker reported when text cannot be turned
// into a graph.
func ParseError(err error, r *graph.TextRange) Markers {
	return Markers{DocumentID: {{Severity: SeverityError, Message: err.Error(), Range: r}}}
}
