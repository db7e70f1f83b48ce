// Package celrules evaluates element-declared validation rules written in CEL.
//
// Rules are compiled once per catalog. Each condition sees the node through
// these variables:
//
//	props     map(string, string)  node properties
//	incoming  int                  number of inbound links
//	outgoing  int                  number of outbound links
//	name      string               element name
//	group     string               element group
//
// A condition that evaluates to false yields a marker whose message is the
// rule name. Conditions that fail to compile, fail to evaluate or do not
// return a bool yield an error marker.
package celrules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/ext"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
	"github.com/vk/flowgrid/internal/validation"
)

type compiled struct {
	rule    metadata.Rule
	program cel.Program
	err     error
}

type elementKey struct {
	group metadata.Group
	name  string
}

// RuleSet holds the compiled rules of a catalog. It implements
// validation.Rule and is safe for concurrent use.
type RuleSet struct {
	env    *cel.Env
	rules  map[elementKey][]compiled
	logger *slog.Logger
}

// NewEnv returns the CEL environment rule conditions are checked against.
func NewEnv() (*cel.Env, error) {
	return cel.NewEnv(
		ext.Strings(),
		cel.Variable("props", cel.MapType(cel.StringType, cel.StringType)),
		cel.Variable("incoming", cel.IntType),
		cel.Variable("outgoing", cel.IntType),
		cel.Variable("name", cel.StringType),
		cel.Variable("group", cel.StringType),
	)
}

// Compile compiles every rule declared in the catalog. Individual rule
// failures are kept and reported as markers; the error is only set when the
// environment itself cannot be built.
func Compile(catalog metadata.Catalog, logger *slog.Logger) (*RuleSet, error) {
	if logger == nil {
		logger = slog.Default()
	}
	env, err := NewEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	rs := &RuleSet{env: env, rules: map[elementKey][]compiled{}, logger: logger}
	for _, e := range catalog.Elements() {
		for _, r := range e.Rules {
			c := compiled{rule: r}
			c.program, c.err = rs.compile(r.Condition)
			if c.err != nil {
				logger.Warn("Rule did not compile.", "element", e.Name, "rule", r.Name, "error", c.err)
			}
			key := elementKey{group: e.Group, name: e.Name}
			rs.rules[key] = append(rs.rules[key], c)
		}
	}
	return rs, nil
}

func (rs *RuleSet) compile(expr string) (cel.Program, error) {
	ast, issues := rs.env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("condition must be a bool, got %s", ast.OutputType())
	}
	prg, err := rs.env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %w", err)
	}
	return prg, nil
}

// Len returns the number of compiled rules.
func (rs *RuleSet) Len() int {
	n := 0
	for _, list := range rs.rules {
		n += len(list)
	}
	return n
}

func (rs *RuleSet) Name() string { return "cel" }

// Check evaluates the rules of every node's element.
func (rs *RuleSet) Check(ctx context.Context, v graph.View) (validation.Markers, error) {
	out := validation.Markers{}
	for _, n := range v.Nodes() {
		if n.Metadata == nil {
			continue
		}
		list := rs.rules[elementKey{group: n.Metadata.Group, name: n.Metadata.Name}]
		if len(list) == 0 {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vars := map[string]any{
			"props":    propsOf(n),
			"incoming": int64(len(v.ConnectedLinks(n.ID, graph.Inbound))),
			"outgoing": int64(len(v.ConnectedLinks(n.ID, graph.Outbound))),
			"name":     n.Metadata.Name,
			"group":    string(n.Metadata.Group),
		}
		for _, c := range list {
			if marker, violated := rs.evaluate(c, vars); violated {
				marker.Range = n.Range
				out.Add(n.ID, marker)
			}
		}
	}
	return out, nil
}

func (rs *RuleSet) evaluate(c compiled, vars map[string]any) (validation.Marker, bool) {
	if c.err != nil {
		return validation.Marker{
			Severity: validation.SeverityError,
			Message:  fmt.Sprintf("rule '%s': %v", c.rule.Name, c.err),
		}, true
	}
	out, _, err := c.program.Eval(vars)
	if err != nil {
		return validation.Marker{
			Severity: validation.SeverityError,
			Message:  fmt.Sprintf("rule '%s': %v", c.rule.Name, err),
		}, true
	}
	ok, isBool := out.Value().(bool)
	if !isBool {
		return validation.Marker{
			Severity: validation.SeverityError,
			Message:  fmt.Sprintf("rule '%s': condition returned %v", c.rule.Name, out.Type()),
		}, true
	}
	if ok {
		return validation.Marker{}, false
	}
	return validation.Marker{
		Severity: validation.ParseSeverity(c.rule.Severity),
		Message:  c.rule.Name,
	}, true
}

// propsOf returns the node properties with declared defaults filled in.
func propsOf(n *graph.Node) map[string]string {
	props := make(map[string]string, len(n.Props))
	for _, name := range n.Metadata.PropertyNames() {
		if p, _ := n.Metadata.Property(name); p.HasDefault {
			props[name] = p.Default
		}
	}
	for k, v := range n.Props {
		props[k] = v
	}
	return props
}
