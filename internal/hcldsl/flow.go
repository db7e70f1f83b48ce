package hcldsl

import (
	"context"
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/hashicorp/hcl/v2/hclwrite"
	"github.com/zclconf/go-cty/cty"

	"github.com/vk/flowgrid/internal/collab"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/graph"
	"github.com/vk/flowgrid/internal/metadata"
)

// FlowFilename is the file name used in diagnostics for flow text.
const FlowFilename = "flow.hcl"

const (
	blockNode = "node"
	blockLink = "link"
)

// TextToGraph parses flow text. Syntax and structure problems are returned as
// hcl.Diagnostics wrapped in the error.
func (m *Metamodel) TextToGraph(ctx context.Context, catalog metadata.Catalog, text string) (*graph.Snapshot, error) {
	logger := ctxlog.FromContext(m.ctx(ctx))

	file, diags := hclsyntax.ParseConfig([]byte(text), FlowFilename, hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse flow: %w", diags)
	}
	body := file.Body.(*hclsyntax.Body)

	for name, attr := range body.Attributes {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unexpected attribute",
			Detail:   fmt.Sprintf("Attribute %q is not allowed at the top level of a flow.", name),
			Subject:  attr.SrcRange.Ptr(),
		})
	}

	order := collab.GroupOrder(m)
	var nodes []*graph.Node
	var links []*graph.Link
	ids := make(map[string]bool)
	linkIDs := make(map[string]int)

	for _, block := range body.Blocks {
		switch block.Type {
		case blockNode:
			n, d := m.decodeNode(catalog, order, block)
			diags = append(diags, d...)
			if n == nil {
				continue
			}
			if ids[n.ID] {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Duplicate node",
					Detail:   fmt.Sprintf("A node with id %q is already defined.", n.ID),
					Subject:  block.DefRange().Ptr(),
				})
				continue
			}
			ids[n.ID] = true
			nodes = append(nodes, n)
		case blockLink:
			if d := expectLabels(block, "from", "to"); d.HasErrors() {
				diags = append(diags, d...)
				continue
			}
			from, to := block.Labels[0], block.Labels[1]
			for _, id := range []string{from, to} {
				if !ids[id] {
					diags = append(diags, &hcl.Diagnostic{
						Severity: hcl.DiagError,
						Summary:  "Unknown node",
						Detail:   fmt.Sprintf("Link refers to node %q, which is not defined before it.", id),
						Subject:  block.DefRange().Ptr(),
					})
				}
			}
			key := from + "->" + to
			linkIDs[key]++
			id := key
			if n := linkIDs[key]; n > 1 {
				id = fmt.Sprintf("%s#%d", key, n)
			}
			links = append(links, &graph.Link{
				ID:     id,
				Source: graph.Endpoint{Node: from, Port: graph.PortOutput},
				Target: graph.Endpoint{Node: to, Port: graph.PortInput},
			})
		default:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Unsupported block type",
				Detail:   fmt.Sprintf("Blocks of type %q are not expected here; use \"node\" or \"link\".", block.Type),
				Subject:  block.DefRange().Ptr(),
			})
		}
	}
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode flow: %w", diags)
	}
	logger.Debug("Parsed flow.", "nodes", len(nodes), "links", len(links))
	return graph.NewSnapshot(nodes, links), nil
}

func (m *Metamodel) decodeNode(catalog metadata.Catalog, order []metadata.Group, block *hclsyntax.Block) (*graph.Node, hcl.Diagnostics) {
	diags := expectLabels(block, "element", "id")
	if diags.HasErrors() {
		return nil, diags
	}
	for _, nested := range block.Body.Blocks {
		diags = append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Unexpected block",
			Detail:   fmt.Sprintf("Nodes only hold attributes; found block %q.", nested.Type),
			Subject:  nested.DefRange().Ptr(),
		})
	}

	props := make(map[string]string, len(block.Body.Attributes))
	for name, attr := range block.Body.Attributes {
		v, d := stringValue(attr.Expr)
		diags = append(diags, d...)
		props[name] = v
	}
	if len(props) == 0 {
		props = nil
	}

	r := block.Range()
	return &graph.Node{
		ID:       block.Labels[1],
		Metadata: resolve(catalog, order, block.Labels[0]),
		Props:    props,
		Range: &graph.TextRange{
			Start: graph.TextPos{Line: r.Start.Line, Column: r.Start.Column},
			End:   graph.TextPos{Line: r.End.Line, Column: r.End.Column},
		},
	}, diags
}

func expectLabels(block *hclsyntax.Block, names ...string) hcl.Diagnostics {
	if len(block.Labels) == len(names) {
		return nil
	}
	return hcl.Diagnostics{{
		Severity: hcl.DiagError,
		Summary:  "Wrong number of labels",
		Detail:   fmt.Sprintf("A %s block needs labels %s.", block.Type, strings.Join(names, " and ")),
		Subject:  block.DefRange().Ptr(),
	}}
}

// resolve finds the element for a node label, producing unresolved metadata
// when the catalog does not know it.
func resolve(catalog metadata.Catalog, order []metadata.Group, label string) *metadata.Element {
	if group, name, ok := strings.Cut(label, ":"); ok {
		if e, found := catalog.Lookup(metadata.Group(group), name); found {
			return e
		}
		return metadata.UnresolvedElement(name, metadata.Group(group))
	}
	if e, found := catalog.Find(label, order); found {
		return e
	}
	return metadata.UnresolvedElement(label, metadata.GroupProcessor)
}

// label is the inverse of resolve against the current catalog.
func (m *Metamodel) label(n *graph.Node) string {
	name, group := n.Name(), n.Group()
	if n.Metadata == nil || n.Metadata.Unresolved {
		if group == metadata.GroupProcessor {
			return name
		}
		return string(group) + ":" + name
	}
	if e, ok := m.Catalog().Find(name, collab.GroupOrder(m)); ok && e.Group == group {
		return name
	}
	return string(group) + ":" + name
}

// GraphToText renders a graph as flow text.
func (m *Metamodel) GraphToText(ctx context.Context, g *graph.Snapshot) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	f := hclwrite.NewEmptyFile()
	body := f.Body()
	for i, n := range g.Nodes() {
		if i > 0 {
			body.AppendNewline()
		}
		block := body.AppendNewBlock(blockNode, []string{m.label(n), n.ID})
		for _, key := range n.PropKeys() {
			if !hclsyntax.ValidIdentifier(key) {
				return "", fmt.Errorf("node %q: property %q is not a valid attribute name", n.ID, key)
			}
			block.Body().SetAttributeValue(key, cty.StringVal(n.Props[key]))
		}
	}
	links := g.Links()
	if len(links) > 0 && len(g.Nodes()) > 0 {
		body.AppendNewline()
	}
	for _, l := range links {
		body.AppendNewBlock(blockLink, []string{l.Source.Node, l.Target.Node})
	}
	return string(hclwrite.Format(f.Bytes())), nil
}
