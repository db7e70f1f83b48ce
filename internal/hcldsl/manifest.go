package hcldsl

import (
	"context"
	_ "embed"
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/fsutil"
	"github.com/vk/flowgrid/internal/metadata"
)

//go:embed builtin.hcl
var builtinManifest []byte

// BuiltinName is the file name reported for the embedded manifest.
const BuiltinName = "builtin.hcl"

type source struct {
	name string
	data []byte
}

// loadCatalog parses every manifest source. Later definitions of the same
// element replace earlier ones.
func (m *Metamodel) loadCatalog(ctx context.Context) (metadata.Catalog, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Manifest loading started.", "path_count", len(m.paths), "inline_count", len(m.sources))

	sources := append([]source(nil), m.sources...)
	files, err := fsutil.FindFilesByExtension(m.paths, ".hcl")
	if err != nil {
		return nil, fmt.Errorf("failed to find manifests: %w", err)
	}
	for _, f := range files {
		data, err := os.ReadFile(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest %s: %w", f, err)
		}
		sources = append(sources, source{name: f, data: data})
	}
	logger.Debug("Discovered manifests.", "count", len(sources))

	parser := hclparse.NewParser()
	catalog := metadata.Catalog{}
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		file, diags := parser.ParseHCL(src.data, src.name)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse manifest %s: %w", src.name, diags)
		}
		var root manifestFile
		if diags := gohcl.DecodeBody(file.Body, nil, &root); diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode manifest %s: %w", src.name, diags)
		}
		for _, block := range root.Elements {
			e, diags := translateElement(ctx, block)
			if diags.HasErrors() {
				return nil, fmt.Errorf("in manifest %s: %w", src.name, diags)
			}
			if _, exists := catalog.Lookup(e.Group, e.Name); exists {
				logger.Debug("Element redefined.", "group", e.Group, "name", e.Name, "file", src.name)
			}
			catalog.Add(e)
		}
	}
	logger.Debug("Manifest loading complete.", "elements", catalog.Len())
	return catalog, nil
}

// translateElement converts a decoded element block into catalog metadata.
func translateElement(ctx context.Context, b *elementBlock) (*metadata.Element, hcl.Diagnostics) {
	ctx = ctxlog.With(ctx, "group", b.Group, "element", b.Name)
	logger := ctxlog.FromContext(ctx)

	var diags hcl.Diagnostics
	e := &metadata.Element{
		Name:                      b.Name,
		Group:                     metadata.Group(b.Group),
		Description:               b.Description,
		Properties:                make(map[string]*metadata.Property, len(b.Properties)),
		AllowAdditionalProperties: b.OpenProps,
		NoPaletteEntry:            b.Hidden,
	}
	if b.MinIncoming != nil || b.MaxIncoming != nil || b.MinOutgoing != nil || b.MaxOutgoing != nil || b.XorSrcSink {
		e.Constraints = &metadata.Constraints{
			MinIncoming:   b.MinIncoming,
			MaxIncoming:   b.MaxIncoming,
			MinOutgoing:   b.MinOutgoing,
			MaxOutgoing:   b.MaxOutgoing,
			XorSourceSink: b.XorSrcSink,
		}
	}

	for _, pb := range b.Properties {
		p := &metadata.Property{Name: pb.Name, Description: pb.Description}
		if isExprDefined(ctx, pb.Default, "default") {
			v, d := stringValue(pb.Default)
			diags = append(diags, d...)
			p.Default = v
			p.HasDefault = !d.HasErrors()
		}
		e.Properties[pb.Name] = p
	}

	for _, rb := range b.Rules {
		switch rb.Severity {
		case "", "error", "warning":
		default:
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Invalid rule severity",
				Detail:   fmt.Sprintf("Rule %q of element %q has severity %q; use \"error\" or \"warning\".", rb.Name, b.Name, rb.Severity),
			})
			continue
		}
		e.Rules = append(e.Rules, metadata.Rule{Name: rb.Name, Condition: rb.Condition, Severity: rb.Severity})
	}

	logger.Debug("Translated element.", "properties", len(e.Properties), "rules", len(e.Rules))
	return e, diags
}
