package hcldsl

import "github.com/hashicorp/hcl/v2"

// manifestFile decodes every top-level block of a manifest.
type manifestFile struct {
	Elements []*elementBlock `hcl:"element,block"`
}

type elementBlock struct {
	Group       string           `hcl:"group,label"`
	Name        string           `hcl:"name,label"`
	Description string           `hcl:"description,optional"`
	Hidden      bool             `hcl:"hidden,optional"`
	OpenProps   bool             `hcl:"allow_additional_properties,optional"`
	MinIncoming *int             `hcl:"min_incoming,optional"`
	MaxIncoming *int             `hcl:"max_incoming,optional"`
	MinOutgoing *int             `hcl:"min_outgoing,optional"`
	MaxOutgoing *int             `hcl:"max_outgoing,optional"`
	XorSrcSink  bool             `hcl:"xor_source_sink,optional"`
	Properties  []*propertyBlock `hcl:"property,block"`
	Rules       []*ruleBlock     `hcl:"rule,block"`
}

type propertyBlock struct {
	Name        string         `hcl:"name,label"`
	Description string         `hcl:"description,optional"`
	Default     hcl.Expression `hcl:"default,optional"`
}

type ruleBlock struct {
	Name      string `hcl:"name,label"`
	Condition string `hcl:"condition"`
	Severity  string `hcl:"severity,optional"`
}
