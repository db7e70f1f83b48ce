// Package hcldsl is a sample metamodel: element manifests and flow text are
// both written in HCL.
//
// # Manifests
//
// A manifest declares the elements a flow may use:
//
//	element "processor" "transform" {
//	  description = "Applies an expression"
//	  property "expression" {
//	    default = ""
//	  }
//	  rule "expression must be set" {
//	    condition = "has(props.expression) && props.expression != ''"
//	    severity  = "warning"
//	  }
//	}
//
// Manifests are read from files and directories (every *.hcl below them) and
// from the manifest embedded in the package.
//
// # Flow text
//
//	node "http" "n1" {
//	  port = "8080"
//	}
//	node "log" "n2" {}
//	link "n1" "n2" {}
//
// An element label is resolved against the catalog by group order; a label of
// the form "group:name" selects the group explicitly. Attribute values may be
// any literal and are stored as strings. Rendering is deterministic: nodes and
// links in model order, attributes sorted, every value quoted.
package hcldsl
