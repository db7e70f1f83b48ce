// Package metadata describes the element types a flow graph is built from.
//
// An Element is the palette entry behind a node: its name, the group it
// belongs to (source, processor or sink), a human description and the schema
// of properties it accepts. Elements are grouped into a Catalog, which is what
// a metamodel loads and what the editor resolves DSL names against.
//
// The group also fixes the capacity model: how many incoming and outgoing
// links a node of that group may carry. Flow graphs handled by the editor are
// single-strand pipelines, so every capacity is either zero or one.
package metadata
