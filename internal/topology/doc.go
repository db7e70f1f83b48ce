// Package topology implements the link-rewiring operations behind drag and
// drop and deletion: inserting a node next to another, splicing a node into a
// link and repairing the chain around a removed node.
//
// All operations run inside graph.Model.Atomic, so listeners see a single
// burst of events per operation and a failed operation leaves the model
// untouched. The capacity model and referential integrity are enforced on
// every link the package creates, whatever the link policy answers. A link
// refused by the policy is skipped silently.
package topology
