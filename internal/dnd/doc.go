// Package dnd resolves what a dragged node is currently aimed at and tracks
// the lifecycle of a single drag gesture.
//
// # Resolution
//
// Resolver.Resolve is a pure function of the graph view and the pointer
// state. It looks for the closest compatible connector within a radius of the
// pointer:
//
//  1. The dragged node's capacity decides which connectors it can attach to:
//     a node with an output looks for inputs, a node with an input looks for
//     outputs.
//  2. Nodes whose bounds come within the radius are found with a spatial
//     index. Each of their connectors is a candidate when it is compatible,
//     still within its capacity, and not on the dragged node itself.
//  3. Candidates are ranked by the distance from the pointer to the connector
//     anchor. Only candidates strictly inside the radius count. Ties keep the
//     first candidate in graph order, input before output.
//  4. With no connector found, a link directly under the pointer becomes the
//     target if the dragged node is an unconnected processor.
//  5. Otherwise the descriptor carries only the source.
//
// # Session
//
// A Session drives the Idle, Dragging, Dropped cycle of one gesture. Each drag
// tick is resolved and compared with the previous descriptor; feedback is only
// hidden and shown again when the descriptor changed structurally.
package dnd
