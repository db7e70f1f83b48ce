// Package validation recomputes the error and warning markers of a graph.
//
// A Pipeline runs a list of rules over an immutable graph view and merges
// their markers per element id. Every pass is a full recomputation, so two
// passes over the same graph yield identical markers. Rules never fail the
// pass: a rule that cannot be evaluated contributes an error marker instead.
//
// Markers attached to the pseudo id "" belong to the document as a whole,
// for example a text that could not be parsed.
package validation
