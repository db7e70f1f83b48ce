// Package graph holds the in-memory flow graph edited by a session: nodes,
// the directed links between their ports, and the change events every other
// component reacts to.
//
// # Model
//
// The Model is the single source of truth for topology. It enforces
// referential integrity (a link always joins two existing nodes), rejects
// dangling links at insertion time and, unless WithDuplicateLinks is set,
// refuses a second link between the same pair of ports.
//
// # Events
//
// Every mutation notifies subscribers synchronously before it returns.
// Compound operations, including RemoveNode and everything passed to Atomic,
// are delivered as one burst after the operation completes, so a subscriber
// never observes a link whose node has already gone:
//
//	err := m.Atomic(func() error {
//	    if err := m.RemoveLink(id); err != nil {
//	        return err
//	    }
//	    _, err := m.AddLink(graph.Link{Source: s, Target: t})
//	    return err
//	})
//
// When the function returns an error the model is restored and the buffered
// events are discarded.
//
// # Snapshots
//
// Snapshot returns a deep, immutable copy that implements View. Snapshots are
// what leaves the editor's logical thread: metamodel conversions and
// validation run on them while the live model keeps changing.
//
// # Thread-Safety
//
// The Model is not safe for concurrent use. It is owned by the editor loop and
// all calls must be made from it. Snapshots may be shared freely.
package graph
