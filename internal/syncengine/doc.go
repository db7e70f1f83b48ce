// Package syncengine keeps a graph and its DSL text in step.
//
// # Channels
//
// The engine owns three debounced channels:
//
//   - **graph-to-text** runs after structural or semantic graph changes and
//     regenerates the text. A result equal to the held text is dropped, which
//     is what stops a text edit from echoing back to its author.
//   - **text-to-graph** runs after SetText, rebuilds the graph wholesale and
//     then schedules validation.
//   - **validation** recomputes markers.
//
// Each channel coalesces a burst of triggers into one run using the latest
// state.
//
// # Threading
//
// All engine state lives on the editor loop. Collaborator calls run on their
// own goroutine against an immutable snapshot and post their result back to
// the loop, where it is discarded if the channel has moved on to a newer
// generation in the meantime. Methods documented as loop-only must be called
// from a loop task.
package syncengine
