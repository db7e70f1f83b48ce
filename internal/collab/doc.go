// Package collab defines the contracts between the editor core and the
// collaborators it is embedded with.
//
// # Collaborators
//
//   - **Metamodel** converts between text and graphs and supplies the element
//     catalog. It is the only required collaborator.
//   - **Renderer** is a capability struct. Every field is optional and a nil
//     field falls back to the core default.
//   - **Policy** is the editor-specific behaviour plugin, also a capability
//     struct. DefaultPolicy returns the behaviour of the reference editor.
//
// Capabilities are checked once when the editor is wired, never per call.
//
// # Context
//
// Policy functions receive a Context, the facade the editor exposes back to
// them. Policy functions always run on the editor loop; the context.Context
// they are given must be passed on to Context methods so that nested calls
// run inline.
package collab
