// Package bridge links an editor session to a remote renderer over socket.io.
//
// Outbound, every editor notification is emitted as an event with a JSON
// friendly payload: text-changed, markers-changed, graph-changed and
// sync-failed. Inbound, the hub may send set-text, drag-start, drag, drop,
// drag-cancel, delete and layout. Commands are applied in arrival order; a
// failed command is answered with a command-error event.
//
// Encoding and decoding are pure functions so they can be tested without a
// socket.
package bridge
