// Package editor is the facade a host embeds: it owns one graph, its text and
// its markers, and exposes the operations a visual flow editor needs.
//
// # Threading
//
// An Editor runs a loop.Loop. Run must be running for the duration of the
// session. Every method that takes a context is safe to call from any
// goroutine; it is executed on the loop and waits for the result. The same
// methods may be called from policy functions, which already run on the loop,
// and then execute inline.
//
// Graph and Catalog return live state and must only be used from the loop,
// that is from policy functions or from a function passed to Do.
//
// # Lifecycle
//
//	ed := editor.New(editor.Options{Metamodel: mm})
//	go ed.Run(ctx)
//	if err := ed.Open(ctx); err != nil { ... }
//	_ = ed.SetText(ctx, text)
//	...
//	ed.Close(ctx)
package editor
