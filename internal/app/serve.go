package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"github.com/vk/flowgrid/internal/bridge"
	"github.com/vk/flowgrid/internal/editor"
)

// Serve runs a long-lived editor session until ctx is cancelled. The flow
// text is loaded from and saved back to the configured text path, and the
// session is exposed to a remote UI when a bridge URL is set.
func (a *App) Serve(ctx context.Context) error {
	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	text, err := a.readText()
	if err != nil {
		return err
	}

	return a.withEditor(ctx, false, func(ctx context.Context, ed *editor.Editor) error {
		if _, err := loadText(ctx, ed, text); err != nil {
			return fmt.Errorf("load text: %w", err)
		}
		ed.SetReadOnly(a.config.ReadOnly)

		if a.config.TextPath != "" {
			w := newTextWriter(a.config.TextPath, a)
			unsubscribe := ed.Subscribe(w.observe)
			defer unsubscribe()
			go w.run(ctx)
		}

		if a.config.BridgeURL != "" {
			io, err := bridge.Dial(ctx, bridge.Options{
				URL:       a.config.BridgeURL,
				Namespace: a.config.BridgeNamespace,
			}, a.logger)
			if err != nil {
				return fmt.Errorf("connect bridge: %w", err)
			}
			defer io.Disconnect()

			done := make(chan struct{})
			go func() {
				defer close(done)
				_ = bridge.New(ed, bridge.SocketTransport(io), a.logger).Run(ctx)
			}()
			defer func() { <-done }()
		}

		a.logger.Info("Session ready.", "text_path", a.config.TextPath, "read_only", a.config.ReadOnly)
		<-ctx.Done()
		return nil
	})
}

func (a *App) readText() (string, error) {
	if a.config.TextPath == "" {
		return "", nil
	}
	data, err := os.ReadFile(a.config.TextPath)
	if errors.Is(err, fs.ErrNotExist) {
		a.logger.Info("Text file does not exist yet.", "path", a.config.TextPath)
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read text: %w", err)
	}
	return string(data), nil
}

// textWriter saves the latest editor text off the editor loop.
type textWriter struct {
	path string
	app  *App

	mu      sync.Mutex
	pending *string
	wake    chan struct{}
}

func newTextWriter(path string, a *App) *textWriter {
	return &textWriter{path: path, app: a, wake: make(chan struct{}, 1)}
}

func (w *textWriter) observe(n editor.Notification) {
	if n.Kind != editor.TextChanged {
		return
	}
	text := n.Text
	w.mu.Lock()
	w.pending = &text
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *textWriter) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.flush()
			return
		case <-w.wake:
			w.flush()
		}
	}
}

func (w *textWriter) flush() {
	w.mu.Lock()
	text := w.pending
	w.pending = nil
	w.mu.Unlock()
	if text == nil {
		return
	}
	if err := os.WriteFile(w.path, []byte(*text), 0o644); err != nil {
		w.app.logger.Error("Failed to save text.", "path", w.path, "error", err)
		return
	}
	w.app.logger.Debug("Text saved.", "path", w.path, "bytes", len(*text))
}
