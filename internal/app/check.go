package app

import (
	"context"
	"errors"
	"sync"

	"github.com/vk/flowgrid/internal/editor"
	"github.com/vk/flowgrid/internal/validation"
)

// failures collects SyncFailed notifications.
type failures struct {
	mu   sync.Mutex
	errs []error
}

func (f *failures) observe(n editor.Notification) {
	if n.Kind != editor.SyncFailed || n.Err == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, n.Err)
}

func (f *failures) err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return errors.Join(f.errs...)
}

// loadText feeds text through the session and waits until every derived
// channel has settled.
func loadText(ctx context.Context, ed *editor.Editor, text string) (*failures, error) {
	f := &failures{}
	unsubscribe := ed.Subscribe(f.observe)
	defer unsubscribe()
	if err := ed.SetText(ctx, text); err != nil {
		return nil, err
	}
	if err := ed.Settle(ctx); err != nil {
		return nil, err
	}
	return f, nil
}

// Format returns the canonical text of a flow.
func (a *App) Format(ctx context.Context, text string) (string, error) {
	var out string
	err := a.withEditor(ctx, false, func(ctx context.Context, ed *editor.Editor) error {
		f, err := loadText(ctx, ed, text)
		if err != nil {
			return err
		}
		if err := f.err(); err != nil {
			return err
		}
		out, err = ed.Text(ctx)
		return err
	})
	return out, err
}

// Validate returns the markers of a flow. Text that does not parse yields a
// document marker rather than an error.
func (a *App) Validate(ctx context.Context, text string) (validation.Markers, error) {
	var markers validation.Markers
	err := a.withEditor(ctx, false, func(ctx context.Context, ed *editor.Editor) error {
		if _, err := loadText(ctx, ed, text); err != nil {
			return err
		}
		var err error
		markers, err = ed.Markers(ctx)
		return err
	})
	return markers, err
}
