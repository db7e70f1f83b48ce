package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/vk/flowgrid/internal/collab"
	"github.com/vk/flowgrid/internal/config"
	"github.com/vk/flowgrid/internal/ctxlog"
	"github.com/vk/flowgrid/internal/editor"
	"github.com/vk/flowgrid/internal/hcldsl"
	"github.com/vk/flowgrid/internal/metrics"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	outW       io.Writer
	logger     *slog.Logger
	config     config.Config
	metrics    *metrics.Registry
	ctx        context.Context
	httpServer *http.Server
}

// NewApp creates an App with its own logger and metrics registry. cfg must
// already be validated.
func NewApp(outW io.Writer, cfg config.Config) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	logger.Debug("Logger configured successfully.")
	return &App{
		outW:    outW,
		logger:  logger,
		config:  cfg,
		metrics: metrics.NewRegistry(),
		ctx:     ctxlog.WithLogger(context.Background(), logger),
	}
}

// Logger returns the application's logger.
func (a *App) Logger() *slog.Logger { return a.logger }

// Metrics returns the application's metrics registry.
func (a *App) Metrics() *metrics.Registry { return a.metrics }

func (a *App) newMetamodel() *hcldsl.Metamodel {
	return hcldsl.New(
		hcldsl.WithBuiltin(),
		hcldsl.WithPaths(a.config.ManifestPaths...),
		hcldsl.WithLogger(a.logger),
	)
}

func (a *App) newEditor(readOnly bool) *editor.Editor {
	policy := collab.DefaultPolicy()
	policy.AllowDuplicateLinks = a.config.AllowDuplicateLinks
	return editor.New(editor.Options{
		Metamodel:       a.newMetamodel(),
		Policy:          policy,
		Debounce:        a.config.Debounce,
		ProximityRadius: a.config.ProximityRadius,
		GridSize:        a.config.GridSize,
		ReadOnly:        readOnly,
		Metrics:         a.metrics,
		Logger:          a.logger,
	})
}

// withEditor runs fn against an opened editor session and tears the session
// down afterwards.
func (a *App) withEditor(ctx context.Context, readOnly bool, fn func(ctx context.Context, ed *editor.Editor) error) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	ed := a.newEditor(readOnly)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- ed.Run(runCtx) }()
	defer func() {
		if err := ed.Close(context.WithoutCancel(ctx)); err != nil {
			a.logger.Debug("Editor close failed.", "error", err)
		}
		cancel()
		<-done
	}()

	if err := ed.Open(ctx); err != nil {
		return err
	}
	return fn(ctx, ed)
}
