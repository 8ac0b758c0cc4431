package app

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/esteinig/pathfinder/internal/ctxlog"
	"github.com/esteinig/pathfinder/internal/executor"
	"github.com/esteinig/pathfinder/internal/workflow"
)

// App encapsulates the application's dependencies, configuration, and lifecycle.
type App struct {
	ctx        context.Context
	outW       io.Writer
	logger     *slog.Logger
	config     *Config
	loader     *workflow.Loader
	exec       executor.StageExecutor
	httpServer *http.Server
}

// Option customizes an App.
type Option func(*App)

// WithExecutor replaces the command executor, typically in tests.
func WithExecutor(exec executor.StageExecutor) Option {
	return func(a *App) { a.exec = exec }
}

// NewApp is the constructor for the main application. Logs and the run
// summary are written to outW.
func NewApp(outW io.Writer, cfg *Config, opts ...Option) *App {
	logger := newLogger(cfg.LogLevel, cfg.LogFormat, outW)
	a := &App{
		ctx:    ctxlog.WithLogger(context.Background(), logger),
		outW:   outW,
		logger: logger,
		config: cfg,
		loader: workflow.NewLoader(cfg.ParamsFile),
	}
	for _, opt := range opts {
		opt(a)
	}
	logger.Debug("Logger configured successfully.", "level", cfg.LogLevel, "format", cfg.LogFormat)
	return a
}
