package app

import (
	"context"
	"fmt"

	"github.com/esteinig/pathfinder/internal/builder"
	"github.com/esteinig/pathfinder/internal/ctxlog"
	"github.com/esteinig/pathfinder/internal/executor"
	"github.com/esteinig/pathfinder/internal/publish"
	"github.com/esteinig/pathfinder/internal/scheduler"
	"github.com/esteinig/pathfinder/internal/source"
)

// Run loads the workflow, builds the stage graph, resolves the root samples
// and executes the run. Configuration problems are returned as errors
// wrapping config.ErrConfiguration. Task failures are not errors; they are
// part of the returned report.
func (a *App) Run(ctx context.Context) (*scheduler.Report, error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.ctx = ctx
	logger := a.logger
	logger.Debug("App.Run method started.")

	a.healthCheckServer()
	defer a.closeHealthCheckServer()

	var paths []string
	if a.config.WorkflowPath != "" {
		paths = append(paths, a.config.WorkflowPath)
	}
	wf, err := a.loader.Load(ctx, paths...)
	if err != nil {
		return nil, fmt.Errorf("failed to load workflow: %w", err)
	}
	logger.Debug("Workflow loaded.", "files", wf.Files, "stages", len(wf.Stages))

	graph, err := builder.New(&wf.Params, wf.Source).Build(ctx, wf.Stages)
	if err != nil {
		return nil, fmt.Errorf("failed to build stage graph: %w", err)
	}
	order, err := graph.Order()
	if err != nil {
		return nil, fmt.Errorf("failed to order stage graph: %w", err)
	}
	logger.Info("Stage graph built.", "order", order, "inactive", graph.Inactive(), "elided", graph.Elided())

	roots, err := source.Resolve(ctx, wf.Params.Fastq)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve samples: %w", err)
	}
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w: no files match %q", source.ErrEmptySource, wf.Params.Fastq)
	}

	exec := a.exec
	if exec == nil {
		exec = executor.NewRetrying(executor.NewCommand(a.config.BinDir, wf.Params.Workdir))
	}
	sched, err := scheduler.New(graph, exec,
		scheduler.WithBudgets(wf.Labels),
		scheduler.WithDefaultBudget(a.config.DefaultConcurrency),
		scheduler.WithWorkers(a.config.Workers),
		scheduler.WithPublisher(publish.NewDir(wf.Params.Outdir)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	report, err := sched.Run(ctx, roots)
	if err != nil {
		return nil, fmt.Errorf("execution failed: %w", err)
	}
	if err := writeSummary(a.outW, report); err != nil {
		logger.Warn("Failed to write run summary.", "error", err)
	}

	logger.Debug("App.Run method finished.")
	return report, nil
}
