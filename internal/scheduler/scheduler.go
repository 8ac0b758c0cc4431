package scheduler

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/esteinig/pathfinder/internal/builder"
	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/config"
	"github.com/esteinig/pathfinder/internal/ctxlog"
	"github.com/esteinig/pathfinder/internal/executor"
	"github.com/esteinig/pathfinder/internal/publish"
	"github.com/esteinig/pathfinder/internal/source"
	"github.com/esteinig/pathfinder/internal/taskstore"
)

// filterKey identifies a (stage, lineage) pair rejected by an input filter.
type filterKey struct {
	stage   string
	lineage string
}

// Scheduler runs one frozen graph once.
type Scheduler struct {
	graph     *builder.Graph
	exec      executor.StageExecutor
	publisher publish.Publisher

	budgets       map[string]int
	defaultBudget int
	workers       int

	runners  map[string]*runner
	limiters map[string]*limiter
	ready    *readyQueue
	store    *taskstore.Store

	started atomic.Bool
	runCtx  context.Context
	roots   []string
	wg      sync.WaitGroup

	filteredMu sync.Mutex
	filtered   map[filterKey]struct{}
}

// New subscribes a runner for every active stage of graph to the stage's
// input channels.
func New(graph *builder.Graph, exec executor.StageExecutor, opts ...Option) (*Scheduler, error) {
	s := &Scheduler{
		graph:         graph,
		exec:          exec,
		publisher:     publish.Discard,
		budgets:       make(map[string]int),
		defaultBudget: 1,
		workers:       runtime.GOMAXPROCS(0),
		runners:       make(map[string]*runner),
		limiters:      make(map[string]*limiter),
		ready:         newReadyQueue(),
		store:         taskstore.New(),
		runCtx:        context.Background(),
		filtered:      make(map[filterKey]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.defaultBudget < 1 {
		return nil, config.Errorf("default concurrency must be at least 1, got %d", s.defaultBudget)
	}
	if s.workers < 1 {
		return nil, config.Errorf("worker count must be at least 1, got %d", s.workers)
	}
	for label, n := range s.budgets {
		if n < 1 {
			return nil, config.Errorf("label %q: concurrency must be at least 1, got %d", label, n)
		}
	}

	for _, node := range graph.Nodes() {
		label := node.Def.Label
		if label == "" {
			label = node.Name()
		}
		l, ok := s.limiters[label]
		if !ok {
			l = newLimiter(label, s.budgetFor(label), s.ready)
			s.limiters[label] = l
		}

		r := newRunner(s, node, l)
		for port, ch := range node.Inputs {
			sub, err := ch.Subscribe(r, port,
				channel.WithPredicate(node.Def.Inputs[port].Filter),
				channel.WithEach(node.Def.Each),
				channel.OnReject(r.onReject),
			)
			if err != nil {
				return nil, fmt.Errorf("subscribing stage %q to channel %q: %w", node.Name(), ch.Name(), err)
			}
			r.subs = append(r.subs, sub)
		}
		s.runners[node.Name()] = r
	}
	return s, nil
}

func (s *Scheduler) budgetFor(label string) int {
	if n, ok := s.budgets[label]; ok {
		return n
	}
	return s.defaultBudget
}

// Run emits roots on the source channel and blocks until every task the
// run created has completed or failed. An empty roots slice aborts with
// source.ErrEmptySource before anything is scheduled. Task failures are
// not returned as an error; they are part of the Report.
func (s *Scheduler) Run(ctx context.Context, roots []channel.Tuple) (*Report, error) {
	if len(roots) == 0 {
		return nil, source.ErrEmptySource
	}
	seen := make(map[string]struct{}, len(roots))
	ids := make([]string, 0, len(roots))
	for _, t := range roots {
		if _, dup := seen[t.ID]; dup {
			return nil, config.Errorf("lineage %q appears more than once in the root input", t.ID)
		}
		seen[t.ID] = struct{}{}
		ids = append(ids, t.ID)
	}
	if !s.started.CompareAndSwap(false, true) {
		return nil, ErrAlreadyRun
	}

	logger := ctxlog.FromContext(ctx)
	s.runCtx = ctx
	s.roots = ids
	logger.Info("🚀 Starting dataflow execution.", "lineages", len(roots), "stages", len(s.runners), "workers", s.workers)

	var workers sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		workers.Add(1)
		go func(workerID int) {
			defer workers.Done()
			s.worker(ctx, workerID)
		}(i)
	}

	src := s.graph.Source()
	for _, t := range roots {
		src.Emit(t)
	}

	s.wg.Wait()
	s.ready.close()
	workers.Wait()

	report := s.buildReport()
	logger.Info("🏁 Dataflow execution finished.",
		"completed", s.store.Count(taskstore.Completed),
		"failed", s.store.Count(taskstore.Failed),
	)
	return report, nil
}

// submit registers a Ready task and hands it to its label limiter.
func (s *Scheduler) submit(t *task) {
	s.wg.Add(1)
	s.store.SetStatus(s.runCtx, t.id, taskstore.Ready)
	ctxlog.FromContext(s.runCtx).Debug("Task ready.", "task", t.id.String(), "label", t.runner.limiter.name)
	t.runner.limiter.admit(t)
}

// worker is the processing loop of one pool goroutine.
func (s *Scheduler) worker(ctx context.Context, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)
	for {
		t, ok := s.ready.pop()
		if !ok {
			break
		}
		s.execute(ctx, t, workerID)
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}

// execute runs one admitted task and propagates its outcome.
func (s *Scheduler) execute(ctx context.Context, t *task, workerID int) {
	defer s.wg.Done()

	r := t.runner
	def := r.node.Def
	args := []any{"workerID", workerID, "stage", t.id.Stage, "lineage", t.id.Lineage}
	if t.id.Param != "" {
		args = append(args, "param", t.id.Param)
	}
	ctx, logger := ctxlog.With(ctx, args...)

	if err := ctx.Err(); err != nil {
		r.limiter.release()
		s.fail(ctx, t, -1, err)
		return
	}

	s.store.SetStatus(ctx, t.id, taskstore.Running)
	logger.Info("▶️ Starting task.", "inputs", len(t.files))
	res, err := s.exec.Execute(ctx, executor.Request{
		Stage:      t.id.Stage,
		Lineage:    t.id.Lineage,
		Param:      t.id.Param,
		Inputs:     t.files,
		Outputs:    def.Outputs,
		Env:        def.Env,
		MaxRetries: def.MaxRetries,
	})
	r.limiter.release()

	if err != nil {
		s.fail(ctx, t, res.ExitStatus, err)
		return
	}
	if res.ExitStatus != 0 {
		s.fail(ctx, t, res.ExitStatus, nil)
		return
	}

	s.store.SetOutputs(ctx, t.id, res.Outputs)
	s.store.SetStatus(ctx, t.id, taskstore.Completed)
	logger.Info("✅ Finished task.")

	if def.Publish {
		s.publish(ctx, t, res)
	}
	for _, ch := range r.node.Outputs {
		out := channel.NewTuple(t.id.Lineage, res.Outputs[ch.Name()]...)
		out.Param = t.id.Param
		ch.Emit(out)
	}
}

func (s *Scheduler) publish(ctx context.Context, t *task, res executor.Result) {
	var files []channel.FileRef
	for _, ch := range t.runner.node.Outputs {
		files = append(files, res.Outputs[ch.Name()]...)
	}
	if err := s.publisher.Publish(ctx, t.id.Stage, t.id.Lineage, t.id.Param, files); err != nil {
		ctxlog.FromContext(ctx).Error("Failed to publish task outputs.", "error", err)
	}
}

func (s *Scheduler) fail(ctx context.Context, t *task, exitStatus int, err error) {
	taskErr := &TaskError{
		Stage:      t.id.Stage,
		Lineage:    t.id.Lineage,
		Param:      t.id.Param,
		ExitStatus: exitStatus,
		Err:        err,
	}
	s.store.SetError(ctx, t.id, taskErr)
	s.store.SetStatus(ctx, t.id, taskstore.Failed)
	ctxlog.FromContext(ctx).Error("Task failed.", "exit_status", exitStatus, "error", taskErr)
}

func (s *Scheduler) recordRejection(stage string, t channel.Tuple) {
	s.filteredMu.Lock()
	s.filtered[filterKey{stage: stage, lineage: t.ID}] = struct{}{}
	s.filteredMu.Unlock()
	ctxlog.FromContext(s.runCtx).Debug("Tuple rejected by input filter.", "stage", stage, "lineage", t.ID, "param", t.Param)
}
