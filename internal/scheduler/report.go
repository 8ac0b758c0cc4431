package scheduler

import (
	"sort"

	"github.com/esteinig/pathfinder/internal/taskstore"
)

// LineageReport is the outcome of one root sample.
type LineageReport struct {
	ID string
	// Completed and Failed list tasks as "Stage" or "Stage#param".
	Completed []string
	Failed    []string
	// Filtered lists the stages whose input filter rejected the lineage.
	Filtered []string
	// Waiting lists multi-input stages that received only some inputs.
	Waiting []string
}

// StageReport aggregates the tasks of one stage.
type StageReport struct {
	Name      string
	Label     string
	Completed int
	Failed    int
	// Rejected counts tuples dropped by the stage's input filters.
	Rejected int64
}

// LabelReport describes one resource label.
type LabelReport struct {
	Name   string
	Budget int
	// Peak is the highest number of tasks observed running at once.
	Peak int
}

// Report is the result of a run.
type Report struct {
	Lineages []LineageReport
	Stages   []StageReport
	Labels   []LabelReport
	// Failures holds every task failure, ordered by lineage then stage.
	Failures []*TaskError
}

// Failed reports whether at least one task failed.
func (r *Report) Failed() bool { return len(r.Failures) > 0 }

// Lineage returns the report of one lineage.
func (r *Report) Lineage(id string) (LineageReport, bool) {
	for _, l := range r.Lineages {
		if l.ID == id {
			return l, true
		}
	}
	return LineageReport{}, false
}

// Stage returns the report of one stage.
func (r *Report) Stage(name string) (StageReport, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageReport{}, false
}

func taskName(id taskstore.TaskID) string {
	if id.Param == "" {
		return id.Stage
	}
	return id.Stage + "#" + id.Param
}

// buildReport assembles the report from the task store and the runners.
func (s *Scheduler) buildReport() *Report {
	ctx := s.runCtx
	lineages := make(map[string]*LineageReport)
	lineage := func(id string) *LineageReport {
		l, ok := lineages[id]
		if !ok {
			l = &LineageReport{ID: id}
			lineages[id] = l
		}
		return l
	}
	for _, root := range s.roots {
		lineage(root)
	}

	report := &Report{}
	stageCounts := make(map[string]*StageReport)
	for _, name := range s.graph.Stages() {
		r := s.runners[name]
		stageCounts[name] = &StageReport{Name: name, Label: r.limiter.name, Rejected: r.rejected()}
	}

	for _, id := range s.store.Tasks() {
		l := lineage(id.Lineage)
		switch s.store.Status(ctx, id) {
		case taskstore.Completed:
			l.Completed = append(l.Completed, taskName(id))
			stageCounts[id.Stage].Completed++
		case taskstore.Failed:
			l.Failed = append(l.Failed, taskName(id))
			stageCounts[id.Stage].Failed++
			var taskErr *TaskError
			if err, ok := s.store.Error(ctx, id).(*TaskError); ok {
				taskErr = err
			} else {
				taskErr = &TaskError{Stage: id.Stage, Lineage: id.Lineage, Param: id.Param, Err: s.store.Error(ctx, id)}
			}
			report.Failures = append(report.Failures, taskErr)
		case taskstore.Pending:
			l.Waiting = append(l.Waiting, taskName(id))
		}
	}

	s.filteredMu.Lock()
	for key := range s.filtered {
		l := lineage(key.lineage)
		l.Filtered = append(l.Filtered, key.stage)
	}
	s.filteredMu.Unlock()

	ids := make([]string, 0, len(lineages))
	for id := range lineages {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		l := lineages[id]
		sort.Strings(l.Filtered)
		report.Lineages = append(report.Lineages, *l)
	}

	for _, name := range s.graph.Stages() {
		report.Stages = append(report.Stages, *stageCounts[name])
	}

	labels := make([]string, 0, len(s.limiters))
	for name := range s.limiters {
		labels = append(labels, name)
	}
	sort.Strings(labels)
	for _, name := range labels {
		l := s.limiters[name]
		_, peak := l.stats()
		report.Labels = append(report.Labels, LabelReport{Name: name, Budget: l.budget, Peak: peak})
	}
	return report
}
