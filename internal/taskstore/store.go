package taskstore

import (
	"context"
	"sort"
	"sync"

	"github.com/esteinig/pathfinder/internal/channel"
)

// Status is the lifecycle state of a task instance.
type Status int32

const (
	// Pending waits for the other inputs of a multi-input stage.
	Pending Status = iota
	// Ready has all inputs and may queue behind its label budget.
	Ready
	// Running is being executed by a worker.
	Running
	// Completed finished with a zero exit status.
	Completed
	// Failed finished with an error or a non-zero exit status.
	Failed
)

func (s Status) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can happen.
func (s Status) Terminal() bool { return s == Completed || s == Failed }

// TaskID identifies one execution of one stage for one correlated tuple.
type TaskID struct {
	Stage   string
	Lineage string
	Param   string
}

func (id TaskID) String() string {
	if id.Param == "" {
		return id.Stage + "[" + id.Lineage + "]"
	}
	return id.Stage + "[" + id.Lineage + "#" + id.Param + "]"
}

// Store keeps task state in three independent sync.Maps keyed by TaskID.
type Store struct {
	states  sync.Map // TaskID -> Status
	outputs sync.Map // TaskID -> map[string][]channel.FileRef
	errors  sync.Map // TaskID -> error
}

// New creates an empty store.
func New() *Store {
	return &Store{}
}

// SetStatus updates the status of a task.
func (s *Store) SetStatus(_ context.Context, id TaskID, status Status) {
	s.states.Store(id, status)
}

// Status returns the status of a task. Unknown tasks are Pending.
func (s *Store) Status(_ context.Context, id TaskID) Status {
	status, ok := s.states.Load(id)
	if !ok {
		return Pending
	}
	return status.(Status)
}

// Forget drops the status of a task that will never be created, such as a
// join superseded by another. Outputs and errors are kept.
func (s *Store) Forget(_ context.Context, id TaskID) {
	s.states.Delete(id)
}

// SetOutputs records the files a completed task produced, per channel.
func (s *Store) SetOutputs(_ context.Context, id TaskID, outputs map[string][]channel.FileRef) {
	s.outputs.Store(id, outputs)
}

// Outputs returns the recorded outputs of a task, or nil.
func (s *Store) Outputs(_ context.Context, id TaskID) map[string][]channel.FileRef {
	out, ok := s.outputs.Load(id)
	if !ok {
		return nil
	}
	return out.(map[string][]channel.FileRef)
}

// SetError records the failure of a task.
func (s *Store) SetError(_ context.Context, id TaskID, err error) {
	s.errors.Store(id, err)
}

// Error returns the recorded failure of a task, or nil.
func (s *Store) Error(_ context.Context, id TaskID) error {
	err, ok := s.errors.Load(id)
	if !ok {
		return nil
	}
	return err.(error)
}

// Tasks returns every task with a recorded status, sorted by lineage, then
// stage, then param.
func (s *Store) Tasks() []TaskID {
	var ids []TaskID
	s.states.Range(func(key, _ any) bool {
		ids = append(ids, key.(TaskID))
		return true
	})
	sort.Slice(ids, func(i, j int) bool {
		a, b := ids[i], ids[j]
		if a.Lineage != b.Lineage {
			return a.Lineage < b.Lineage
		}
		if a.Stage != b.Stage {
			return a.Stage < b.Stage
		}
		return a.Param < b.Param
	})
	return ids
}

// Count returns how many tasks are in the given status.
func (s *Store) Count(status Status) int {
	n := 0
	s.states.Range(func(_, value any) bool {
		if value.(Status) == status {
			n++
		}
		return true
	})
	return n
}
