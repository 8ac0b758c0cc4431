package scheduler

import (
	"errors"
	"fmt"
)

// ErrAlreadyRun is returned by a second call to Run. Channels keep their
// history and are sealed after the first emission, so a scheduler is
// single-use.
var ErrAlreadyRun = errors.New("scheduler has already run")

// TaskError records the failure of one task instance.
type TaskError struct {
	Stage      string
	Lineage    string
	Param      string
	ExitStatus int
	Err        error
}

func (e *TaskError) Error() string {
	where := e.Stage + "[" + e.Lineage + "]"
	if e.Param != "" {
		where = e.Stage + "[" + e.Lineage + "#" + e.Param + "]"
	}
	if e.Err != nil {
		return fmt.Sprintf("task %s failed: %v", where, e.Err)
	}
	return fmt.Sprintf("task %s failed with exit status %d", where, e.ExitStatus)
}

func (e *TaskError) Unwrap() error { return e.Err }
