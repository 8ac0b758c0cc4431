// Package executor runs one task of one stage. The scheduler treats every
// implementation as an opaque, blocking call and only looks at the exit
// status and the files returned per output channel.
package executor

import (
	"context"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/stage"
)

// Request describes one task instance.
type Request struct {
	Stage   string
	Lineage string
	// Param is the cross-product element, empty when the stage has no each-list.
	Param string
	// Inputs are the files of every input port, concatenated in port order.
	Inputs  []channel.FileRef
	Outputs []stage.Output
	Env     map[string]string
	// MaxRetries is honoured by Retrying; other executors ignore it.
	MaxRetries uint64
}

// Result is what a finished task reports back.
type Result struct {
	ExitStatus int
	// Outputs holds the produced files keyed by output channel name.
	Outputs map[string][]channel.FileRef
}

// StageExecutor executes tasks. Execute blocks until the task is finished.
// A returned error or a non-zero ExitStatus both fail the task.
type StageExecutor interface {
	Execute(ctx context.Context, req Request) (Result, error)
}

// Func adapts a function to the StageExecutor interface.
type Func func(ctx context.Context, req Request) (Result, error)

// Execute implements StageExecutor.
func (f Func) Execute(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}
