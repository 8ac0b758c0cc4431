package testutil

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/executor"
)

// ExecutionRecord holds what one task execution received and when it ran.
type ExecutionRecord struct {
	Stage   string
	Lineage string
	Param   string
	Inputs  []channel.FileRef
	Start   time.Time
	End     time.Time
}

// Recorder is a StageExecutor for tests. Every task sleeps for Delay,
// writes one file of OutputSize bytes per output channel into Dir and
// succeeds, unless Fail holds an exit status for it.
type Recorder struct {
	Dir        string
	Delay      time.Duration
	OutputSize int
	// Fail maps FailKey(stage, lineage) to the exit status to report.
	Fail map[string]int
	// Group maps a stage to the key its concurrency is tracked under. By
	// default every stage is its own group.
	Group func(stage string) string

	mu      sync.Mutex
	records []ExecutionRecord
	running map[string]int
	peak    map[string]int
}

// NewRecorder creates a recorder writing outputs into dir.
func NewRecorder(dir string) *Recorder {
	return &Recorder{
		Dir:        dir,
		OutputSize: 20000,
		Fail:       make(map[string]int),
		running:    make(map[string]int),
		peak:       make(map[string]int),
	}
}

// FailKey is the key of Recorder.Fail.
func FailKey(stage, lineage string) string {
	return stage + "/" + lineage
}

// Execute implements executor.StageExecutor.
func (r *Recorder) Execute(ctx context.Context, req executor.Request) (executor.Result, error) {
	group := req.Stage
	if r.Group != nil {
		group = r.Group(req.Stage)
	}

	r.mu.Lock()
	r.running[group]++
	if r.running[group] > r.peak[group] {
		r.peak[group] = r.running[group]
	}
	r.mu.Unlock()

	start := time.Now()
	if r.Delay > 0 {
		select {
		case <-time.After(r.Delay):
		case <-ctx.Done():
		}
	}
	end := time.Now()

	r.mu.Lock()
	r.running[group]--
	r.records = append(r.records, ExecutionRecord{
		Stage:   req.Stage,
		Lineage: req.Lineage,
		Param:   req.Param,
		Inputs:  append([]channel.FileRef(nil), req.Inputs...),
		Start:   start,
		End:     end,
	})
	status, fail := r.Fail[FailKey(req.Stage, req.Lineage)]
	r.mu.Unlock()

	if fail {
		return executor.Result{ExitStatus: status}, nil
	}

	outputs := make(map[string][]channel.FileRef, len(req.Outputs))
	for _, out := range req.Outputs {
		name := strings.NewReplacer("/", "_", "#", "_").Replace(
			fmt.Sprintf("%s_%s_%s_%s.out", req.Stage, req.Lineage, req.Param, out.Channel))
		path := filepath.Join(r.Dir, name)
		if err := os.WriteFile(path, make([]byte, r.OutputSize), 0o644); err != nil {
			return executor.Result{ExitStatus: -1}, err
		}
		outputs[out.Channel] = []channel.FileRef{{Path: path}}
	}
	return executor.Result{Outputs: outputs}, nil
}

// Records returns every finished execution in completion order.
func (r *Recorder) Records() []ExecutionRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ExecutionRecord(nil), r.records...)
}

// Calls returns the sorted "lineage" or "lineage#param" keys a stage ran for.
func (r *Recorder) Calls(stage string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for _, rec := range r.records {
		if rec.Stage != stage {
			continue
		}
		key := rec.Lineage
		if rec.Param != "" {
			key += "#" + rec.Param
		}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Peak returns the highest number of concurrent executions seen for a group.
func (r *Recorder) Peak(group string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.peak[group]
}
