package executor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/ctxlog"
	"github.com/google/uuid"
)

const (
	stdoutFile = ".command.out"
	stderrFile = ".command.err"
)

// Command runs `<BinDir>/<stage>` for every task, in a fresh work directory
// `<WorkDir>/<xx>/<uuid>`. The task is described to the program through
// PF_* environment variables, followed by the stage's own environment.
// Stdout and stderr are kept in .command.out and .command.err. Output files
// are collected from the work directory by each output's glob pattern.
type Command struct {
	BinDir  string
	WorkDir string
}

// NewCommand creates a command executor.
func NewCommand(binDir, workDir string) *Command {
	return &Command{BinDir: binDir, WorkDir: workDir}
}

// Execute implements StageExecutor.
func (c *Command) Execute(ctx context.Context, req Request) (Result, error) {
	id := uuid.NewString()
	dir, err := filepath.Abs(filepath.Join(c.WorkDir, id[:2], id))
	if err != nil {
		return Result{ExitStatus: -1}, err
	}
	logger := ctxlog.FromContext(ctx).With("workdir", dir)

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Result{ExitStatus: -1}, fmt.Errorf("failed to create work directory: %w", err)
	}
	stdout, err := os.Create(filepath.Join(dir, stdoutFile))
	if err != nil {
		return Result{ExitStatus: -1}, err
	}
	defer stdout.Close()
	stderr, err := os.Create(filepath.Join(dir, stderrFile))
	if err != nil {
		return Result{ExitStatus: -1}, err
	}
	defer stderr.Close()

	bin, err := filepath.Abs(filepath.Join(c.BinDir, req.Stage))
	if err != nil {
		return Result{ExitStatus: -1}, err
	}
	cmd := exec.CommandContext(ctx, bin)
	cmd.Dir = dir
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.Env = append(os.Environ(), taskEnv(dir, req)...)

	logger.Debug("Starting stage command.", "command", bin)
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && ctx.Err() == nil {
			logger.Debug("Stage command exited with a non-zero status.", "exit_status", exitErr.ExitCode())
			return Result{ExitStatus: exitErr.ExitCode()}, nil
		}
		if ctx.Err() != nil {
			return Result{ExitStatus: -1}, ctx.Err()
		}
		return Result{ExitStatus: -1}, fmt.Errorf("failed to run %s: %w", bin, err)
	}

	outputs, err := collectOutputs(dir, req)
	if err != nil {
		return Result{ExitStatus: -1}, err
	}
	return Result{Outputs: outputs}, nil
}

// taskEnv builds the PF_* variables and the stage environment, sorted by name.
func taskEnv(dir string, req Request) []string {
	inputs := make([]string, len(req.Inputs))
	for i, f := range req.Inputs {
		abs, err := filepath.Abs(f.Path)
		if err != nil {
			abs = f.Path
		}
		inputs[i] = abs
	}
	outputs := make([]string, len(req.Outputs))
	for i, out := range req.Outputs {
		outputs[i] = out.Channel
	}

	env := []string{
		"PF_STAGE=" + req.Stage,
		"PF_LINEAGE=" + req.Lineage,
		"PF_PARAM=" + req.Param,
		"PF_WORKDIR=" + dir,
		"PF_INPUTS=" + strings.Join(inputs, string(os.PathListSeparator)),
		"PF_OUTPUTS=" + strings.Join(outputs, string(os.PathListSeparator)),
	}
	names := make([]string, 0, len(req.Env))
	for name := range req.Env {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		env = append(env, name+"="+req.Env[name])
	}
	return env
}

// collectOutputs globs every declared output in the work directory. An
// empty pattern collects every file except the captured streams.
func collectOutputs(dir string, req Request) (map[string][]channel.FileRef, error) {
	outputs := make(map[string][]channel.FileRef, len(req.Outputs))
	for _, out := range req.Outputs {
		pattern := out.Pattern
		if pattern == "" {
			pattern = "*"
		}
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, fmt.Errorf("output %q: %w", out.Channel, err)
		}
		files := []channel.FileRef{}
		for _, m := range matches {
			base := filepath.Base(m)
			if base == stdoutFile || base == stderrFile {
				continue
			}
			if info, err := os.Stat(m); err != nil || info.IsDir() {
				continue
			}
			files = append(files, channel.FileRef{Path: m})
		}
		outputs[out.Channel] = files
	}
	return outputs, nil
}
