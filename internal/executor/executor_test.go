package executor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/esteinig/pathfinder/internal/channel"
	"github.com/esteinig/pathfinder/internal/stage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript installs an executable shell script named after a stage.
func writeScript(t *testing.T, binDir, name, body string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("stage scripts need a POSIX shell")
	}
	path := filepath.Join(binDir, name)
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
}

func TestCommand_RunsStageInFreshWorkDir(t *testing.T) {
	binDir, workDir := t.TempDir(), t.TempDir()
	writeScript(t, binDir, "Assembly", `
echo "running $PF_STAGE for $PF_LINEAGE"
echo "$ASSEMBLER $PF_PARAM" > "$PF_LINEAGE.fasta"
cat "$PF_INPUTS" > "$PF_LINEAGE.copy"
echo "to stderr" >&2
`)
	input := filepath.Join(t.TempDir(), "A_1.fq")
	require.NoError(t, os.WriteFile(input, []byte("ACGT"), 0o644))

	exec := NewCommand(binDir, workDir)
	req := Request{
		Stage:   "Assembly",
		Lineage: "A",
		Param:   "x",
		Inputs:  []channel.FileRef{{Path: input}},
		Outputs: []stage.Output{{Channel: "assembly", Pattern: "*.fasta"}, {Channel: "everything"}},
		Env:     map[string]string{"ASSEMBLER": "skesa"},
	}

	res, err := exec.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitStatus)

	require.Len(t, res.Outputs["assembly"], 1)
	fasta := res.Outputs["assembly"][0].Path
	assert.Equal(t, "A.fasta", filepath.Base(fasta))
	content, err := os.ReadFile(fasta)
	require.NoError(t, err)
	assert.Equal(t, "skesa x\n", string(content))

	assert.Len(t, res.Outputs["everything"], 2, "captured streams are not outputs")

	dir := filepath.Dir(fasta)
	id := filepath.Base(dir)
	assert.Equal(t, id[:2], filepath.Base(filepath.Dir(dir)))
	out, err := os.ReadFile(filepath.Join(dir, ".command.out"))
	require.NoError(t, err)
	assert.Equal(t, "running Assembly for A\n", string(out))
	errOut, err := os.ReadFile(filepath.Join(dir, ".command.err"))
	require.NoError(t, err)
	assert.Equal(t, "to stderr\n", string(errOut))

	second, err := exec.Execute(context.Background(), req)
	require.NoError(t, err)
	assert.NotEqual(t, dir, filepath.Dir(second.Outputs["assembly"][0].Path), "every task gets its own work directory")
}

func TestCommand_NonZeroExit(t *testing.T) {
	binDir := t.TempDir()
	writeScript(t, binDir, "Assembly", "exit 3\n")

	res, err := NewCommand(binDir, t.TempDir()).Execute(context.Background(), Request{Stage: "Assembly", Lineage: "D"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitStatus)
	assert.Nil(t, res.Outputs)
}

func TestCommand_MissingBinary(t *testing.T) {
	res, err := NewCommand(t.TempDir(), t.TempDir()).Execute(context.Background(), Request{Stage: "Nope", Lineage: "A"})
	require.Error(t, err)
	assert.Equal(t, -1, res.ExitStatus)
}

func TestTaskEnv(t *testing.T) {
	env := taskEnv("/work/ab/abc", Request{
		Stage:   "Abricate",
		Lineage: "A",
		Param:   "vfdb",
		Inputs:  []channel.FileRef{{Path: "/data/a.fasta"}, {Path: "/data/b.fasta"}},
		Outputs: []stage.Output{{Channel: "abricate"}},
		Env:     map[string]string{"Z": "1", "A": "2"},
	})
	sep := string(os.PathListSeparator)
	assert.Equal(t, []string{
		"PF_STAGE=Abricate",
		"PF_LINEAGE=A",
		"PF_PARAM=vfdb",
		"PF_WORKDIR=/work/ab/abc",
		"PF_INPUTS=" + strings.Join([]string{"/data/a.fasta", "/data/b.fasta"}, sep),
		"PF_OUTPUTS=abricate",
		"A=2",
		"Z=1",
	}, env)
}

func noWait() backoff.BackOff { return &backoff.ZeroBackOff{} }

func TestRetrying(t *testing.T) {
	testCases := []struct {
		name       string
		maxRetries uint64
		failures   int32
		failErr    bool
		wantStatus int
		wantErr    bool
		wantCalls  int32
	}{
		{name: "no retries configured", maxRetries: 0, failures: 1, wantStatus: 1, wantCalls: 1},
		{name: "succeeds after retry", maxRetries: 2, failures: 2, wantStatus: 0, wantCalls: 3},
		{name: "exhausts retries on exit status", maxRetries: 2, failures: 5, wantStatus: 1, wantCalls: 3},
		{name: "exhausts retries on error", maxRetries: 1, failures: 5, failErr: true, wantStatus: -1, wantErr: true, wantCalls: 2},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int32
			inner := Func(func(context.Context, Request) (Result, error) {
				n := calls.Add(1)
				if n <= tc.failures {
					if tc.failErr {
						return Result{ExitStatus: -1}, errors.New("boom")
					}
					return Result{ExitStatus: 1}, nil
				}
				return Result{Outputs: map[string][]channel.FileRef{"out": {{Path: "x"}}}}, nil
			})

			res, err := NewRetrying(inner, WithBackOff(noWait)).Execute(context.Background(), Request{Stage: "S", MaxRetries: tc.maxRetries})
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tc.wantStatus, res.ExitStatus)
			assert.Equal(t, tc.wantCalls, calls.Load())
		})
	}
}

func TestRetrying_StopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	inner := Func(func(context.Context, Request) (Result, error) {
		calls.Add(1)
		cancel()
		return Result{ExitStatus: 1}, nil
	})

	_, err := NewRetrying(inner, WithBackOff(noWait)).Execute(ctx, Request{Stage: "S", MaxRetries: 5})
	assert.ErrorIs(t, err, context.Canceled)
	assert.EqualValues(t, 1, calls.Load())
}

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time { return c.now }

func TestRetrying_DefaultPolicyIgnoresAttemptDuration(t *testing.T) {
	b, ok := NewRetrying(nil).newBackOff().(*backoff.ExponentialBackOff)
	require.True(t, ok)
	assert.Zero(t, b.MaxElapsedTime)

	clock := &fakeClock{now: time.Unix(0, 0)}
	b.Clock = clock
	b.Reset()
	clock.now = clock.now.Add(20 * time.Minute)

	next := b.NextBackOff()
	assert.NotEqual(t, backoff.Stop, next, "a long first attempt still gets its retry")
	assert.Positive(t, next)
}
