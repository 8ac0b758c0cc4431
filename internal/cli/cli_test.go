package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/esteinig/pathfinder/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Defaults(t *testing.T) {
	cfg, exit, err := Parse(nil, &bytes.Buffer{})
	require.NoError(t, err)
	assert.False(t, exit)
	assert.Equal(t, &app.Config{
		BinDir:             "bin",
		Workers:            10,
		DefaultConcurrency: 1,
		LogFormat:          "text",
		LogLevel:           "info",
	}, cfg)
}

func TestParse_Flags(t *testing.T) {
	cfg, _, err := Parse([]string{
		"-params-file", "params.yaml",
		"-bin-dir", "/opt/stages",
		"-workers", "4",
		"-default-concurrency", "2",
		"-log-format", "JSON",
		"-log-level", "debug",
		"-healthcheck-port", "8080",
		"survey.hcl",
	}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "survey.hcl", cfg.WorkflowPath)
	assert.Equal(t, "params.yaml", cfg.ParamsFile)
	assert.Equal(t, "/opt/stages", cfg.BinDir)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, 2, cfg.DefaultConcurrency)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 8080, cfg.HealthcheckPort)
}

func TestParse_WorkflowFlagWinsOverArgument(t *testing.T) {
	cfg, _, err := Parse([]string{"-w", "a.hcl", "b.hcl"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "a.hcl", cfg.WorkflowPath)
}

func TestParse_Help(t *testing.T) {
	out := &bytes.Buffer{}
	cfg, exit, err := Parse([]string{"-h"}, out)
	require.NoError(t, err)
	assert.True(t, exit)
	assert.Nil(t, cfg)
	assert.Contains(t, out.String(), "Usage:")
	assert.Contains(t, out.String(), "WORKFLOW_PATH")
}

func TestParse_UsageErrors(t *testing.T) {
	testCases := []struct {
		name string
		args []string
	}{
		{name: "unknown flag", args: []string{"--nope"}},
		{name: "too many paths", args: []string{"a.hcl", "b.hcl"}},
		{name: "zero workers", args: []string{"-workers", "0"}},
		{name: "zero default concurrency", args: []string{"-default-concurrency", "0"}},
		{name: "bad log format", args: []string{"-log-format", "xml"}},
		{name: "bad log level", args: []string{"-log-level", "verbose"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Parse(tc.args, &bytes.Buffer{})
			var exitErr *ExitError
			require.True(t, errors.As(err, &exitErr))
			assert.Equal(t, ExitUsage, exitErr.Code)
		})
	}
}
