package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/esteinig/pathfinder/internal/app"
)

// Exit codes of the pathfinder binary.
const (
	ExitOK            = 0
	ExitConfiguration = 1
	ExitUsage         = 2
	ExitTaskFailure   = 3
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("pathfinder", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
Pathfinder - A dataflow runner for bacterial genome survey pipelines.

Usage:
  pathfinder [options] [WORKFLOW_PATH]

Arguments:
  WORKFLOW_PATH
    Path to a single .hcl file or a directory containing .hcl files.
    The built-in survey workflow is used when omitted.

Options:
`)
		flagSet.PrintDefaults()
	}

	workflowFlag := flagSet.String("workflow", "", "Path to the workflow file or directory.")
	wFlag := flagSet.String("w", "", "Path to the workflow file or directory (shorthand).")
	paramsFileFlag := flagSet.String("params-file", "", "YAML file overriding workflow params.")
	binDirFlag := flagSet.String("bin-dir", "bin", "Directory holding one executable per stage.")
	workersFlag := flagSet.Int("workers", 10, "Number of concurrent workers for the scheduler.")
	defaultConcurrencyFlag := flagSet.Int("default-concurrency", 1, "Concurrency of labels without a label block.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	if flagSet.NArg() > 1 {
		return nil, false, &ExitError{Code: ExitUsage, Message: fmt.Sprintf("expected at most one workflow path, got %d", flagSet.NArg())}
	}
	path := ""
	if *workflowFlag != "" {
		path = *workflowFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	}
	slog.Debug("Workflow path determined.", "path", path)

	config, err := app.NewConfig(app.Config{
		WorkflowPath:       path,
		ParamsFile:         *paramsFileFlag,
		BinDir:             *binDirFlag,
		Workers:            *workersFlag,
		DefaultConcurrency: *defaultConcurrencyFlag,
		HealthcheckPort:    *healthPortFlag,
		LogFormat:          strings.ToLower(*logFormatFlag),
		LogLevel:           strings.ToLower(*logLevelFlag),
	})
	if err != nil {
		return nil, false, &ExitError{Code: ExitUsage, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "config", config)
	return config, false, nil
}
