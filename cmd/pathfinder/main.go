package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/esteinig/pathfinder/internal/app"
	"github.com/esteinig/pathfinder/internal/cli"
	"github.com/esteinig/pathfinder/internal/config"
)

// main is the entrypoint for the pathfinder application.
func main() {
	// Use a minimal logger until the full one is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Stdout, os.Args[1:])
	stop()
	if err != nil {
		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, exitErr.Message)
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitConfiguration)
	}
}

// run parses args, executes one workflow run and maps the outcome to an
// exit code: configuration errors exit 1, usage errors 2 and runs with at
// least one failed task 3.
func run(ctx context.Context, outW io.Writer, args []string) error {
	appConfig, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	report, err := app.NewApp(outW, appConfig).Run(ctx)
	if err != nil {
		if errors.Is(err, config.ErrConfiguration) {
			return &cli.ExitError{Code: cli.ExitConfiguration, Message: err.Error()}
		}
		return err
	}
	if report.Failed() {
		return &cli.ExitError{
			Code:    cli.ExitTaskFailure,
			Message: fmt.Sprintf("%d task(s) failed", len(report.Failures)),
		}
	}
	return nil
}
