package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/j3borquez/StyrofoamWrap/internal/app"
	"github.com/j3borquez/StyrofoamWrap/internal/cli"
)

func main() {
	// Minimal logger until the run's own logger is configured.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})))

	if err := run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var exitErr *cli.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		var itemErr *app.ItemFailureError
		if errors.As(err, &itemErr) {
			os.Exit(3)
		}
		os.Exit(1)
	}
}

// run encapsulates the application logic for testing and error handling.
func run(outW io.Writer, args []string) error {
	opts, shouldExit, err := cli.Parse(args, outW)
	if err != nil {
		return err
	}
	if shouldExit {
		return nil
	}

	pipeline, err := app.New(outW, opts)
	if err != nil {
		return err
	}
	return pipeline.Run(context.Background())
}
