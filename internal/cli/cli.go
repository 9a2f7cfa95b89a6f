package cli

import (
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/j3borquez/StyrofoamWrap/internal/app"
)

// ExitError is an error carrying a specific process exit code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments into run options. The boolean result
// is true when the program should exit cleanly (help requested).
func Parse(args []string, output io.Writer) (*app.Options, bool, error) {
	flagSet := flag.NewFlagSet("styrofoamwrap", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
StyrofoamWrap - asset import, material binding, and wrap job submission.

Usage:
  styrofoamwrap [options]

Options:
`)
		flagSet.PrintDefaults()
	}

	configFlag := flagSet.String("config", "", "Path to the pipeline config file (default styrofoam.hcl when present).")
	assetsDirFlag := flagSet.String("assets-dir", "", "Override the configured asset directory.")
	hipFlag := flagSet.String("hip", "", "Override the configured document path.")
	launchLocalFlag := flagSet.Bool("launch-local", false, "Evaluate the work graph in-process and block until done.")
	launchDeadlineFlag := flagSet.Bool("launch-deadline", false, "Submit the work graph to the Deadline farm and return.")
	cleanFlag := flagSet.Bool("clean-modified", false, "Remove derived files from previous runs before processing.")
	dryRunFlag := flagSet.Bool("dry-run", false, "Perform all steps except saving the document and submitting jobs.")
	logFormatFlag := flagSet.String("log-format", "text", "Log output format. Options: 'text' or 'json'.")
	logLevelFlag := flagSet.String("log-level", "info", "Logging level. Options: 'debug', 'info', 'warn', 'error'.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() > 0 {
		return nil, false, &ExitError{Code: 2, Message: fmt.Sprintf("unexpected argument %q", flagSet.Arg(0))}
	}

	if *launchLocalFlag && *launchDeadlineFlag {
		return nil, false, &ExitError{Code: 2, Message: "--launch-local and --launch-deadline are mutually exclusive"}
	}
	backend := app.BackendNone
	if *launchLocalFlag {
		backend = app.BackendLocal
	}
	if *launchDeadlineFlag {
		backend = app.BackendDeadline
	}

	logFormat := strings.ToLower(*logFormatFlag)
	if logFormat != "text" && logFormat != "json" {
		return nil, false, &ExitError{Code: 2, Message: "invalid log-format: must be 'text' or 'json'"}
	}
	logLevel := strings.ToLower(*logLevelFlag)
	switch logLevel {
	case "debug", "info", "warn", "error":
	default:
		return nil, false, &ExitError{Code: 2, Message: "invalid log-level: must be 'debug', 'info', 'warn', or 'error'"}
	}

	return &app.Options{
		ConfigPath:    *configFlag,
		AssetsDir:     *assetsDirFlag,
		HipPath:       *hipFlag,
		Backend:       backend,
		CleanModified: *cleanFlag,
		DryRun:        *dryRunFlag,
		LogLevel:      logLevel,
		LogFormat:     logFormat,
	}, false, nil
}
