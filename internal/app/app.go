package app

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/j3borquez/StyrofoamWrap/internal/config"
)

// BackendName selects the execution strategy for a run.
type BackendName string

const (
	// BackendNone builds and saves the graph without submitting it.
	BackendNone BackendName = ""
	// BackendLocal evaluates work items in-process and blocks.
	BackendLocal BackendName = "local"
	// BackendDeadline submits independent farm jobs and returns a handle.
	BackendDeadline BackendName = "deadline"
)

// Options is the resolved command-line input for one pipeline run.
type Options struct {
	ConfigPath string
	// AssetsDir and HipPath override the corresponding config values.
	AssetsDir string
	HipPath   string

	Backend       BackendName
	CleanModified bool
	DryRun        bool

	LogLevel  string
	LogFormat string
}

// App wires the pipeline components together for a single run.
type App struct {
	outW   io.Writer
	logger *slog.Logger
	opts   *Options
	cfg    *config.Pipeline
}

// New constructs an App: it builds the run's logger and resolves the
// effective configuration from the config file and flag overrides.
func New(outW io.Writer, opts *Options) (*App, error) {
	logger := newLogger(opts.LogLevel, opts.LogFormat, outW)

	cfg, err := resolveConfig(opts)
	if err != nil {
		return nil, err
	}
	logger.Debug("Configuration resolved.",
		"assets_dir", cfg.Assets.Dir,
		"hip_path", cfg.Document.HipPath,
		"backend", string(opts.Backend),
	)

	return &App{outW: outW, logger: logger, opts: opts, cfg: cfg}, nil
}

// resolveConfig loads the config file (explicit path, or the default file
// when present), applies flag overrides, and validates the result. A missing
// default file is fine as long as the flags supply the required paths.
func resolveConfig(opts *Options) (*config.Pipeline, error) {
	var cfg *config.Pipeline

	switch {
	case opts.ConfigPath != "":
		var err error
		cfg, err = config.Load(opts.ConfigPath)
		if err != nil {
			return nil, err
		}
	default:
		var err error
		cfg, err = config.Load(config.DefaultFile)
		if errors.Is(err, fs.ErrNotExist) {
			cfg = config.Default()
		} else if err != nil {
			return nil, err
		}
	}

	if opts.AssetsDir != "" {
		cfg.Assets.Dir = opts.AssetsDir
	}
	if opts.HipPath != "" {
		cfg.Document.HipPath = opts.HipPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}
	return cfg, nil
}

// Config returns the resolved pipeline configuration. Primarily for testing.
func (a *App) Config() *config.Pipeline { return a.cfg }
