package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/j3borquez/StyrofoamWrap/internal/backend"
	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
	"github.com/j3borquez/StyrofoamWrap/internal/locator"
	"github.com/j3borquez/StyrofoamWrap/internal/material"
	"github.com/j3borquez/StyrofoamWrap/internal/scene"
	"github.com/j3borquez/StyrofoamWrap/internal/workgraph"
)

// ItemFailureError reports that the run completed but one or more work items
// failed. The caller maps it to a distinct exit code.
type ItemFailureError struct {
	Failed []backend.ItemStatus
}

func (e *ItemFailureError) Error() string {
	parts := make([]string, 0, len(e.Failed))
	for _, item := range e.Failed {
		if item.Err != nil {
			parts = append(parts, fmt.Sprintf("%s (ordinal %d): %v", item.AssetID, item.Ordinal, item.Err))
		} else {
			parts = append(parts, fmt.Sprintf("%s (ordinal %d): %s", item.AssetID, item.Ordinal, item.State))
		}
	}
	return fmt.Sprintf("%d work item(s) failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

// Run executes one pipeline pass: clean, discover, build the document, bind
// materials, build the work graph, save, and submit. Dry-run reaches
// submission-readiness with zero saves and zero submissions.
func (a *App) Run(ctx context.Context) error {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	cfg := a.cfg

	mgr := scene.NewManager(scene.PromptPolicy(cfg.Document.PromptPolicy))

	if a.opts.CleanModified {
		removed := mgr.CleanModified(ctx, cfg.Assets.Dir, a.opts.DryRun)
		a.logger.Info("Cleaned derived files.", "count", len(removed), "dry_run", a.opts.DryRun)
	}

	disc, err := locator.Discover(ctx, cfg.Assets.Dir)
	if err != nil {
		return err
	}
	a.logger.Info("Assets discovered.",
		"dir", cfg.Assets.Dir,
		"assets", len(disc.Assets),
		"derived", len(disc.Derived),
	)
	if len(disc.Assets) == 0 {
		a.logger.Warn("No geometry files found, nothing to do.", "dir", cfg.Assets.Dir)
		return nil
	}

	doc, err := mgr.OpenOrCreate(ctx, cfg.Document.HipPath)
	if err != nil {
		return err
	}

	if err := mgr.BuildImportChain(ctx, doc, disc.Assets, scene.ImportSpec{
		UpAxis:   cfg.Document.UpAxis,
		WrapKind: cfg.Wrap.NodeKind,
		HDAPath:  cfg.Wrap.HDAPath,
	}); err != nil {
		return err
	}

	binder := material.NewBinder(mgr)
	binder.HDRIPath = cfg.Document.HDRIPath
	bindings, warnings, err := binder.Bind(ctx, doc, disc.Assets)
	if err != nil {
		return err
	}
	a.logger.Info("Materials bound.", "bindings", len(bindings), "warnings", len(warnings))

	graph, err := workgraph.Build(ctx, mgr, doc, disc.Assets)
	if err != nil {
		return err
	}
	if a.opts.CleanModified {
		// A cleaned run forces recomputation of every item.
		for _, item := range graph.Items() {
			item.MarkDirty()
		}
	}
	a.logger.Info("Work graph ready.", "root", graph.Root(), "items", len(graph.Items()))

	if a.opts.DryRun {
		// Backend configuration errors abort a dry run exactly as they would a
		// live one; only the save and the submission itself are suppressed.
		if a.opts.Backend != BackendNone {
			be, err := a.selectBackend(cfg.Document.HipPath)
			if err != nil {
				return err
			}
			if err := be.Validate(a.submitRequest(cfg.Document.HipPath)); err != nil {
				return err
			}
		}
		a.logger.Info("[dry-run] Skipping document save and job submission.",
			"assets", len(disc.Assets),
			"bindings", len(bindings),
			"warnings", len(warnings),
			"items", len(graph.Items()),
		)
		return nil
	}

	savedPath, err := mgr.Save(ctx, doc, cfg.Document.HipPath, true)
	if err != nil {
		return err
	}

	if a.opts.Backend == BackendNone {
		a.logger.Info("Build-only run complete, no backend selected.", "document", savedPath)
		return nil
	}

	be, err := a.selectBackend(savedPath)
	if err != nil {
		return err
	}
	result, err := be.Submit(ctx, graph, a.submitRequest(savedPath))
	if err != nil {
		return err
	}

	a.logger.Info("Submission complete.",
		"backend", result.Backend,
		"run_id", result.RunID.String(),
		"items", len(result.Items),
		"failed", len(result.Failed()),
	)
	if !result.Success() {
		return &ItemFailureError{Failed: result.Failed()}
	}
	return nil
}

// submitRequest assembles the backend request for the given document path.
func (a *App) submitRequest(documentPath string) backend.Request {
	return backend.Request{
		DocumentPath: documentPath,
		AssetsDir:    a.cfg.Assets.Dir,
		FrameRange:   a.cfg.Frames.Range,
		PromptPolicy: a.cfg.Document.PromptPolicy,
		Deadline:     a.cfg.Deadline,
	}
}

// selectBackend instantiates the configured execution strategy.
func (a *App) selectBackend(documentPath string) (backend.Backend, error) {
	switch a.opts.Backend {
	case BackendLocal:
		if a.cfg.Local.HostCommand == "" {
			return nil, &backend.SubmissionError{
				Backend: "local",
				Err:     fmt.Errorf("local.host_command is not configured"),
			}
		}
		return backend.NewLocal(&backend.CommandEvaluator{
			Command:      a.cfg.Local.HostCommand,
			DocumentPath: documentPath,
		}), nil
	case BackendDeadline:
		return backend.NewDeadline(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", a.opts.Backend)
	}
}
