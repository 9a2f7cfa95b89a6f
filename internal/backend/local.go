package backend

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/google/uuid"
	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
	"github.com/j3borquez/StyrofoamWrap/internal/workgraph"
)

// Evaluator is the host collaborator the local backend drives: it dirties and
// cooks one work item at a time inside the host application. Cooking may
// parallelize internally; this layer treats it as an opaque blocking call.
type Evaluator interface {
	Dirty(ctx context.Context, itemPath string) error
	Cook(ctx context.Context, itemPath string) error
}

// Local evaluates every work item in-process through an Evaluator and blocks
// until all items report done or failed. A failed item blocks the aggregate
// success flag but not its siblings: every item is attempted.
type Local struct {
	eval Evaluator
}

// NewLocal returns a local backend driving the given evaluator.
func NewLocal(eval Evaluator) *Local {
	return &Local{eval: eval}
}

// Validate implements Backend.
func (l *Local) Validate(Request) error {
	if l.eval == nil {
		return &SubmissionError{Backend: "local", Err: fmt.Errorf("no host evaluator configured")}
	}
	return nil
}

// Submit implements Backend. Items cook sequentially in ordinal order: the
// document is single-writer, so per-item parallelism belongs to the host, not
// to this layer.
func (l *Local) Submit(ctx context.Context, g *workgraph.Graph, req Request) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if err := l.Validate(req); err != nil {
		return nil, err
	}

	result := &Result{RunID: uuid.New(), Backend: "local"}
	for _, item := range g.Items() {
		status := ItemStatus{
			Ordinal: item.Ordinal,
			AssetID: item.AssetID,
			JobIDs:  []string{uuid.NewString()},
		}
		if err := l.cookItem(ctx, item); err != nil {
			item.Err = err
			status.Err = err
			logger.Error("Work item cook failed.", "asset", item.AssetID, "ordinal", item.Ordinal, "error", err)
		} else {
			logger.Info("Work item cooked.", "asset", item.AssetID, "ordinal", item.Ordinal)
		}
		status.State = item.State()
		result.Items = append(result.Items, status)
	}
	return result, nil
}

// cookItem drives one item through dirty -> cooking -> done/failed.
func (l *Local) cookItem(ctx context.Context, item *workgraph.WorkItem) error {
	if item.State() != workgraph.StateDirty {
		item.MarkDirty()
	}
	if err := l.eval.Dirty(ctx, item.NodePath); err != nil {
		if terr := item.Transition(workgraph.StateFailed); terr != nil {
			return terr
		}
		return fmt.Errorf("dirty %s: %w", item.NodePath, err)
	}
	if err := item.Transition(workgraph.StateCooking); err != nil {
		return err
	}
	if err := l.eval.Cook(ctx, item.NodePath); err != nil {
		if terr := item.Transition(workgraph.StateFailed); terr != nil {
			return terr
		}
		return fmt.Errorf("cook %s: %w", item.NodePath, err)
	}
	return item.Transition(workgraph.StateDone)
}

// CommandEvaluator shells out to the host application command for each dirty
// and cook call, pointing it at the saved document.
type CommandEvaluator struct {
	// Command is the host application binary.
	Command string
	// DocumentPath is passed to every invocation.
	DocumentPath string
}

func (e *CommandEvaluator) run(ctx context.Context, action, itemPath string) error {
	cmd := exec.CommandContext(ctx, e.Command, "--hip", e.DocumentPath, "--item", itemPath, action)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", e.Command, action, err, out)
	}
	return nil
}

// Dirty implements Evaluator.
func (e *CommandEvaluator) Dirty(ctx context.Context, itemPath string) error {
	return e.run(ctx, "dirty", itemPath)
}

// Cook implements Evaluator.
func (e *CommandEvaluator) Cook(ctx context.Context, itemPath string) error {
	return e.run(ctx, "cook", itemPath)
}
