package backend

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/j3borquez/StyrofoamWrap/internal/config"
	"github.com/j3borquez/StyrofoamWrap/internal/workgraph"
)

// Request carries everything a backend needs to turn a built work graph into
// computation. Backends never own work items; they reference them by path.
type Request struct {
	// DocumentPath is the saved document the jobs evaluate against.
	DocumentPath string
	// AssetsDir is the discovery directory, used as the job working dir.
	AssetsDir string
	// FrameRange is the frame specification for farm jobs.
	FrameRange string
	// PromptPolicy is forwarded into the generated startup script so a
	// farm-side load behaves like the run that produced it.
	PromptPolicy string
	// Deadline holds scheduler parameters for the distributed backend.
	Deadline *config.Deadline
}

// ItemStatus is the per-item outcome reported in a Result.
type ItemStatus struct {
	Ordinal int
	AssetID string
	State   workgraph.State
	// JobIDs holds farm job identifiers (distributed) or the synthetic local
	// job handle.
	JobIDs []string
	// Err is the item's cook or submission failure. Collected, not raised.
	Err error
}

// Result summarizes a submission. Individual work item failures live here
// rather than in an error return; the caller inspects the result to decide
// success.
type Result struct {
	// RunID uniquely identifies this submission.
	RunID uuid.UUID
	// Backend names the strategy that produced the result.
	Backend string
	// Items holds one status per work item, in ordinal order.
	Items []ItemStatus
	// Handle is the out-of-band tracking reference for distributed runs
	// (empty for local ones, which block until completion).
	Handle string
}

// Success reports whether every item completed (local) or was accepted
// (distributed) without failure.
func (r *Result) Success() bool {
	for _, item := range r.Items {
		if item.Err != nil || item.State == workgraph.StateFailed {
			return false
		}
	}
	return true
}

// Failed returns the statuses of items that did not succeed.
func (r *Result) Failed() []ItemStatus {
	var failed []ItemStatus
	for _, item := range r.Items {
		if item.Err != nil || item.State == workgraph.StateFailed {
			failed = append(failed, item)
		}
	}
	return failed
}

// SubmissionError reports that a backend rejected the job graph as a whole,
// as opposed to per-item failures, which are collected in the Result.
type SubmissionError struct {
	Backend string
	Err     error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("%s submission: %v", e.Backend, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Backend turns a built work graph into actual computation. Implementations
// are selected by configuration, never by call-site branching.
type Backend interface {
	// Validate checks that the backend's external collaborators are configured
	// and resolvable without causing any side effect. Dry runs call it so
	// configuration errors surface exactly as they would on a live submission.
	Validate(req Request) error
	Submit(ctx context.Context, g *workgraph.Graph, req Request) (*Result, error)
}
