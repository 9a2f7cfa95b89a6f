package backend

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/j3borquez/StyrofoamWrap/internal/config"
	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
	"github.com/j3borquez/StyrofoamWrap/internal/workgraph"
	"github.com/zclconf/go-cty/cty"
)

// deadlineCommandName is the farm client binary looked up on PATH when no
// explicit command path is configured.
const deadlineCommandName = "deadlinecommand"

// Stage names of the two farm jobs emitted per work item.
const (
	stageWrapping  = "wrapping"
	stagePackaging = "packaging"
)

// Deadline serializes each work item's evaluation into independent farm jobs
// and returns immediately with a tracking handle; completion is observed
// farm-side, never polled here. Items for different assets carry no mutual
// dependencies and may run in parallel; an item's packaging job depends on
// its own wrapping job.
type Deadline struct{}

// NewDeadline returns the distributed backend.
func NewDeadline() *Deadline {
	return &Deadline{}
}

// Validate implements Backend. Resolving the farm command only stats the
// filesystem or searches PATH; nothing is executed.
func (d *Deadline) Validate(req Request) error {
	if _, err := resolveCommand(req.Deadline); err != nil {
		return &SubmissionError{Backend: "deadline", Err: err}
	}
	return nil
}

// Submit implements Backend. A rejected job for one item is recorded as that
// item's failure and does not block its siblings; only an unresolvable farm
// command or malformed request aborts the submission as a whole.
func (d *Deadline) Submit(ctx context.Context, g *workgraph.Graph, req Request) (*Result, error) {
	logger := ctxlog.FromContext(ctx)

	if req.DocumentPath == "" {
		return nil, &SubmissionError{Backend: "deadline", Err: fmt.Errorf("request has no document path")}
	}
	command, err := resolveCommand(req.Deadline)
	if err != nil {
		return nil, &SubmissionError{Backend: "deadline", Err: err}
	}

	result := &Result{RunID: uuid.New(), Backend: "deadline"}
	result.Handle = result.RunID.String()

	for _, item := range g.Items() {
		status := ItemStatus{Ordinal: item.Ordinal, AssetID: item.AssetID}

		if item.State() != workgraph.StateDirty {
			item.MarkDirty()
		}

		wrapID, err := d.submitStage(ctx, command, item, req, stageWrapping, "")
		if err == nil {
			status.JobIDs = append(status.JobIDs, wrapID)
			var packageID string
			packageID, err = d.submitStage(ctx, command, item, req, stagePackaging, wrapID)
			if err == nil {
				status.JobIDs = append(status.JobIDs, packageID)
			}
		}

		if err != nil {
			item.Err = err
			status.Err = err
			if terr := item.Transition(workgraph.StateFailed); terr != nil {
				return nil, terr
			}
			logger.Error("Farm submission failed for work item.", "asset", item.AssetID, "error", err)
		} else {
			if terr := item.Transition(workgraph.StateCooking); terr != nil {
				return nil, terr
			}
			logger.Info("Work item submitted to farm.", "asset", item.AssetID, "jobs", status.JobIDs)
		}
		status.State = item.State()
		result.Items = append(result.Items, status)
	}

	if err := d.writeStartupScript(ctx, req, result.Handle); err != nil {
		return nil, err
	}
	return result, nil
}

// resolveCommand finds the farm client: an explicitly configured path must
// exist, otherwise PATH is searched.
func resolveCommand(cfg *config.Deadline) (string, error) {
	if cfg != nil && cfg.Command != "" {
		if _, err := os.Stat(cfg.Command); err != nil {
			return "", fmt.Errorf("deadline command %q: %w", cfg.Command, err)
		}
		return cfg.Command, nil
	}
	found, err := exec.LookPath(deadlineCommandName)
	if err != nil {
		return "", fmt.Errorf("cannot find %q on PATH and no deadline.command configured", deadlineCommandName)
	}
	return found, nil
}

// submitStage submits one job for one work item stage and returns the farm
// job identifier.
func (d *Deadline) submitStage(ctx context.Context, command string, item *workgraph.WorkItem, req Request, stage, dependsOn string) (string, error) {
	name, err := jobName(item, req, stage)
	if err != nil {
		return "", err
	}

	jobInfo := []string{
		"Plugin=Houdini",
		"Name=" + name,
		"Frames=" + req.FrameRange,
		"Comment=Automated styrofoam wrap (" + stage + ")",
	}
	if dependsOn != "" {
		jobInfo = append(jobInfo, "DependsOnJobID="+dependsOn)
	}
	if cfg := req.Deadline; cfg != nil {
		if cfg.Pool != "" {
			jobInfo = append(jobInfo, "Pool="+cfg.Pool)
		}
		if cfg.Group != "" {
			jobInfo = append(jobInfo, "Group="+cfg.Group)
		}
		if cfg.Priority > 0 {
			jobInfo = append(jobInfo, fmt.Sprintf("Priority=%d", cfg.Priority))
		}
	}

	pluginInfo := []string{
		"HoudiniHipFile=" + req.DocumentPath,
		"HoudiniOutputDriver=" + item.NodePath,
		fmt.Sprintf("WedgeNum=%d", item.Ordinal),
		"Stage=" + stage,
	}

	return d.runSubmission(ctx, command, req.AssetsDir, jobInfo, pluginInfo)
}

// jobName builds the farm job name, honoring the configured job_name
// expression when present.
func jobName(item *workgraph.WorkItem, req Request, stage string) (string, error) {
	vars := map[string]cty.Value{
		"asset":    cty.StringVal(item.AssetID),
		"ordinal":  cty.NumberIntVal(int64(item.Ordinal)),
		"stage":    cty.StringVal(stage),
		"document": cty.StringVal(req.DocumentPath),
	}
	if name, ok, err := req.Deadline.EvalJobName(vars); err != nil {
		return "", err
	} else if ok {
		return name, nil
	}
	stem := strings.TrimSuffix(filepath.Base(req.DocumentPath), filepath.Ext(req.DocumentPath))
	return fmt.Sprintf("Wrap_%s_%s_%s", item.AssetID, stage, stem), nil
}

// runSubmission writes the job and plugin info files and invokes the farm
// client, parsing the job identifier from its output.
func (d *Deadline) runSubmission(ctx context.Context, command, workDir string, jobInfo, pluginInfo []string) (string, error) {
	jiPath, err := writeInfoFile("job_info_*.txt", jobInfo)
	if err != nil {
		return "", err
	}
	defer os.Remove(jiPath)

	piPath, err := writeInfoFile("plugin_info_*.txt", pluginInfo)
	if err != nil {
		return "", err
	}
	defer os.Remove(piPath)

	cmd := exec.CommandContext(ctx, command, jiPath, piPath)
	cmd.Dir = workDir
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%s: %w: %s", command, err, strings.TrimSpace(string(out)))
	}
	return parseJobID(string(out)), nil
}

func writeInfoFile(pattern string, lines []string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", err
	}
	if _, err := f.WriteString(strings.Join(lines, "\n") + "\n"); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// parseJobID extracts the job identifier from deadlinecommand output. It
// prefers an explicit JobID= line and falls back to the trimmed output.
func parseJobID(out string) string {
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if id, ok := strings.CutPrefix(line, "JobID="); ok {
			return strings.TrimSpace(id)
		}
	}
	return strings.TrimSpace(out)
}

// writeStartupScript drops the small pointer file the host application reads
// on next launch: the saved document, the scheduler selection, and the prompt
// policy of the run that produced it. The core never interprets it.
func (d *Deadline) writeStartupScript(ctx context.Context, req Request, handle string) error {
	logger := ctxlog.FromContext(ctx)

	stem := strings.TrimSuffix(req.DocumentPath, filepath.Ext(req.DocumentPath))
	path := stem + "_startup.py"
	content := fmt.Sprintf(`# Generated startup pointer. Consumed by the host application on launch.
HIP_FILE = %q
SCHEDULER = "deadline"
PROMPT_POLICY = %q
TRACKING_HANDLE = %q
`, req.DocumentPath, req.PromptPolicy, handle)

	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return &SubmissionError{Backend: "deadline", Err: fmt.Errorf("startup script: %w", err)}
	}
	logger.Info("Startup script written.", "path", path)
	return nil
}
