package config

import (
	"fmt"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// DefaultFile is the config file looked up when --config is not given.
const DefaultFile = "styrofoam.hcl"

// Assets configures asset discovery.
type Assets struct {
	// Dir is the directory scanned for geometry and texture files.
	Dir string `hcl:"dir"`
}

// Document configures the target document.
type Document struct {
	// HipPath is the document file to load or create.
	HipPath string `hcl:"hip_path"`
	// UpAxis is the output axis convention, "y" or "z".
	UpAxis string `hcl:"up_axis,optional"`
	// PromptPolicy decides headless handling of the host's
	// dependency-resolution dialog: "fail" (default) or "accept".
	PromptPolicy string `hcl:"prompt_policy,optional"`
	// HDRIPath is the environment texture for the stage dome light. Empty
	// selects the studio default shipped with the wrap HDA.
	HDRIPath string `hcl:"hdri_path,optional"`
}

// Wrap configures the externally supplied wrap procedural.
type Wrap struct {
	// NodeKind is the node type of the wrap definition.
	NodeKind string `hcl:"node_kind,optional"`
	// HDAPath optionally points at the asset bundle providing NodeKind.
	HDAPath string `hcl:"hda_path,optional"`
}

// Frames configures the frame range passed to farm jobs.
type Frames struct {
	Range string `hcl:"range,optional"`
}

// Deadline configures the distributed backend.
type Deadline struct {
	// Command is the full path to deadlinecommand. Empty means resolve from
	// PATH at submit time.
	Command  string `hcl:"command,optional"`
	Pool     string `hcl:"pool,optional"`
	Group    string `hcl:"group,optional"`
	Priority int    `hcl:"priority,optional"`
	// JobName optionally overrides farm job naming. It is an expression
	// evaluated per job with the variables asset, ordinal, stage and
	// document available.
	JobName hcl.Expression `hcl:"job_name,optional"`
}

// Local configures the local backend's host collaborator.
type Local struct {
	// HostCommand is the host application command used to dirty and cook
	// work items in place.
	HostCommand string `hcl:"host_command,optional"`
}

// Pipeline is the full configuration every component receives explicitly.
// There is no global settings object.
type Pipeline struct {
	Assets   Assets    `hcl:"assets,block"`
	Document Document  `hcl:"document,block"`
	Wrap     *Wrap     `hcl:"wrap,block"`
	Frames   *Frames   `hcl:"frames,block"`
	Deadline *Deadline `hcl:"deadline,block"`
	Local    *Local    `hcl:"local,block"`
}

// Load parses and validates the HCL pipeline configuration at path.
func Load(path string) (*Pipeline, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("config file: %w", err)
	}

	parser := hclparse.NewParser()
	file, diags := parser.ParseHCLFile(path)
	if diags.HasErrors() {
		return nil, fmt.Errorf("parsing %s: %s", path, diags.Error())
	}

	var pipeline Pipeline
	if diags := gohcl.DecodeBody(file.Body, nil, &pipeline); diags.HasErrors() {
		return nil, fmt.Errorf("decoding %s: %s", path, diags.Error())
	}

	pipeline.applyDefaults()
	if err := pipeline.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &pipeline, nil
}

// Default returns a Pipeline with every default applied and no required
// fields set. Callers supplying assets.dir and document.hip_path from flags
// start here when no config file exists.
func Default() *Pipeline {
	p := &Pipeline{}
	p.applyDefaults()
	return p
}

func (p *Pipeline) applyDefaults() {
	if p.Document.UpAxis == "" {
		p.Document.UpAxis = "y"
	}
	if p.Document.PromptPolicy == "" {
		p.Document.PromptPolicy = "fail"
	}
	if p.Wrap == nil {
		p.Wrap = &Wrap{}
	}
	if p.Wrap.NodeKind == "" {
		p.Wrap.NodeKind = "styrofoamwrap"
	}
	if p.Frames == nil {
		p.Frames = &Frames{}
	}
	if p.Frames.Range == "" {
		p.Frames.Range = "1-240"
	}
	if p.Deadline == nil {
		p.Deadline = &Deadline{}
	}
	if p.Deadline.Priority == 0 {
		p.Deadline.Priority = 50
	}
	if p.Local == nil {
		p.Local = &Local{}
	}
}

// Validate checks the invariants every run depends on. Backend-specific
// requirements are deferred to submit time.
func (p *Pipeline) Validate() error {
	if p.Assets.Dir == "" {
		return fmt.Errorf("assets.dir must not be empty")
	}
	if p.Document.HipPath == "" {
		return fmt.Errorf("document.hip_path must not be empty")
	}
	switch p.Document.UpAxis {
	case "y", "z":
	default:
		return fmt.Errorf("document.up_axis must be 'y' or 'z', got %q", p.Document.UpAxis)
	}
	switch p.Document.PromptPolicy {
	case "fail", "accept":
	default:
		return fmt.Errorf("document.prompt_policy must be 'fail' or 'accept', got %q", p.Document.PromptPolicy)
	}
	return nil
}

// EvalJobName evaluates the job_name expression with the given variables and
// converts the result to a string. It returns ok=false when no expression is
// configured, leaving the caller to use its default naming.
func (d *Deadline) EvalJobName(vars map[string]cty.Value) (string, bool, error) {
	if d == nil || d.JobName == nil {
		return "", false, nil
	}
	val, diags := d.JobName.Value(&hcl.EvalContext{Variables: vars})
	if diags.HasErrors() {
		return "", false, fmt.Errorf("evaluating deadline.job_name: %s", diags.Error())
	}
	str, err := convert.Convert(val, cty.String)
	if err != nil {
		return "", false, fmt.Errorf("deadline.job_name is not a string: %w", err)
	}
	if str.IsNull() {
		return "", false, nil
	}
	return str.AsString(), true, nil
}
