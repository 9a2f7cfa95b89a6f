package scene

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
)

// PromptPolicy decides what a headless run does when a loaded document would
// raise the host's dependency-resolution dialog.
type PromptPolicy string

const (
	// PromptFail aborts the run. This is the default: failing closed beats
	// silently accepting a state the user never saw.
	PromptFail PromptPolicy = "fail"
	// PromptAccept clears the marker and continues, equivalent to clicking
	// "Save and Continue" in the host.
	PromptAccept PromptPolicy = "accept"
)

// DocumentError reports a load, save, or node-level failure against the
// external document.
type DocumentError struct {
	Op   string
	Path string
	Err  error
}

func (e *DocumentError) Error() string {
	return fmt.Sprintf("document %s %q: %v", e.Op, e.Path, e.Err)
}

func (e *DocumentError) Unwrap() error { return e.Err }

// documentFile is the on-disk form of a document.
type documentFile struct {
	NeedsDependencyResolution bool  `json:"needs_dependency_resolution,omitempty"`
	Root                      *Node `json:"root"`
}

// Manager owns the document lifecycle: load-or-create, idempotent node
// upserts, connection wiring, and collision-free saves.
type Manager struct {
	promptPolicy PromptPolicy
}

// NewManager returns a Manager with the given prompt policy. An empty policy
// falls back to PromptFail.
func NewManager(policy PromptPolicy) *Manager {
	if policy == "" {
		policy = PromptFail
	}
	return &Manager{promptPolicy: policy}
}

// OpenOrCreate loads the document at path, or returns a fresh document when
// the file does not exist. A malformed file is a DocumentError, as is a
// pending dependency-resolution prompt under the fail policy.
func (m *Manager) OpenOrCreate(ctx context.Context, path string) (*Document, error) {
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("Document not found, creating a new one.", "path", path)
		return NewDocument(), nil
	}
	if err != nil {
		return nil, &DocumentError{Op: "load", Path: path, Err: err}
	}

	var file documentFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, &DocumentError{Op: "load", Path: path, Err: err}
	}
	if file.Root == nil {
		return nil, &DocumentError{Op: "load", Path: path, Err: fmt.Errorf("missing document root")}
	}
	doc := &Document{root: file.Root, NeedsDependencyResolution: file.NeedsDependencyResolution}
	doc.relink()

	if doc.NeedsDependencyResolution {
		switch m.promptPolicy {
		case PromptAccept:
			logger.Warn("Document has unresolved dependencies, accepting per prompt policy.", "path", path)
			doc.NeedsDependencyResolution = false
		default:
			return nil, &DocumentError{
				Op:   "load",
				Path: path,
				Err:  fmt.Errorf("document requires dependency resolution and prompt_policy is %q", m.promptPolicy),
			}
		}
	}

	logger.Info("Document loaded.", "path", path)
	return doc, nil
}

// EnsureNode is an idempotent upsert keyed on the canonical path
// parentPath/name. An existing node has its parameters updated in place; a
// missing one is created. A kind mismatch on an existing node is an error
// rather than a silent re-type.
func (m *Manager) EnsureNode(doc *Document, parentPath, kind, name string, parms map[string]any) (*Node, error) {
	parent, ok := doc.Node(parentPath)
	if !ok {
		return nil, &DocumentError{Op: "ensure", Path: parentPath + "/" + name, Err: fmt.Errorf("parent %q does not exist", parentPath)}
	}

	node, exists := parent.Child(name)
	if exists {
		if node.Kind != kind {
			return nil, &DocumentError{
				Op:   "ensure",
				Path: node.Path(),
				Err:  fmt.Errorf("node exists with kind %q, want %q", node.Kind, kind),
			}
		}
	} else {
		node = doc.mustAdd(parent, name, kind)
	}

	if len(parms) > 0 && node.Parms == nil {
		node.Parms = map[string]any{}
	}
	for k, v := range parms {
		node.Parms[k] = v
	}
	return node, nil
}

// SetParm sets a single parameter on the node at path.
func (m *Manager) SetParm(doc *Document, path, parm string, value any) error {
	node, ok := doc.Node(path)
	if !ok {
		return &DocumentError{Op: "parm", Path: path, Err: fmt.Errorf("node does not exist")}
	}
	if node.Parms == nil {
		node.Parms = map[string]any{}
	}
	node.Parms[parm] = value
	return nil
}

// Connect wires output srcOutput of the node at srcPath into input index
// input of the node at dstPath. Re-wiring an input to the same source is a
// no-op, so repeated builds never accumulate connections.
func (m *Manager) Connect(doc *Document, dstPath string, input int, srcPath string, srcOutput int) error {
	dst, ok := doc.Node(dstPath)
	if !ok {
		return &DocumentError{Op: "connect", Path: dstPath, Err: fmt.Errorf("destination does not exist")}
	}
	if _, ok := doc.Node(srcPath); !ok {
		return &DocumentError{Op: "connect", Path: srcPath, Err: fmt.Errorf("source does not exist")}
	}
	if input < 0 {
		return &DocumentError{Op: "connect", Path: dstPath, Err: fmt.Errorf("negative input index %d", input)}
	}
	for len(dst.Inputs) <= input {
		dst.Inputs = append(dst.Inputs, Connection{})
	}
	dst.Inputs[input] = Connection{Src: srcPath, Output: srcOutput}
	return nil
}

// Save writes the document to path. When uniqueIfExists is set and the target
// already exists, a numeric suffix is appended instead of overwriting; this
// is the cross-run collision guard. The resolved path is returned.
func (m *Manager) Save(ctx context.Context, doc *Document, path string, uniqueIfExists bool) (string, error) {
	logger := ctxlog.FromContext(ctx)

	resolved := path
	if uniqueIfExists {
		var err error
		resolved, err = uniquePath(path)
		if err != nil {
			return "", &DocumentError{Op: "save", Path: path, Err: err}
		}
	}

	file := documentFile{
		NeedsDependencyResolution: doc.NeedsDependencyResolution,
		Root:                      doc.root,
	}
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return "", &DocumentError{Op: "save", Path: resolved, Err: err}
	}
	if err := os.WriteFile(resolved, append(data, '\n'), 0o644); err != nil {
		return "", &DocumentError{Op: "save", Path: resolved, Err: err}
	}

	if resolved != path {
		logger.Info("Document saved under unique path.", "requested", path, "path", resolved)
	} else {
		logger.Info("Document saved.", "path", resolved)
	}
	return resolved, nil
}

// uniquePath returns path itself when free, otherwise the first
// stem_001.ext, stem_002.ext, ... that does not exist yet.
func uniquePath(path string) (string, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return path, nil
	} else if err != nil {
		return "", err
	}
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(path, ext)
	for i := 1; i < 1000; i++ {
		candidate := fmt.Sprintf("%s_%03d%s", stem, i, ext)
		if _, err := os.Stat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free suffix for %q", path)
}

// CleanModified removes derived geometry files (modified_*.usd) left behind by
// previous runs. With dryRun set it only reports what would be removed.
// Individual removal failures degrade to warnings.
func (m *Manager) CleanModified(ctx context.Context, assetsDir string, dryRun bool) []string {
	logger := ctxlog.FromContext(ctx)

	matches, err := filepath.Glob(filepath.Join(assetsDir, "modified_*"+".usd"))
	if err != nil {
		logger.Warn("Derived file scan failed.", "dir", assetsDir, "error", err)
		return nil
	}

	var removed []string
	for _, match := range matches {
		if dryRun {
			logger.Info("[dry-run] Would remove derived file.", "path", match)
			removed = append(removed, match)
			continue
		}
		if err := os.Remove(match); err != nil {
			logger.Warn("Could not remove derived file.", "path", match, "error", err)
			continue
		}
		logger.Info("Removed derived file.", "path", match)
		removed = append(removed, match)
	}
	return removed
}
