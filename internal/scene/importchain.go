package scene

import (
	"context"
	"fmt"

	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
	"github.com/j3borquez/StyrofoamWrap/internal/locator"
)

// AssetsPath is the container every discovered asset is imported under.
const AssetsPath = "/obj/assets"

// WrapNodePath is the canonical path of the procedural wrap definition inside
// the import chain. The execution backends address it by this path.
const WrapNodePath = AssetsPath + "/wrapped_assets"

// ImportSpec carries the configuration the geometry import chain needs.
type ImportSpec struct {
	// UpAxis is "y" or "z". Z-up sources get a -90 X rotation into Y-up.
	UpAxis string
	// WrapKind is the node kind of the externally supplied wrap procedural.
	WrapKind string
	// HDAPath optionally points at the asset bundle providing WrapKind.
	HDAPath string
}

// BuildImportChain ensures the SOP chain that feeds every discovered asset
// into the wrap procedural: per-asset import nodes, a merge, the wedge
// connectivity split, and the wrap node itself. Built entirely from
// idempotent upserts, so re-running against an existing document updates
// parameters instead of duplicating nodes.
func (m *Manager) BuildImportChain(ctx context.Context, doc *Document, assets []locator.Asset, spec ImportSpec) error {
	logger := ctxlog.FromContext(ctx)

	if _, err := m.EnsureNode(doc, "/obj", "geo", "assets", nil); err != nil {
		return err
	}

	importPaths := make([]string, 0, len(assets))
	for _, asset := range assets {
		node, err := m.EnsureNode(doc, AssetsPath, "usdimport", "import_"+asset.ID, map[string]any{
			"file": asset.GeometryPath,
		})
		if err != nil {
			return err
		}
		importPaths = append(importPaths, node.Path())
	}

	merge, err := m.EnsureNode(doc, AssetsPath, "merge", "merge_usds", nil)
	if err != nil {
		return err
	}
	for i, path := range importPaths {
		if err := m.Connect(doc, merge.Path(), i, path, 0); err != nil {
			return err
		}
	}

	out, err := m.EnsureNode(doc, AssetsPath, "null", "OUT", nil)
	if err != nil {
		return err
	}
	if err := m.Connect(doc, out.Path(), 0, merge.Path(), 0); err != nil {
		return err
	}
	upstream := out.Path()

	// Source geometry is Z-up; only a Y-up target needs the rotation.
	if spec.UpAxis == "y" {
		xform, err := m.EnsureNode(doc, AssetsPath, "xform", "z_to_y", map[string]any{
			"rx": float64(-90),
		})
		if err != nil {
			return err
		}
		if err := m.Connect(doc, xform.Path(), 0, upstream, 0); err != nil {
			return err
		}
		upstream = xform.Path()
	}

	conn, err := m.EnsureNode(doc, AssetsPath, "connectivity", "connectivity_prim_wedge", map[string]any{
		"connecttype": 1,
		"attribname":  "wedge",
	})
	if err != nil {
		return err
	}
	if err := m.Connect(doc, conn.Path(), 0, upstream, 0); err != nil {
		return err
	}

	blast, err := m.EnsureNode(doc, AssetsPath, "blast", "blast_wedge", map[string]any{
		"group": "!@wedge==@wedgenum",
	})
	if err != nil {
		return err
	}
	if err := m.Connect(doc, blast.Path(), 0, conn.Path(), 0); err != nil {
		return err
	}

	unpack, err := m.EnsureNode(doc, AssetsPath, "unpackusd", "unpack_usd", map[string]any{
		"output": "polygons",
	})
	if err != nil {
		return err
	}
	if err := m.Connect(doc, unpack.Path(), 0, blast.Path(), 0); err != nil {
		return err
	}

	if spec.WrapKind == "" {
		return &DocumentError{Op: "ensure", Path: WrapNodePath, Err: fmt.Errorf("wrap node kind is not configured")}
	}
	wrapParms := map[string]any{}
	if spec.HDAPath != "" {
		wrapParms["hda_path"] = spec.HDAPath
	}
	wrap, err := m.EnsureNode(doc, AssetsPath, spec.WrapKind, "wrapped_assets", wrapParms)
	if err != nil {
		return err
	}
	if err := m.Connect(doc, wrap.Path(), 0, unpack.Path(), 0); err != nil {
		return err
	}

	final, err := m.EnsureNode(doc, AssetsPath, "null", "FINAL_OUT", nil)
	if err != nil {
		return err
	}
	final.Display = true
	if err := m.Connect(doc, final.Path(), 0, wrap.Path(), 0); err != nil {
		return err
	}

	logger.Debug("Import chain ensured.", "assets", len(assets), "wrap_kind", spec.WrapKind)
	return nil
}
