package workgraph

import (
	"context"

	"github.com/j3borquez/StyrofoamWrap/internal/ctxlog"
	"github.com/j3borquez/StyrofoamWrap/internal/locator"
	"github.com/j3borquez/StyrofoamWrap/internal/scene"
)

// GraphPath is the container node the work graph is built under.
const GraphPath = scene.AssetsPath + "/topnet"

// wedgePath is the shared wedge node that fans the procedural out over the
// per-item ordinals.
const wedgePath = GraphPath + "/wedge_assets"

// Sink node names, one aggregate collector per output slot.
var sinkNames = map[OutputSlot]string{
	SlotWrappedBase:   "collect_wrapped",
	SlotWrappingLayer: "collect_wrapping",
	SlotOriginalModel: "collect_models",
}

// Build constructs the dependency graph of per-asset work items inside the
// document: one wedge per discovered asset, each stamped with its ordinal so
// downstream evaluation can re-run the shared wrap definition per asset, and
// three aggregate sinks collecting the named outputs. Re-invoking Build
// against a document that already contains the graph updates wedge count and
// parameters in place.
func Build(ctx context.Context, mgr *scene.Manager, doc *scene.Document, assets []locator.Asset) (*Graph, error) {
	logger := ctxlog.FromContext(ctx)

	top, err := mgr.EnsureNode(doc, scene.AssetsPath, "topnet", "topnet", nil)
	if err != nil {
		return nil, err
	}
	g := &Graph{root: top.Path()}

	if _, err := mgr.EnsureNode(doc, g.root, "wedge", "wedge_assets", map[string]any{
		"wedgeattrib": "wedgenum",
		"wedgecount":  len(assets),
	}); err != nil {
		return nil, err
	}

	sinks := map[OutputSlot]string{}
	for _, slot := range Slots {
		sink, err := mgr.EnsureNode(doc, g.root, "merge", sinkNames[slot], nil)
		if err != nil {
			return nil, err
		}
		sinks[slot] = sink.Path()
	}

	for i, asset := range assets {
		ordinal := i + 1
		item, err := mgr.EnsureNode(doc, g.root, "wrapfetch", "wrap_"+asset.ID, map[string]any{
			"wedgenum": ordinal,
			"asset":    asset.ID,
			"target":   scene.WrapNodePath,
		})
		if err != nil {
			return nil, err
		}
		if err := mgr.Connect(doc, item.Path(), 0, wedgePath, 0); err != nil {
			return nil, err
		}

		w := &WorkItem{
			AssetID:  asset.ID,
			Ordinal:  ordinal,
			NodePath: item.Path(),
			Outputs:  map[OutputSlot]string{},
		}
		// Output slot k of the item feeds input ordinal-1 of sink k, keeping
		// per-asset results addressable by ordinal on every sink.
		for k, slot := range Slots {
			if err := mgr.Connect(doc, sinks[slot], ordinal-1, item.Path(), k); err != nil {
				return nil, err
			}
			w.Outputs[slot] = sinks[slot]
		}
		g.items = append(g.items, w)
	}

	logger.Debug("Work graph built.", "root", g.root, "items", len(g.items))
	return g, nil
}
