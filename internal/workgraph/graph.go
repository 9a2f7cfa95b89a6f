package workgraph

import (
	"fmt"
	"sync/atomic"
)

// OutputSlot names one of the three outputs every work item exposes.
type OutputSlot string

const (
	// SlotWrappedBase is the asset geometry with the wrap applied.
	SlotWrappedBase OutputSlot = "wrapped-base"
	// SlotWrappingLayer is the wrap shell itself.
	SlotWrappingLayer OutputSlot = "wrapping-layer"
	// SlotOriginalModel is the untouched input geometry.
	SlotOriginalModel OutputSlot = "original-model"
)

// Slots lists the output slots in their fixed wiring order.
var Slots = []OutputSlot{SlotWrappedBase, SlotWrappingLayer, SlotOriginalModel}

// WorkItem is the per-asset unit of procedural work. Its ordinal is the wedge
// index: one shared procedural definition re-evaluates once per distinct
// ordinal, so ordinals must be stable across runs for reproducible
// re-execution.
type WorkItem struct {
	// AssetID references the asset record the item was created for.
	AssetID string
	// Ordinal is position-in-discovery-order + 1, strictly increasing.
	Ordinal int
	// NodePath is the canonical path of the item's node in the document.
	NodePath string
	// Outputs maps each named output slot to the aggregate sink collecting it.
	Outputs map[OutputSlot]string

	// Err records the cook or submission failure for a failed item.
	Err error

	state atomic.Int32
}

// State returns the item's current execution state.
func (w *WorkItem) State() State {
	return State(w.state.Load())
}

// Transition moves the item to the given state, validating the edge. An
// invalid transition indicates a backend bug and is returned as an error.
func (w *WorkItem) Transition(to State) error {
	from := w.State()
	if !allowedTransition(from, to) {
		return fmt.Errorf("work item %q (ordinal %d): invalid transition %s -> %s",
			w.AssetID, w.Ordinal, from, to)
	}
	w.state.Store(int32(to))
	return nil
}

// MarkDirty invalidates the item regardless of its current state, the
// caller-facing hook behind forced recomputation. Items already dirty stay
// dirty.
func (w *WorkItem) MarkDirty() {
	w.state.Store(int32(StateDirty))
}

// Graph is the built work graph: all per-asset items in ordinal order plus
// the document path they live under.
type Graph struct {
	root  string
	items []*WorkItem
}

// Root returns the canonical path of the work graph's container node.
func (g *Graph) Root() string { return g.root }

// Items returns the work items in ordinal order.
func (g *Graph) Items() []*WorkItem { return g.items }

// Item looks up a work item by asset identifier.
func (g *Graph) Item(assetID string) (*WorkItem, bool) {
	for _, it := range g.items {
		if it.AssetID == assetID {
			return it, true
		}
	}
	return nil, false
}
