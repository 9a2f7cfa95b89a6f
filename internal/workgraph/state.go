package workgraph

import "fmt"

// State is the execution state of a work item. Both backends drive items
// through the same machine: pending -> dirty -> cooking -> done or failed.
type State int32

const (
	// StatePending means the item exists in the graph but has not been
	// invalidated for this run yet.
	StatePending State = iota
	// StateDirty means the item was explicitly invalidated and must cook.
	StateDirty
	// StateCooking means evaluation is underway (in-process for the local
	// backend, farm-side for the distributed one).
	StateCooking
	// StateDone means the item cooked successfully.
	StateDone
	// StateFailed means the item's cook or submission failed.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDirty:
		return "dirty"
	case StateCooking:
		return "cooking"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// IsTerminal reports whether the state is final for a run.
func (s State) IsTerminal() bool {
	return s == StateDone || s == StateFailed
}

// allowedTransition encodes the valid edges of the state machine. Terminal
// states may be re-dirtied, which is what supports forced recomputation on a
// re-entrant run.
func allowedTransition(from, to State) bool {
	switch from {
	case StatePending:
		return to == StateDirty
	case StateDirty:
		// dirty -> failed covers a host error during invalidation itself.
		return to == StateCooking || to == StateFailed
	case StateCooking:
		return to == StateDone || to == StateFailed
	case StateDone, StateFailed:
		return to == StateDirty
	default:
		return false
	}
}
