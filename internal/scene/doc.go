// Package scene owns the lifecycle of the mutable target document: loading or
// creating it, idempotent node upserts keyed on canonical paths, connection
// wiring, and collision-free saves. The document itself is the single source
// of truth; no component keeps a separate in-memory mirror of it.
package scene
