// Package workgraph builds the per-asset work item graph inside the document
// and owns the work item state machine shared by both execution backends.
package workgraph
