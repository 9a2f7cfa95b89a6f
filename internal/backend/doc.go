// Package backend turns a built work graph into computation. Two strategies
// share one contract: Local blocks on in-process evaluation of every work
// item, Deadline serializes items into independent farm jobs and returns a
// tracking handle. Per-item failures are collected into the Result; only
// graph-level problems surface as errors.
package backend
