// Package material derives shader bindings per asset from texture filename
// conventions and attaches them to geometry inside the document. Binding is
// best-effort: missing channels or primitives degrade to warnings, never
// failures.
package material
