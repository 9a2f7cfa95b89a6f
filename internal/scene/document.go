package scene

import "strings"

// Connection is one wired input of a node: the canonical path of the source
// node and which of its outputs feeds this input.
type Connection struct {
	Src    string `json:"src"`
	Output int    `json:"output,omitempty"`
}

// Node is a single named node in the document tree. Children keep insertion
// order so a saved document round-trips deterministically.
type Node struct {
	Name     string         `json:"name"`
	Kind     string         `json:"kind,omitempty"`
	Parms    map[string]any `json:"parms,omitempty"`
	Inputs   []Connection   `json:"inputs,omitempty"`
	Display  bool           `json:"display,omitempty"`
	Children []*Node        `json:"children,omitempty"`

	parent *Node
}

// Path returns the canonical slash-separated address of the node, the unique
// key every idempotent upsert operates on.
func (n *Node) Path() string {
	if n.parent == nil {
		return "/"
	}
	parent := n.parent.Path()
	if parent == "/" {
		return "/" + n.Name
	}
	return parent + "/" + n.Name
}

// Child returns the direct child with the given name.
func (n *Node) Child(name string) (*Node, bool) {
	for _, c := range n.Children {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Document is the mutable external scene state: a tree of named nodes with
// typed parameters and explicit connections. It is the single source of truth;
// components re-query it instead of mirroring it.
type Document struct {
	root *Node

	// NeedsDependencyResolution is set when a loaded document carries
	// unresolved references and the host would normally raise a confirmation
	// dialog. Headless handling is governed by the manager's prompt policy.
	NeedsDependencyResolution bool
}

// NewDocument creates an empty document with the standard /obj and /stage
// network roots.
func NewDocument() *Document {
	doc := &Document{root: &Node{Name: ""}}
	doc.mustAdd(doc.root, "obj", "objnet")
	doc.mustAdd(doc.root, "stage", "lopnet")
	return doc
}

func (d *Document) mustAdd(parent *Node, name, kind string) *Node {
	n := &Node{Name: name, Kind: kind, parent: parent}
	parent.Children = append(parent.Children, n)
	return n
}

// Root returns the document's root node.
func (d *Document) Root() *Node { return d.root }

// Node resolves a canonical path against the current tree. Every existence
// check goes through here so there is no cached mirror that can drift.
func (d *Document) Node(path string) (*Node, bool) {
	if path == "/" {
		return d.root, true
	}
	cur := d.root
	for _, seg := range strings.Split(strings.Trim(path, "/"), "/") {
		next, ok := cur.Child(seg)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, true
}

// relink restores parent pointers after deserialization.
func (d *Document) relink() {
	var walk func(n *Node)
	walk = func(n *Node) {
		for _, c := range n.Children {
			c.parent = n
			walk(c)
		}
	}
	d.root.parent = nil
	walk(d.root)
}
