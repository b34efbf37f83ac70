// Package dom captures a live page's element tree and serializes it into a
// compact, index-addressable string an LLM can act on. Node storage follows
// an xpath-indexed nodeMap idiom, adapted from a CDP-event-keyed map into a
// contiguous arena (spec.md §9: "allocate all nodes into a contiguous
// arena; parent/child link by integer index").
package dom

// Kind is the node kind in the raw captured tree.
type Kind int

const (
	KindElement Kind = iota
	KindText
	KindDocument
	KindFragment
)

// Rect is a page-relative bounding box in CSS pixels.
type Rect struct {
	X, Y, W, H float64
}

// Empty reports whether the rect has zero area.
func (r Rect) Empty() bool { return r.W <= 0 || r.H <= 0 }

// containedIn reports whether r is contained in other by at least frac
// (area-fraction), used by the containment-prune pass.
func (r Rect) containedIn(other Rect, frac float64) bool {
	if r.Empty() || other.Empty() {
		return false
	}
	ix0, iy0 := max(r.X, other.X), max(r.Y, other.Y)
	ix1, iy1 := min(r.X+r.W, other.X+other.W), min(r.Y+r.H, other.Y+other.H)
	iw, ih := ix1-ix0, iy1-iy0
	if iw <= 0 || ih <= 0 {
		return false
	}
	inter := iw * ih
	area := r.W * r.H
	if area <= 0 {
		return false
	}
	return inter/area >= frac
}

func max(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func min(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// AXProps is the flat accessibility property list captured per node.
type AXProps struct {
	Role        string
	Focusable   bool
	Hidden      bool
	Disabled    bool
	Editable    bool
	Settable    bool
	Expanded    bool
	Checked     bool
	Selected    bool
	Pressed     bool
	Required    bool
	Autocomplete bool
	KeyShortcuts bool
	Name        string // ax_name, used as a replay fallback match key
}

// Node is a raw DOM node (spec.md §3 "DOM node (raw)"). The tree is owned by
// the capture that produced it; never mutated after serialization except to
// set HighlightIndex and IsNew (spec.md §3).
type Node struct {
	Index int // this node's own arena index

	Kind Kind
	Tag  string // lowercased tag name, empty for text/document/fragment
	Attrs map[string]string
	Text string // trimmed text content, KindText only

	XPath string
	AX    AXProps

	Bounds    Rect
	HasBounds bool
	Visible   bool // bounds present ∧ not hidden ∧ area > 0
	Scrollable bool

	BackendNodeID int64 // CDP backend node id, used for replay re-resolution

	Parent   int // arena index, -1 for root
	Children []int

	// Set during serialization only.
	HighlightIndex   int // 0 = not assigned
	IsNew            bool
	ExcludedByParent bool
}

// Tree is the arena: index 0 is always the document/root node.
type Tree struct {
	Nodes []*Node
}

// Root returns the tree's root node, or nil if empty.
func (t *Tree) Root() *Node {
	if len(t.Nodes) == 0 {
		return nil
	}
	return t.Nodes[0]
}

// Add appends a node to the arena and returns its assigned index.
func (t *Tree) Add(n *Node) int {
	n.Index = len(t.Nodes)
	t.Nodes = append(t.Nodes, n)
	return n.Index
}

// Walk visits every node in document order (pre-order), depth first.
func (t *Tree) Walk(fn func(*Node)) {
	if len(t.Nodes) == 0 {
		return
	}
	var visit func(idx int)
	visit = func(idx int) {
		n := t.Nodes[idx]
		fn(n)
		for _, c := range n.Children {
			visit(c)
		}
	}
	visit(0)
}
