package dom

import (
	"strconv"
	"strings"
)

// interactiveTags and interactiveRoles are the closed sets from spec.md
// §4.2's interactive predicate.
var interactiveTags = map[string]bool{
	"button": true, "input": true, "select": true, "textarea": true,
	"a": true, "label": true, "details": true, "summary": true,
	"option": true, "optgroup": true,
}

var interactiveRoles = map[string]bool{
	"button": true, "link": true, "menuitem": true, "option": true,
	"radio": true, "checkbox": true, "tab": true, "textbox": true,
	"combobox": true, "slider": true, "spinbutton": true, "listbox": true,
	"search": true, "searchbox": true,
}

var interactiveAttrs = map[string]bool{
	"onclick": true, "onmousedown": true, "onmouseup": true,
	"onkeydown": true, "onkeyup": true, "tabindex": true,
}

// searchIconHints is the closed set of class/id substrings used by the
// search-icon heuristic in spec.md §4.2's interactive predicate.
var searchIconHints = []string{"search-icon", "icon-search", "magnifier", "search-btn", "search-button"}

var droppedTags = map[string]bool{
	"script": true, "style": true, "head": true, "meta": true, "link": true, "title": true,
}

// isPropagating identifies "propagating" elements for the
// containment-prune pass (spec.md §4.2 pass 3).
func isPropagating(n *Node) bool {
	if n.Kind != KindElement {
		return false
	}
	switch n.Tag {
	case "a", "button":
		return true
	case "div", "span", "input":
		role := n.AX.Role
		if n.Tag == "input" {
			return role == "combobox"
		}
		return role == "button" || role == "combobox"
	}
	return false
}

// isInteractive implements spec.md §4.2's interactive predicate.
func isInteractive(n *Node) bool {
	if n.Kind != KindElement {
		return false
	}
	if n.AX.Hidden || n.AX.Disabled {
		return false
	}
	if interactiveTags[n.Tag] {
		return true
	}
	if interactiveRoles[n.AX.Role] {
		return true
	}
	if n.AX.Focusable || n.AX.Editable || n.AX.Settable {
		return true
	}
	if n.AX.Checked || n.AX.Expanded || n.AX.Pressed || n.AX.Selected ||
		n.AX.Required || n.AX.Autocomplete || n.AX.KeyShortcuts {
		return true
	}
	for attr := range n.Attrs {
		if interactiveAttrs[strings.ToLower(attr)] {
			return true
		}
	}
	classID := strings.ToLower(n.Attrs["class"] + " " + n.Attrs["id"])
	for _, hint := range searchIconHints {
		if strings.Contains(classID, hint) {
			return true
		}
	}
	if n.Tag == "iframe" && n.Bounds.W >= 100 && n.Bounds.H >= 100 {
		return true
	}
	if n.Bounds.W >= 10 && n.Bounds.W <= 50 && n.Bounds.H >= 10 && n.Bounds.H <= 50 {
		if len(n.Attrs) > 0 {
			for attr := range n.Attrs {
				if interactiveAttrs[strings.ToLower(attr)] {
					return true
				}
			}
		}
	}
	return false
}

func isFormControl(n *Node) bool {
	return n.Tag == "input" || n.Tag == "select" || n.Tag == "textarea" || n.Tag == "label"
}

// SelectorMap maps the small positive "interactive index" to the resolved
// node (spec.md §3 "Selector map"). Rebuilt on every capture.
type SelectorMap map[int]*Node

// Serializer implements the four-pass tree reduction of spec.md §4.2.
type Serializer struct {
	MaxTotalLength int // default 40000
}

func NewSerializer() *Serializer {
	return &Serializer{MaxTotalLength: 40000}
}

// Result is the serializer's output: the rendered string and the selector
// map it addresses.
type Result struct {
	DOMString   string
	SelectorMap SelectorMap
	Truncated   bool
}

// Serialize runs the four passes and renders the kept nodes. prevHashes is
// the previous capture's hash set (may be nil) used to mark is_new.
func (s *Serializer) Serialize(tree *Tree, prevHashes map[string]bool) Result {
	if tree == nil || len(tree.Nodes) == 0 {
		return Result{SelectorMap: SelectorMap{}}
	}
	kept := s.simplify(tree)
	kept = s.optimize(tree, kept)
	s.containmentPrune(tree, kept)
	sm := s.assignIndices(tree, kept, prevHashes)
	out, truncated := s.render(tree, kept, sm)
	return Result{DOMString: out, SelectorMap: sm, Truncated: truncated}
}

// simplify is pass 1: keep interactive-and-visible, scrollable, nodes with
// kept descendants, and text nodes with ≥2 meaningful characters.
func (s *Serializer) simplify(tree *Tree) map[int]bool {
	kept := make(map[int]bool, len(tree.Nodes))
	var visit func(idx int) bool
	visit = func(idx int) bool {
		n := tree.Nodes[idx]
		if n.Kind == KindElement && droppedTags[n.Tag] {
			return false
		}
		anyChildKept := false
		for _, c := range n.Children {
			if visit(c) {
				anyChildKept = true
			}
		}
		self := false
		switch n.Kind {
		case KindText:
			self = n.Visible && len(strings.TrimSpace(n.Text)) >= 2
			if !n.HasBounds {
				// text nodes have no own bounds captured; fall back on
				// having non-trivial trimmed content.
				self = len(strings.TrimSpace(n.Text)) >= 2
			}
		case KindElement:
			self = (n.Visible && isInteractive(n)) || n.Scrollable || anyChildKept
		case KindDocument, KindFragment:
			self = anyChildKept
		}
		if self {
			kept[idx] = true
		}
		return self
	}
	visit(0)
	return kept
}

// optimize is pass 2: prune passthrough parents with no kept children. The
// simplify pass already only marks a node kept if it qualifies itself or has
// a kept descendant, so a non-interactive element with no kept children is
// one kept for being scrollable; this pass removes those that are
// attribute-less div/span wrappers. Parents with kept children stay.
func (s *Serializer) optimize(tree *Tree, kept map[int]bool) map[int]bool {
	out := make(map[int]bool, len(kept))
	for idx := range kept {
		out[idx] = true
	}
	for idx := range kept {
		n := tree.Nodes[idx]
		if n.Kind != KindElement {
			continue
		}
		if n.Visible && isInteractive(n) {
			continue // never collapse a node that's interactive itself
		}
		keptChildren := 0
		for _, c := range n.Children {
			if kept[c] {
				keptChildren++
			}
		}
		if keptChildren == 0 && len(n.Attrs) == 0 && (n.Tag == "div" || n.Tag == "span") {
			delete(out, idx)
		}
	}
	return out
}

// containmentPrune is pass 3: propagate a propagating element's bounds to
// descendants; mark ≥99%-contained descendants excluded_by_parent unless
// they're form controls, propagating themselves, have onclick, aria-label,
// or an interactive role.
func (s *Serializer) containmentPrune(tree *Tree, kept map[int]bool) {
	var propagate func(idx int, ancestor *Node)
	propagate = func(idx int, ancestor *Node) {
		n := tree.Nodes[idx]
		if ancestor != nil && n.Index != ancestor.Index && kept[idx] {
			exempt := isFormControl(n) || isPropagating(n) || n.Attrs["onclick"] != "" ||
				n.Attrs["aria-label"] != "" || interactiveRoles[n.AX.Role]
			if n.Kind != KindText && !exempt && n.HasBounds && n.Bounds.containedIn(ancestor.Bounds, 0.99) {
				n.ExcludedByParent = true
			}
		}
		nextAncestor := ancestor
		if isPropagating(n) && n.HasBounds {
			nextAncestor = n
		}
		for _, c := range n.Children {
			propagate(c, nextAncestor)
		}
	}
	propagate(0, nil)
}

// assignIndices is pass 4: in document order, assign interactive_index to
// kept, non-excluded, interactive-and-visible nodes; mark is_new when the
// node's hash wasn't present in the previous capture's hash set.
func (s *Serializer) assignIndices(tree *Tree, kept map[int]bool, prevHashes map[string]bool) SelectorMap {
	sm := SelectorMap{}
	next := 1
	tree.Walk(func(n *Node) {
		if !kept[n.Index] || n.ExcludedByParent {
			return
		}
		if n.Kind != KindElement || !n.Visible || !isInteractive(n) {
			return
		}
		n.HighlightIndex = next
		if prevHashes != nil {
			n.IsNew = !prevHashes[ElementHash(n)]
		}
		sm[next] = n
		next++
	})
	return sm
}

// allowedAttrs is the closed rendering allow-list from spec.md §4.2.
var allowedAttrs = []string{
	"title", "type", "checked", "name", "role", "value", "placeholder",
	"data-date-format", "alt", "aria-label", "aria-expanded", "data-state", "aria-checked",
}

func (s *Serializer) render(tree *Tree, kept map[int]bool, sm SelectorMap) (string, bool) {
	var b strings.Builder
	max := s.MaxTotalLength
	if max <= 0 {
		max = 40000
	}
	truncated := false

	var visit func(n *Node, depth int)
	visit = func(n *Node, depth int) {
		if truncated {
			return
		}
		if !kept[n.Index] {
			return
		}
		if n.Kind == KindText {
			line := strings.Repeat("\t", depth) + strings.TrimSpace(n.Text) + "\n"
			appendLine(&b, line, max, &truncated)
		} else if n.Kind == KindElement && !n.ExcludedByParent {
			line := strings.Repeat("\t", depth) + renderElementLine(n) + "\n"
			appendLine(&b, line, max, &truncated)
		}
		childDepth := depth
		if n.Kind == KindElement && !n.ExcludedByParent {
			childDepth = depth + 1
		}
		for _, c := range n.Children {
			visit(tree.Nodes[c], childDepth)
		}
	}
	visit(tree.Nodes[0], 0)
	return b.String(), truncated
}

// appendLine enforces the max-length cap, truncating at the last complete
// line (spec.md §4.2 "Rendering").
func appendLine(b *strings.Builder, line string, max int, truncated *bool) {
	if *truncated {
		return
	}
	if b.Len()+len(line) > max {
		*truncated = true
		return
	}
	b.WriteString(line)
}

func renderElementLine(n *Node) string {
	var marker string
	switch {
	case n.IsNew:
		marker = "*"
	}
	var kind string
	switch {
	case n.Scrollable && n.HighlightIndex > 0:
		kind = "|SCROLL+" + strconv.Itoa(n.HighlightIndex) + "]"
	case n.Tag == "iframe":
		kind = "|IFRAME|"
	case n.HighlightIndex > 0:
		kind = "[" + strconv.Itoa(n.HighlightIndex) + "]"
	default:
		kind = ""
	}

	var b strings.Builder
	b.WriteString(marker)
	b.WriteString(kind)
	b.WriteString("<")
	b.WriteString(n.Tag)
	b.WriteString(renderAttrs(n))
	b.WriteString(" />")
	return b.String()
}

func renderAttrs(n *Node) string {
	seenValues := map[string]bool{}
	var parts []string
	for _, key := range allowedAttrs {
		v, ok := n.Attrs[key]
		if !ok || v == "" {
			continue
		}
		if len(v) > 100 {
			v = v[:100]
		}
		if v == strings.TrimSpace(n.Text) {
			continue // equal to node's own text: redundant
		}
		if seenValues[v] {
			continue
		}
		seenValues[v] = true
		parts = append(parts, key+"=\""+v+"\"")
	}
	if len(parts) == 0 {
		return ""
	}
	return " " + strings.Join(parts, " ")
}
