package dom

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// ElementHash computes the "(xpath | tag | attributes_json)" content hash
// spec.md §3 "Hash cache" uses to detect new elements between captures.
// Grounded on a skeleton-hash technique (structural hash ignoring volatile
// content) but keyed per-element rather than whole-page, and including
// xpath since spec.md names it explicitly.
func ElementHash(n *Node) string {
	var b strings.Builder
	b.WriteString(n.XPath)
	b.WriteByte('|')
	b.WriteString(n.Tag)
	b.WriteByte('|')
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(n.Attrs[k])
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// HashSet computes the full set of element hashes for a capture, used as
// the "previous capture's hash set" input to the next Serialize call.
func HashSet(tree *Tree) map[string]bool {
	set := make(map[string]bool, len(tree.Nodes))
	for _, n := range tree.Nodes {
		if n.Kind == KindElement {
			set[ElementHash(n)] = true
		}
	}
	return set
}

// StableHash computes spec.md §9's "stable hash" for replay re-resolution:
// normalized tag + sorted attribute set, dropping drift-prone class lists so
// the hash survives style/class churn that xpath does not.
func StableHash(n *Node) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(n.Tag))
	b.WriteByte('|')
	keys := make([]string, 0, len(n.Attrs))
	for k := range n.Attrs {
		if k == "class" || k == "style" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(n.Attrs[k])
		b.WriteByte(';')
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}

// Fingerprint computes a whole-tree structural hash (tags + nesting depth,
// ignoring text/attributes), grounded on a skeleton-extraction/fingerprint
// technique for classifying page-structure change. Exposed as an optional
// diagnostic field on BrowserStateSummary so a caller can detect layout
// change without diffing the full serialized string.
func Fingerprint(tree *Tree) string {
	var b strings.Builder
	var walk func(idx, depth int)
	walk = func(idx, depth int) {
		n := tree.Nodes[idx]
		if n.Kind == KindElement {
			b.WriteString(strings.Repeat(" ", depth))
			b.WriteString(n.Tag)
			b.WriteByte(';')
		}
		for _, c := range n.Children {
			walk(c, depth+1)
		}
	}
	if len(tree.Nodes) > 0 {
		walk(0, 0)
	}
	sum := sha256.Sum256([]byte(b.String()))
	return hex.EncodeToString(sum[:16])
}
