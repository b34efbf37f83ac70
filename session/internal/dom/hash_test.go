package dom

import "testing"

func TestElementHash_DependsOnXPathTagAndAttrs(t *testing.T) {
	a := &Node{XPath: "/html/body/button[1]", Tag: "button", Attrs: map[string]string{"id": "submit"}}
	b := &Node{XPath: "/html/body/button[1]", Tag: "button", Attrs: map[string]string{"id": "submit"}}
	c := &Node{XPath: "/html/body/button[2]", Tag: "button", Attrs: map[string]string{"id": "submit"}}

	if ElementHash(a) != ElementHash(b) {
		t.Error("ElementHash should be deterministic for identical nodes")
	}
	if ElementHash(a) == ElementHash(c) {
		t.Error("ElementHash should differ when xpath differs")
	}
}

func TestElementHash_AttrOrderIndependent(t *testing.T) {
	a := &Node{Tag: "div", Attrs: map[string]string{"id": "x", "class": "y"}}
	b := &Node{Tag: "div", Attrs: map[string]string{"class": "y", "id": "x"}}
	if ElementHash(a) != ElementHash(b) {
		t.Error("ElementHash should not depend on map iteration order")
	}
}

func TestStableHash_IgnoresClassAndStyleChurn(t *testing.T) {
	a := &Node{Tag: "button", Attrs: map[string]string{"id": "submit", "class": "btn-primary"}}
	b := &Node{Tag: "button", Attrs: map[string]string{"id": "submit", "class": "btn-secondary-hover"}}
	if StableHash(a) != StableHash(b) {
		t.Error("StableHash should ignore class attribute drift")
	}
}

func TestStableHash_DiffersOnNonVolatileAttrChange(t *testing.T) {
	a := &Node{Tag: "button", Attrs: map[string]string{"id": "submit"}}
	b := &Node{Tag: "button", Attrs: map[string]string{"id": "cancel"}}
	if StableHash(a) == StableHash(b) {
		t.Error("StableHash should differ when a non-volatile attribute changes")
	}
}

func TestHashSet_IncludesOnlyElementNodes(t *testing.T) {
	tree := &Tree{}
	tree.Add(&Node{Kind: KindDocument})
	tree.Add(&Node{Kind: KindElement, Tag: "div"})
	tree.Add(&Node{Kind: KindText, Text: "hi"})

	set := HashSet(tree)
	if len(set) != 1 {
		t.Fatalf("HashSet() = %v, want exactly one element hash", set)
	}
}

func TestFingerprint_DependsOnStructureNotText(t *testing.T) {
	t1 := &Tree{Nodes: []*Node{
		{Kind: KindDocument, Children: []int{1}},
		{Kind: KindElement, Tag: "div", Children: []int{2}},
		{Kind: KindText, Text: "hello"},
	}}
	t2 := &Tree{Nodes: []*Node{
		{Kind: KindDocument, Children: []int{1}},
		{Kind: KindElement, Tag: "div", Children: []int{2}},
		{Kind: KindText, Text: "goodbye"},
	}}
	if Fingerprint(t1) != Fingerprint(t2) {
		t.Error("Fingerprint should be unaffected by text content changes")
	}

	t3 := &Tree{Nodes: []*Node{
		{Kind: KindDocument, Children: []int{1}},
		{Kind: KindElement, Tag: "span", Children: []int{2}},
		{Kind: KindText, Text: "hello"},
	}}
	if Fingerprint(t1) == Fingerprint(t3) {
		t.Error("Fingerprint should change when the element tag changes")
	}
}
