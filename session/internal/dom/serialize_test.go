package dom

import (
	"strings"
	"testing"
)

// buildTree constructs: document > body > (button#submit, div > text)
func buildSimpleTree() *Tree {
	tree := &Tree{}
	tree.Add(&Node{Kind: KindDocument, Parent: -1})
	body := &Node{Kind: KindElement, Tag: "body", Parent: 0, Visible: true}
	bodyIdx := tree.Add(body)
	tree.Nodes[0].Children = []int{bodyIdx}

	button := &Node{
		Kind: KindElement, Tag: "button", Parent: bodyIdx, Visible: true,
		Attrs: map[string]string{"aria-label": "Submit"}, HasBounds: true, Bounds: Rect{W: 80, H: 30},
	}
	buttonIdx := tree.Add(button)

	wrapper := &Node{Kind: KindElement, Tag: "div", Parent: bodyIdx, Visible: true}
	wrapperIdx := tree.Add(wrapper)

	text := &Node{Kind: KindText, Text: "hello world", Parent: wrapperIdx, Visible: true, HasBounds: true}
	textIdx := tree.Add(text)
	wrapper.Children = []int{textIdx}

	body.Children = []int{buttonIdx, wrapperIdx}
	return tree
}

func TestSerialize_AssignsIndexToInteractiveElement(t *testing.T) {
	s := NewSerializer()
	result := s.Serialize(buildSimpleTree(), nil)

	if len(result.SelectorMap) != 1 {
		t.Fatalf("SelectorMap = %+v, want exactly the button indexed", result.SelectorMap)
	}
	n, ok := result.SelectorMap[1]
	if !ok || n.Tag != "button" {
		t.Fatalf("SelectorMap[1] = %+v, want the button node", n)
	}
	if !strings.Contains(result.DOMString, "[1]<button") {
		t.Errorf("DOMString = %q, want a [1]<button.../> line", result.DOMString)
	}
	if !strings.Contains(result.DOMString, "hello world") {
		t.Errorf("DOMString = %q, want the kept text node rendered", result.DOMString)
	}
}

func TestSerialize_MarksNewElementsAgainstPrevHashes(t *testing.T) {
	s := NewSerializer()
	tree := buildSimpleTree()
	result := s.Serialize(tree, map[string]bool{})

	n := result.SelectorMap[1]
	if !n.IsNew {
		t.Error("button not present in prevHashes should be marked IsNew")
	}
}

func TestSerialize_EmptyTreeReturnsEmptyResult(t *testing.T) {
	s := NewSerializer()
	result := s.Serialize(&Tree{}, nil)
	if len(result.SelectorMap) != 0 || result.DOMString != "" {
		t.Errorf("Serialize(empty tree) = %+v, want empty result", result)
	}
}

func TestSerialize_TruncatesAtMaxLength(t *testing.T) {
	s := NewSerializer()
	s.MaxTotalLength = 10
	result := s.Serialize(buildSimpleTree(), nil)
	if !result.Truncated {
		t.Error("Serialize with a tiny MaxTotalLength should report Truncated")
	}
}

func TestIsInteractive_TagRoleAndAttrRules(t *testing.T) {
	cases := []struct {
		name string
		n    *Node
		want bool
	}{
		{"button tag", &Node{Kind: KindElement, Tag: "button"}, true},
		{"div with button role", &Node{Kind: KindElement, Tag: "div", AX: AXProps{Role: "button"}}, true},
		{"plain div", &Node{Kind: KindElement, Tag: "div"}, false},
		{"hidden button", &Node{Kind: KindElement, Tag: "button", AX: AXProps{Hidden: true}}, false},
		{"onclick div", &Node{Kind: KindElement, Tag: "div", Attrs: map[string]string{"onclick": "x()"}}, true},
		{"search icon class", &Node{Kind: KindElement, Tag: "div", Attrs: map[string]string{"class": "search-icon"}}, true},
	}
	for _, c := range cases {
		if got := isInteractive(c.n); got != c.want {
			t.Errorf("isInteractive(%s) = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestRenderAttrs_DropsRedundantAndOverlongValues(t *testing.T) {
	n := &Node{Tag: "input", Text: "value-text", Attrs: map[string]string{
		"placeholder": "value-text", // equal to own text: dropped
		"name":        "q",
		"value":       strings.Repeat("x", 200),
	}}
	out := renderAttrs(n)
	if strings.Contains(out, "placeholder=") {
		t.Errorf("renderAttrs = %q, want placeholder dropped (redundant with node text)", out)
	}
	if !strings.Contains(out, `name="q"`) {
		t.Errorf("renderAttrs = %q, want name=\"q\"", out)
	}
	if strings.Contains(out, strings.Repeat("x", 200)) {
		t.Errorf("renderAttrs did not truncate an overlong attribute value")
	}
}

func TestRenderAttrs_DedupsAcrossDistinctKeysSharingAValue(t *testing.T) {
	n := &Node{Tag: "button", Attrs: map[string]string{
		"title":      "Submit",
		"aria-label": "Submit",
	}}
	out := renderAttrs(n)
	if !strings.Contains(out, `title="Submit"`) {
		t.Errorf("renderAttrs = %q, want the first allow-listed key (title) rendered", out)
	}
	if strings.Contains(out, `aria-label=`) {
		t.Errorf("renderAttrs = %q, want aria-label dropped as a duplicate value of title", out)
	}
}
