package agent

import (
	"testing"

	"github.com/hahsanayub/browseragent/session"
)

func TestMatchByBackendNodeID(t *testing.T) {
	sm := session.SelectorMap{
		1: &session.Node{BackendNodeID: 100},
		2: &session.Node{BackendNodeID: 200},
	}
	idx, ok := matchByBackendNodeID(sm, "200")
	if !ok || idx != 2 {
		t.Errorf("matchByBackendNodeID(200) = (%d, %v), want (2, true)", idx, ok)
	}
	if _, ok := matchByBackendNodeID(sm, ""); ok {
		t.Error("matchByBackendNodeID(\"\") should not match")
	}
	if _, ok := matchByBackendNodeID(sm, "999"); ok {
		t.Error("matchByBackendNodeID(999) should not match")
	}
}

func TestMatchByXPath(t *testing.T) {
	sm := session.SelectorMap{
		1: &session.Node{XPath: "/html/body/div[1]"},
		2: &session.Node{XPath: "/html/body/div[2]"},
	}
	idx, ok := matchByXPath(sm, "/html/body/div[2]")
	if !ok || idx != 2 {
		t.Errorf("matchByXPath = (%d, %v), want (2, true)", idx, ok)
	}
	if _, ok := matchByXPath(sm, "/html/body/div[9]"); ok {
		t.Error("matchByXPath with no match should fail")
	}
}

func TestMatchByAXName(t *testing.T) {
	sm := session.SelectorMap{
		1: &session.Node{AX: session.AXProps{Name: "Submit"}},
		2: &session.Node{AX: session.AXProps{Name: "Cancel"}},
	}
	idx, ok := matchByAXName(sm, "Cancel")
	if !ok || idx != 2 {
		t.Errorf("matchByAXName = (%d, %v), want (2, true)", idx, ok)
	}
}

func TestMatchByStableHash_TieBreaksToSmallestIndex(t *testing.T) {
	sm := session.SelectorMap{
		5: &session.Node{Tag: "button", XPath: "/a"},
		2: &session.Node{Tag: "button", XPath: "/a"},
		8: &session.Node{Tag: "button", XPath: "/a"},
	}
	hash := session.StableHash(sm[2])

	idx, ok := matchByStableHash(sm, hash)
	if !ok {
		t.Fatal("matchByStableHash: want a match")
	}
	if idx != 2 {
		t.Errorf("matchByStableHash tie-break = %d, want the smallest index 2", idx)
	}
}

func TestMatchByStableHash_EmptyHashNeverMatches(t *testing.T) {
	sm := session.SelectorMap{1: &session.Node{Tag: "div"}}
	if _, ok := matchByStableHash(sm, ""); ok {
		t.Error("matchByStableHash(\"\") should not match")
	}
}
