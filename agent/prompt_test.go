package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/hahsanayub/browseragent/actions"
	"github.com/hahsanayub/browseragent/session"
)

func testRegistry() *actions.Registry {
	r := actions.NewRegistry()
	r.Register(actions.Spec{
		Kind:        actions.KindWait,
		Description: "pause for a number of seconds",
		Handler:     func(ctx context.Context, a actions.Action) (string, error) { return "", nil },
	})
	return r
}

func TestPromptAssembler_Build_SectionOrder(t *testing.T) {
	p := NewPromptAssembler(testRegistry())
	h := NewHistory()
	state := &session.BrowserStateSummary{URL: "https://example.com", Title: "Example"}

	out := p.Build(h, state, "find the title", "", "", StepInfo{StepNumber: 1, MaxSteps: 20}, "")

	sections := []string{"<agent_history>", "<agent_state>", "<browser_state>", "<page_actions>"}
	lastIdx := -1
	for _, s := range sections {
		idx := strings.Index(out, s)
		if idx == -1 {
			t.Fatalf("Build() missing section %s, got:\n%s", s, out)
		}
		if idx <= lastIdx {
			t.Fatalf("section %s out of order in:\n%s", s, out)
		}
		lastIdx = idx
	}

	if !strings.Contains(out, "<user_request>find the title</user_request>") {
		t.Errorf("Build() missing user_request, got:\n%s", out)
	}
	if !strings.Contains(out, "<step_info>step 1 of 20</step_info>") {
		t.Errorf("Build() missing step_info, got:\n%s", out)
	}
}

func TestPromptAssembler_Build_OmitsReadStateWhenEmpty(t *testing.T) {
	p := NewPromptAssembler(testRegistry())
	h := NewHistory()
	state := &session.BrowserStateSummary{}

	out := p.Build(h, state, "task", "", "", StepInfo{}, "")
	if strings.Contains(out, "<read_state>") {
		t.Errorf("Build() included <read_state> with no read-state content:\n%s", out)
	}
}

func TestPromptAssembler_Build_IncludesPageSpecificActionsWhenPresent(t *testing.T) {
	p := NewPromptAssembler(testRegistry())
	h := NewHistory()
	state := &session.BrowserStateSummary{}

	out := p.Build(h, state, "task", "", "", StepInfo{}, "custom_action: does a custom thing")
	if !strings.Contains(out, "<page_specific_actions>\ncustom_action: does a custom thing\n</page_specific_actions>") {
		t.Errorf("Build() missing page_specific_actions block, got:\n%s", out)
	}
}

func TestRenderBrowserState_ShowsActiveTabOnlyWhenUnique(t *testing.T) {
	state := &session.BrowserStateSummary{
		URL:   "https://example.com",
		Title: "Example",
		Tabs: []session.Tab{
			{PageID: "1", URL: "https://example.com", Title: "Example"},
			{PageID: "2", URL: "https://other.com", Title: "Other"},
		},
	}
	out := renderBrowserState(state)
	if !strings.Contains(out, "Current tab: 1") {
		t.Errorf("renderBrowserState() missing unique current-tab marker, got:\n%s", out)
	}
}

func TestRenderBrowserState_NoCurrentTabWhenAmbiguous(t *testing.T) {
	state := &session.BrowserStateSummary{
		URL:   "https://example.com",
		Title: "Example",
		Tabs: []session.Tab{
			{PageID: "1", URL: "https://example.com", Title: "Example"},
			{PageID: "2", URL: "https://example.com", Title: "Example"},
		},
	}
	out := renderBrowserState(state)
	if strings.Contains(out, "Current tab:") {
		t.Errorf("renderBrowserState() should omit Current tab when ambiguous, got:\n%s", out)
	}
}

func TestRenderBrowserState_PDFViewerWarning(t *testing.T) {
	state := &session.BrowserStateSummary{IsPDFViewer: true}
	out := renderBrowserState(state)
	if !strings.Contains(out, "[PDF viewer: extract_structured_data is disabled on this page]") {
		t.Errorf("renderBrowserState() missing PDF viewer warning, got:\n%s", out)
	}
}

func TestRenderBrowserState_PixelsAboveBelow(t *testing.T) {
	state := &session.BrowserStateSummary{PixelsAbove: 100, PixelsBelow: 50, DOMString: "<div>x</div>"}
	out := renderBrowserState(state)
	if !strings.Contains(out, "100 pixels above") || !strings.Contains(out, "50 pixels below") {
		t.Errorf("renderBrowserState() missing pixel markers, got:\n%s", out)
	}
}
