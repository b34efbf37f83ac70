package agent

import (
	"strings"
	"testing"

	"github.com/hahsanayub/browseragent/actions"
)

func TestNewHistory_StartsWithSystemMessage(t *testing.T) {
	h := NewHistory()
	if len(h.Items()) != 1 || h.Items()[0].Kind != HistorySystem {
		t.Fatalf("NewHistory() items = %+v, want one HistorySystem item", h.Items())
	}
}

func TestHistory_Update_NilOutputAppendsErrorOnlyAfterStepZero(t *testing.T) {
	h := NewHistory()

	h.Update(0, nil, nil, nil)
	if len(h.Items()) != 1 {
		t.Fatalf("Update(step=0, nil) appended an item, want no-op (len=%d)", len(h.Items()))
	}

	h.Update(1, nil, nil, nil)
	if len(h.Items()) != 2 || h.Items()[1].Kind != HistoryError {
		t.Fatalf("Update(step=1, nil) items = %+v, want a trailing HistoryError item", h.Items())
	}
}

func TestHistory_Update_RecordsActionDescriptorsAndReadState(t *testing.T) {
	h := NewHistory()
	acts := []actions.Action{
		{Kind: actions.KindGoToURL, Params: map[string]any{"url": "https://example.com"}},
		{Kind: actions.KindExtract, Params: map[string]any{"query": "title"}},
	}
	results := []actions.Result{
		{Success: true, Message: "Navigated to https://example.com"},
		{Success: true, ExtractedContent: "Example Domain", IncludeExtractedContentOnce: true},
	}

	h.Update(1, &ModelOutput{NextGoal: "find the title"}, results, acts)

	rendered := h.String()
	if !strings.Contains(rendered, "Navigated to https://example.com") {
		t.Errorf("rendered history missing go_to_url descriptor: %s", rendered)
	}
	if !strings.Contains(rendered, "Next Goal: find the title") {
		t.Errorf("rendered history missing next goal: %s", rendered)
	}
	if !strings.Contains(h.ReadState(), "<read_state_2>Example Domain</read_state_2>") {
		t.Errorf("ReadState() = %q, want a read_state_2 block", h.ReadState())
	}
}

func TestHistory_Update_ResetsReadStateEachCall(t *testing.T) {
	h := NewHistory()
	h.Update(1, &ModelOutput{}, []actions.Result{{Success: true, ExtractedContent: "x", IncludeExtractedContentOnce: true}}, []actions.Action{{Kind: actions.KindExtract}})
	if h.ReadState() == "" {
		t.Fatal("expected non-empty read state after first update")
	}

	h.Update(2, &ModelOutput{}, []actions.Result{{Success: true}}, []actions.Action{{Kind: actions.KindWait}})
	if h.ReadState() != "" {
		t.Errorf("ReadState() after a step with no read-state results = %q, want empty", h.ReadState())
	}
}

func TestTruncateError(t *testing.T) {
	short := "boom"
	if got := truncateError(short); got != short {
		t.Errorf("truncateError(short) = %q, want unchanged", got)
	}

	long := strings.Repeat("a", 300)
	got := truncateError(long)
	if !strings.Contains(got, "......") {
		t.Errorf("truncateError(long) = %q, want a ...... marker", got)
	}
	if len(got) >= len(long) {
		t.Errorf("truncateError(long) did not shorten the message")
	}
}

func TestDescriptor_FailedActionReportsError(t *testing.T) {
	ar := ActionResultView{
		Action: actions.Action{Kind: actions.KindClickElement, Params: map[string]any{"index": 4}},
		Result: actions.Result{Success: false, Error: "element not found"},
	}
	got := descriptor(1, 1, ar)
	if !strings.Contains(got, "Failed: element not found") {
		t.Errorf("descriptor(failed) = %q, want a Failed: prefix", got)
	}
}
