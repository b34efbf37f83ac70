package actions

import (
	"context"
	"testing"
)

func newTrackingRegistry(t *testing.T, executed *[]Kind) *Registry {
	t.Helper()
	r := NewRegistry()
	track := func(k Kind) Handler {
		return func(ctx context.Context, a Action) (string, error) {
			*executed = append(*executed, k)
			return "", nil
		}
	}
	for _, k := range []Kind{KindClickElement, KindTypeText, KindGoToURL, KindWait, KindDone} {
		r.Register(Spec{Kind: k, Handler: track(k)})
	}
	return r
}

func TestMultiAct_StopsOnTerminatingAction(t *testing.T) {
	var executed []Kind
	r := newTrackingRegistry(t, &executed)

	actionsList := []Action{
		{Kind: KindClickElement, Params: map[string]any{}},
		{Kind: KindGoToURL, Params: map[string]any{"url": "https://example.com"}},
		{Kind: KindTypeText, Params: map[string]any{}}, // must not run
	}

	url := "https://start.example"
	results := MultiAct(context.Background(), r, func() string { return url }, actionsList)

	if len(results) != 2 {
		t.Fatalf("len(results) = %d, want 2 (stopped after terminating action)", len(results))
	}
	if len(executed) != 2 || executed[1] != KindGoToURL {
		t.Fatalf("executed = %v, want [click_element_by_index go_to_url]", executed)
	}
}

func TestMultiAct_StopsOnURLChange(t *testing.T) {
	var executed []Kind
	r := newTrackingRegistry(t, &executed)

	url := "https://start.example"
	actionsList := []Action{
		{Kind: KindClickElement, Params: map[string]any{}}, // this click causes navigation
		{Kind: KindTypeText, Params: map[string]any{}},     // must not run: URL changed
	}

	calls := 0
	currentURL := func() string {
		calls++
		if calls > 1 {
			url = "https://changed.example"
		}
		return url
	}

	results := MultiAct(context.Background(), r, currentURL, actionsList)
	if len(results) != 1 {
		t.Fatalf("len(results) = %d, want 1 (stopped after URL change)", len(results))
	}
}

func TestMultiAct_RunsAllNonTerminating(t *testing.T) {
	var executed []Kind
	r := newTrackingRegistry(t, &executed)

	actionsList := []Action{
		{Kind: KindClickElement, Params: map[string]any{}},
		{Kind: KindTypeText, Params: map[string]any{}},
		{Kind: KindWait, Params: map[string]any{}},
	}

	url := "https://static.example"
	results := MultiAct(context.Background(), r, func() string { return url }, actionsList)
	if len(results) != 3 {
		t.Fatalf("len(results) = %d, want 3", len(results))
	}
}
