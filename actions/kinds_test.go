package actions

import "testing"

func TestIsTerminating(t *testing.T) {
	for _, k := range []Kind{KindGoToURL, KindCreateNewTab, KindSwitchTab, KindGoBack, KindGoForward, KindRefresh, KindDone} {
		if !IsTerminating(k) {
			t.Errorf("IsTerminating(%s) = false, want true", k)
		}
	}
	for _, k := range []Kind{KindClickElement, KindTypeText, KindScroll, KindWait, KindExtract} {
		if IsTerminating(k) {
			t.Errorf("IsTerminating(%s) = true, want false", k)
		}
	}
}

func TestActionAccessors(t *testing.T) {
	a := Action{Kind: KindClickElement, Params: map[string]any{
		"index": 3,
		"text":  "hello",
		"down":  true,
	}}

	if got := a.Int("index"); got != 3 {
		t.Errorf("Int(index) = %d, want 3", got)
	}
	if got := a.String("text"); got != "hello" {
		t.Errorf("String(text) = %q, want hello", got)
	}
	if !a.Bool("down") {
		t.Errorf("Bool(down) = false, want true")
	}

	if got := a.Int("missing"); got != 0 {
		t.Errorf("Int(missing) = %d, want 0", got)
	}
	if got := a.String("missing"); got != "" {
		t.Errorf("String(missing) = %q, want empty", got)
	}
	if a.Bool("missing") {
		t.Errorf("Bool(missing) = true, want false")
	}

	// wrong-typed param falls back to zero value rather than panicking.
	wrong := Action{Kind: KindWait, Params: map[string]any{"seconds": "not-a-number"}}
	if got := wrong.Int("seconds"); got != 0 {
		t.Errorf("Int(seconds) on wrong-typed param = %d, want 0", got)
	}
}
