package session

import (
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hahsanayub/browseragent/session/internal/browser"
)

// dialogAttached tracks which pages already have a handler installed so
// attachment stays idempotent even if called twice for the same tab
// (spec.md §4.3 "Attachment is idempotent (tracked in a weak set so closed
// pages are GC'd)"). Go has no weak sets; a plain map keyed by the tab's
// page_id is GC-safe enough here since the session itself owns the
// tab's lifetime and removes tabs from this set on close_tab.
type dialogRegistry struct {
	mu      sync.Mutex
	pageIDs map[string]bool
}

func newDialogRegistry() *dialogRegistry {
	return &dialogRegistry{pageIDs: make(map[string]bool)}
}

// attachDialogHandler installs the JavaScript-dialog auto-responder on a
// newly opened tab (spec.md §4.3 "Dialog handling").
func (s *BrowserSession) attachDialogHandler(t *browser.Tab) {
	if s.dialogs == nil {
		s.dialogs = newDialogRegistry()
	}
	s.dialogs.mu.Lock()
	if s.dialogs.pageIDs[t.PageID] {
		s.dialogs.mu.Unlock()
		return
	}
	s.dialogs.pageIDs[t.PageID] = true
	s.dialogs.mu.Unlock()

	go t.Page.EachEvent(func(e *proto.PageJavascriptDialogOpening) {
		msg := "[" + string(e.Type) + "] " + e.Message
		s.closedPopups.add(ClosedPopupMessage(msg))
		s.recordEvent("javascript_dialog_closed", t.URL(), "", t.PageID)

		accept := isAutoAcceptDialog(string(e.Type))

		_ = proto.PageHandleJavaScriptDialog{Accept: accept}.Call(t.Page)
	})()
}

// dialogKindAllowList documents the three auto-accepted dialog kinds for
// readability at call sites that need to reason about them outside CDP
// proto types.
var dialogKindAllowList = []string{"alert", "confirm", "beforeunload"}

func isAutoAcceptDialog(kind string) bool {
	kind = strings.ToLower(kind)
	for _, k := range dialogKindAllowList {
		if k == kind {
			return true
		}
	}
	return false
}
