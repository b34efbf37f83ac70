// Package session implements BrowserSession (spec.md §4.3): the sole
// mutator of browser state — lifecycle, tab registry, navigation, action
// primitives, popup/dialog capture, downloads, recovery, and domain
// policy. Follows a Watcher-style orchestration shape (internal Manager +
// per-page state, Start/Stop, single mutex), adapted from a continuous
// DOM-watching daemon into an on-demand session an AgentLoop drives one
// step at a time.
package session

import (
	"time"

	"github.com/hahsanayub/browseragent/session/internal/dom"
)

// Tab is spec.md §3's public Tab view (not to be confused with the
// internal/browser.Tab that wraps the live Rod page).
type Tab struct {
	PageID       string
	URL          string
	Title        string
	ParentPageID string // non-empty for browser-initiated popups
}

// PageInfo reports viewport/page/scroll metrics (spec.md §3
// BrowserStateSummary "page_info").
type PageInfo struct {
	ViewportWidth, ViewportHeight float64
	PageWidth, PageHeight         float64
	ScrollX, ScrollY              float64
	ScrollPercent                 float64
}

// PendingNetworkRequest mirrors internal/net.PendingRequest for the public
// BrowserStateSummary.
type PendingNetworkRequest struct {
	URL               string
	Method            string
	LoadingDurationMs int64
	ResourceType      string
}

// RecentEvent is spec.md §3's bounded diagnostic ring entry.
type RecentEvent struct {
	EventType    string
	Timestamp    time.Time
	URL          string
	ErrorMessage string
	PageID       string
}

// ClosedPopupMessage is spec.md §3's "[<dialog_kind>] <text>" ring entry.
type ClosedPopupMessage string

// BrowserStateSummary is the immutable per-capture snapshot of spec.md §3.
type BrowserStateSummary struct {
	URL   string
	Title string
	Tabs  []Tab

	SelectorMap dom.SelectorMap
	DOMString   string
	Screenshot  []byte // raw PNG bytes; base64-encode at the wire boundary

	PageInfo PageInfo

	PixelsAbove, PixelsBelow, PixelsLeft, PixelsRight int

	IsPDFViewer bool

	LoadingStatus string // non-empty when stable-network wait timed out

	BrowserErrors []string

	PendingNetworkRequests []PendingNetworkRequest
	ClosedPopupMessages    []ClosedPopupMessage
	RecentEvents           []RecentEvent

	// Fingerprint is a supplemented diagnostic field (SPEC_FULL.md §3.1),
	// not named by spec.md §3: a structural hash of the tree (tags +
	// nesting, ignoring text/attrs) so a caller can tell whether the page
	// layout changed between steps without diffing DOMString.
	Fingerprint string
}
