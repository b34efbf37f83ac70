package session

import (
	"context"

	"github.com/hahsanayub/browseragent/session/internal/dom"
	"github.com/hahsanayub/browseragent/session/internal/net"
)

// CaptureOptions configures one capture() call (spec.md §4.7 step 1's
// "{ cache_hashes: true, include_screenshot: true, abort }").
type CaptureOptions struct {
	CacheHashes      bool
	IncludeScreenshot bool
	IncludeEvents    bool
}

// Capture implements spec.md §4.3 "capture(opts)": runs DomObserver then
// DomSerializer and assembles an immutable BrowserStateSummary. It is the
// only place DomObserver/DomSerializer are invoked — the DOM story's one
// entry point from BrowserSession, per spec.md §2's dataflow
// "BrowserSession.capture() → DomObserver → DomSerializer".
func (s *BrowserSession) Capture(ctx context.Context, opts CaptureOptions) (*BrowserStateSummary, error) {
	if ctx.Err() != nil {
		return nil, ErrAbort
	}

	ot, err := s.activeOpenTab()
	if err != nil {
		return nil, err
	}

	pageURL := ot.tab.URL()

	var summary BrowserStateSummary
	summary.URL = pageURL
	summary.Title = ot.tab.Title()
	summary.Tabs = s.snapshotTabs()

	if pageURL == "" || pageURL == "about:blank" {
		summary.Title = "New Tab"
		summary.SelectorMap = dom.SelectorMap{}
		if opts.IncludeEvents {
			summary.RecentEvents = s.events.snapshot()
			summary.ClosedPopupMessages = s.closedPopups.snapshot()
		}
		s.setLastSelectorMap(summary.SelectorMap)
		return &summary, nil
	}

	tree, vm, degraded, err := dom.Capture(ot.tab.Page, dom.ObserveConfig{
		HighlightElements: s.cfg.HighlightElements,
		ViewportExpansion: s.cfg.ViewportExpansion,
		Logger:            s.logger(),
	})
	if err != nil {
		return nil, ErrBrowser("capture", err)
	}
	if degraded {
		summary.BrowserErrors = append(summary.BrowserErrors, "dom capture degraded to minimal tree")
	}

	summary.IsPDFViewer = dom.IsPDFViewer(pageURL, tree)

	var prevHashes map[string]bool
	if opts.CacheHashes {
		s.mu.Lock()
		prevHashes = s.hashCache[pageURL]
		s.mu.Unlock()
	}

	serializer := dom.NewSerializer()
	serializer.MaxTotalLength = s.cfg.MaxTotalLength
	result := serializer.Serialize(tree, prevHashes)

	if opts.CacheHashes {
		s.mu.Lock()
		s.hashCache[pageURL] = dom.HashSet(tree)
		s.mu.Unlock()
	}

	summary.SelectorMap = result.SelectorMap
	summary.DOMString = result.DOMString
	summary.Fingerprint = dom.Fingerprint(tree)

	summary.PageInfo = PageInfo{
		ViewportWidth: vm.ViewportW, ViewportHeight: vm.ViewportH,
		PageWidth: vm.PageW, PageHeight: vm.PageH,
		ScrollX: vm.ScrollX, ScrollY: vm.ScrollY,
	}
	if vm.PageH > 0 {
		summary.PageInfo.ScrollPercent = 100 * vm.ScrollY / vm.PageH
		summary.PixelsAbove = int(vm.ScrollY)
		below := vm.PageH - vm.ScrollY - vm.ViewportH
		if below > 0 {
			summary.PixelsBelow = int(below)
		}
	}

	if opts.IncludeScreenshot {
		if shot, err := s.Screenshot(ctx, false); err == nil {
			summary.Screenshot = shot
		} else {
			summary.BrowserErrors = append(summary.BrowserErrors, err.Error())
		}
	}

	summary.LoadingStatus = ot.tracker.WaitStable(ctx, s.waitConfig())
	summary.PendingNetworkRequests = toPendingRequests(ot.tracker.PendingRequests())

	if opts.IncludeEvents {
		summary.RecentEvents = s.events.snapshot()
		summary.ClosedPopupMessages = s.closedPopups.snapshot()
	}

	if summary.IsPDFViewer && s.cfg.AutoDownloadPDFs {
		if err := autoDownloadPDF(ctx, ot.tab, pageURL, s.cfg.DownloadsPath, s.downloads, s.logger()); err != nil {
			s.logger().Warn("session: pdf auto-download failed", "error", err)
		}
	}

	s.setLastSelectorMap(summary.SelectorMap)
	return &summary, nil
}

func (s *BrowserSession) setLastSelectorMap(sm SelectorMap) {
	s.mu.Lock()
	s.lastSelectorMap = sm
	s.mu.Unlock()
}

// LastSelectorMap returns the SelectorMap produced by the most recent
// Capture call, for callers (actions.Registry handlers) that resolve an
// index without holding the BrowserStateSummary themselves.
func (s *BrowserSession) LastSelectorMap() SelectorMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSelectorMap
}

func (s *BrowserSession) waitConfig() net.WaitConfig {
	return net.WaitConfig{WaitForNetworkIdle: s.cfg.WaitForNetworkIdle, MaxWait: s.cfg.MaxWaitPageLoad}
}

func (s *BrowserSession) snapshotTabs() []Tab {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Tab, 0, len(s.tabs))
	for id, ot := range s.tabs {
		out = append(out, Tab{PageID: id, URL: ot.tab.URL(), Title: ot.tab.Title(), ParentPageID: ot.parent})
	}
	return out
}

func toPendingRequests(prs []net.PendingRequest) []PendingNetworkRequest {
	out := make([]PendingNetworkRequest, 0, len(prs))
	for _, p := range prs {
		out = append(out, PendingNetworkRequest{
			URL: p.URL, Method: p.Method, LoadingDurationMs: p.LoadingDurationMs, ResourceType: p.ResourceType,
		})
	}
	return out
}
