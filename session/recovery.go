package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"

	"github.com/hahsanayub/browseragent/session/internal/browser"
	"github.com/hahsanayub/browseragent/session/internal/net"
)

// recoveryState serializes recovery attempts with a single reentrance
// guard, per spec.md §4.3 "Recovery is skipped for in-flight attempts (a
// single _inRecovery flag prevents re-entrance)".
type recoveryState struct {
	mu        sync.Mutex
	inFlight  bool
}

// EnsureResponsive probes the active tab with a trivial evaluate('1') and,
// on timeout, runs the three-step recovery of spec.md §4.3:
//  1. force-close the stuck target via a fresh temporary page's CDP session
//  2. open a new page, try to navigate back to the original URL
//  3. fall back to a blank page; if even that fails, raise a fatal BrowserError
func (s *BrowserSession) EnsureResponsive(ctx context.Context) error {
	ot, err := s.activeOpenTab()
	if err != nil {
		return err
	}

	probeErr := ot.tab.Probe(ctx, 5*time.Second)
	if probeErr == nil {
		return nil
	}

	if s.recovery == nil {
		s.recovery = &recoveryState{}
	}
	s.recovery.mu.Lock()
	if s.recovery.inFlight {
		s.recovery.mu.Unlock()
		return ErrPageUnresponsive(ot.tab.PageID)
	}
	s.recovery.inFlight = true
	s.recovery.mu.Unlock()
	defer func() {
		s.recovery.mu.Lock()
		s.recovery.inFlight = false
		s.recovery.mu.Unlock()
	}()

	s.logger().Warn("session: page unresponsive, starting recovery", "page_id", ot.tab.PageID)
	s.recordEvent("page_unresponsive", ot.tab.URL(), "", ot.tab.PageID)

	originalURL := ot.tab.URL()

	// Step 1: force-close the stuck target.
	if err := closeStuckTarget(ctx, s.mgr, originalURL); err != nil {
		s.logger().Warn("session: force-close stuck target failed", "error", err)
	}

	// Step 2: open a new page, try to navigate back with a tight timeout.
	newTab, err := browser.Open(ctx, s.mgr, originalURL, ot.tab.PageID, s.cfg.Browser.Stealth)
	if err == nil {
		if probeErr := newTab.Probe(ctx, 3*time.Second); probeErr == nil {
			s.replaceActiveTab(newTab)
			s.recordEvent("page_recovered", originalURL, "", ot.tab.PageID)
			return nil
		}
		newTab.Close()
	}

	// Step 3: fall back to a blank page.
	blankTab, err := browser.Open(ctx, s.mgr, "about:blank", ot.tab.PageID, s.cfg.Browser.Stealth)
	if err != nil {
		return ErrBrowser("recovery", fmt.Errorf("blank-page fallback failed: %w", err))
	}
	s.replaceActiveTab(blankTab)
	s.recordEvent("browser_error", originalURL, "recovery fell back to blank page", ot.tab.PageID)
	return nil
}

func (s *BrowserSession) replaceActiveTab(t *browser.Tab) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attachDialogHandler(t)
	s.tabs[t.PageID] = &openTab{tab: t, tracker: net.Attach(t.Page)}
	s.activeTab = t.PageID
}

// closeStuckTarget opens a fresh temporary page to host the CDP session
// that locates and closes the unresponsive target by URL, per spec.md
// §4.3 step 1 ("a CDP session opened from a fresh temporary page").
func closeStuckTarget(ctx context.Context, mgr *browser.Manager, targetURL string) error {
	b := mgr.Browser()
	if b == nil {
		return fmt.Errorf("session: no active browser for recovery")
	}
	helper, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return err
	}
	defer helper.Close()

	targets, err := proto.TargetGetTargets{}.Call(helper)
	if err != nil {
		return err
	}
	for _, ti := range targets.TargetInfos {
		if ti.URL == targetURL {
			return proto.TargetCloseTarget{TargetID: ti.TargetID}.Call(helper)
		}
	}
	return nil
}
