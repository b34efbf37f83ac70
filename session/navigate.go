package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/hahsanayub/browseragent/session/internal/browser"
	"github.com/hahsanayub/browseragent/session/internal/net"
)

// NormalizeURL implements spec.md §8's "normalize_url(normalize_url(u)) =
// normalize_url(u)" idempotence property: lowercase scheme/host, strip a
// trailing slash added only by the root path, default to https when no
// scheme is given.
func NormalizeURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	if !strings.Contains(raw, "://") && !strings.HasPrefix(raw, "about:") && !strings.HasPrefix(raw, "data:") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	if u.Path == "/" {
		u.Path = ""
	}
	return u.String()
}

// NavigateTo implements spec.md §4.3 "navigate_to(url)": normalize, check
// domain policy, navigate, wait for DOM-content-loaded then stable network,
// record navigation_started/failed/completed.
func (s *BrowserSession) NavigateTo(ctx context.Context, rawURL string) error {
	normalized := NormalizeURL(rawURL)

	result := s.cfg.Policy.Evaluate(normalized)
	if result.Conflict {
		s.logger().Warn("session: domain policy allow/deny overlap", "url", normalized)
	}
	if !result.Allowed {
		s.recordEvent("navigation_blocked", normalized, string(result.Reason), s.currentActiveID())
		return ErrUrlNotAllowed(normalized, result.Reason)
	}

	s.recordEvent("navigation_started", normalized, "", s.currentActiveID())

	ot, err := s.activeOpenTab()
	if err != nil {
		return err
	}

	maxWait := s.cfg.MaxWaitPageLoad
	navCtx, cancel := context.WithTimeout(ctx, maxWait+10*time.Second)
	defer cancel()

	if err := ot.tab.Navigate(navCtx, normalized, maxWait+10*time.Second); err != nil {
		s.recordEvent("navigation_failed", normalized, err.Error(), ot.tab.PageID)
		return ErrBrowser("navigate_to", err)
	}

	finalURL := ot.tab.URL()
	finalResult := s.cfg.Policy.Evaluate(finalURL)
	if !finalResult.Allowed {
		s.recordEvent("navigation_blocked", finalURL, string(finalResult.Reason), ot.tab.PageID)
		return ErrUrlNotAllowed(finalURL, finalResult.Reason)
	}

	loadingStatus := ot.tracker.WaitStable(navCtx, net.WaitConfig{
		WaitForNetworkIdle: s.cfg.WaitForNetworkIdle,
		MaxWait:            maxWait,
	})
	if loadingStatus != "" {
		s.logger().Warn("session: stable-network wait timed out", "status", loadingStatus)
	}

	s.recordEvent("navigation_completed", finalURL, "", ot.tab.PageID)
	return nil
}

func (s *BrowserSession) currentActiveID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeTab
}

// CreateNewTab implements spec.md §4.3 "create_new_tab(url)": allocates a
// new page_id, becomes the active tab.
func (s *BrowserSession) CreateNewTab(ctx context.Context, rawURL string) (string, error) {
	normalized := ""
	if rawURL != "" {
		normalized = NormalizeURL(rawURL)
		result := s.cfg.Policy.Evaluate(normalized)
		if !result.Allowed {
			s.recordEvent("navigation_blocked", normalized, string(result.Reason), "")
			return "", ErrUrlNotAllowed(normalized, result.Reason)
		}
	}

	s.mu.Lock()
	mgr := s.mgr
	s.nextTabSeq++
	pageID := s.newID()
	s.mu.Unlock()

	t, err := browser.Open(ctx, mgr, normalized, pageID, s.cfg.Browser.Stealth)
	if err != nil {
		return "", ErrBrowser("create_new_tab", err)
	}
	s.attachDialogHandler(t)

	s.mu.Lock()
	s.tabs[pageID] = &openTab{tab: t, tracker: net.Attach(t.Page)}
	s.activeTab = pageID
	s.mu.Unlock()

	s.recordEvent("tab_created", normalized, "", pageID)
	return pageID, nil
}

// SwitchToTab implements "switch_to_tab(id or -1)": -1 selects the most
// recently created tab.
func (s *BrowserSession) SwitchToTab(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id == "-1" {
		// Pick the tab with the lexicographically-last ID among those
		// tracked, which for idgen.Prefixed("tab_", UUIDv7) is also the
		// most recently created (UUIDv7 is time-sortable).
		var last string
		for pid := range s.tabs {
			if pid > last {
				last = pid
			}
		}
		if last == "" {
			return ErrElementNotFound("no tabs open")
		}
		s.activeTab = last
		return nil
	}
	if _, ok := s.tabs[id]; !ok {
		return ErrElementNotFound(fmt.Sprintf("unknown tab %s", id))
	}
	s.activeTab = id
	return nil
}

// CloseTab implements "close_tab(id)": if it was active, promotes the last
// remaining tab.
func (s *BrowserSession) CloseTab(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ot, ok := s.tabs[id]
	if !ok {
		return ErrElementNotFound(fmt.Sprintf("unknown tab %s", id))
	}
	ot.tab.Close()
	delete(s.tabs, id)

	if s.dialogs != nil {
		s.dialogs.mu.Lock()
		delete(s.dialogs.pageIDs, id)
		s.dialogs.mu.Unlock()
	}

	if s.activeTab == id {
		s.activeTab = ""
		var last string
		for pid := range s.tabs {
			if pid > last {
				last = pid
			}
		}
		s.activeTab = last
	}

	s.recordEvent("tab_closed", "", "", id)
	return nil
}

// GoBack/GoForward/Refresh navigate via the history stack, recovering from
// timeouts per spec.md §4.3 (transient errors logged and swallowed).
func (s *BrowserSession) GoBack(ctx context.Context) error {
	ot, err := s.activeOpenTab()
	if err != nil {
		return err
	}
	if err := ot.tab.Page.Context(ctx).NavigateBack(); err != nil {
		s.logger().Warn("session: go_back failed", "error", err)
	}
	return nil
}

func (s *BrowserSession) GoForward(ctx context.Context) error {
	ot, err := s.activeOpenTab()
	if err != nil {
		return err
	}
	if err := ot.tab.Page.Context(ctx).NavigateForward(); err != nil {
		s.logger().Warn("session: go_forward failed", "error", err)
	}
	return nil
}

func (s *BrowserSession) Refresh(ctx context.Context) error {
	ot, err := s.activeOpenTab()
	if err != nil {
		return err
	}
	if err := ot.tab.Page.Context(ctx).Reload(); err != nil {
		s.logger().Warn("session: refresh failed", "error", err)
	}
	return nil
}
