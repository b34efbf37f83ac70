package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// Tab wraps one Rod page together with the page_id BrowserSession assigns
// it (spec.md §3 "Tab"). Previously one Tab was opened per configured page
// and kept open for the process lifetime; here Tabs are opened/closed on
// demand by BrowserSession's create_new_tab/close_tab.
type Tab struct {
	Page    *rod.Page
	PageID  string
	Stealth StealthLevel

	manager *Manager
}

// Open creates a new page, applies stealth + resource blocking, and
// navigates it. Empty pageURL leaves the tab on about:blank (used by
// create_new_tab with no URL and by DomainPolicy-failed navigations that
// still need a tab to exist).
func Open(ctx context.Context, mgr *Manager, pageURL, pageID string, level StealthLevel) (*Tab, error) {
	b := mgr.Browser()
	if b == nil {
		return nil, fmt.Errorf("browser: no active browser")
	}

	var page *rod.Page
	var err error
	if level >= LevelHeadless {
		page, err = stealth.Page(b)
	} else {
		page, err = b.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, fmt.Errorf("browser: create tab: %w", err)
	}

	if len(mgr.cfg.ResourceBlocking) > 0 {
		if err := ApplyResourceBlocking(page, mgr.cfg.ResourceBlocking); err != nil {
			mgr.cfg.Logger.Warn("browser: resource blocking failed", "error", err)
		}
	}

	t := &Tab{Page: page, PageID: pageID, Stealth: level, manager: mgr}

	if pageURL != "" && pageURL != "about:blank" {
		if err := t.Navigate(ctx, pageURL, 30*time.Second); err != nil {
			page.Close()
			return nil, err
		}
	}
	return t, nil
}

// Navigate navigates the tab's page and waits for load, bounded by timeout.
func (t *Tab) Navigate(ctx context.Context, pageURL string, timeout time.Duration) error {
	navCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := t.Page.Context(navCtx).Navigate(pageURL); err != nil {
		return fmt.Errorf("browser: navigate %s: %w", pageURL, err)
	}
	if err := t.Page.Context(navCtx).WaitLoad(); err != nil {
		t.manager.cfg.Logger.Warn("browser: wait load timeout", "url", pageURL, "error", err)
	}
	return nil
}

// URL returns the page's current URL.
func (t *Tab) URL() string {
	info, err := t.Page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// Title returns the page's current title.
func (t *Tab) Title() string {
	info, err := t.Page.Info()
	if err != nil {
		return ""
	}
	return info.Title
}

// Probe evaluates a trivial expression to check JS-engine responsiveness,
// used by recovery.go's page-health check (spec.md §4.3).
func (t *Tab) Probe(ctx context.Context, timeout time.Duration) error {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	_, err := t.Page.Context(pctx).Eval(`() => 1`)
	return err
}

// Click performs a click at the given CSS-pixel point within the page
// (BrowserSession resolves the selector-map node to coordinates before
// calling this).
func (t *Tab) Click(ctx context.Context, x, y float64) error {
	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return t.Page.Context(cctx).Mouse.MoveTo(proto.NewPoint(x, y)).Click(proto.InputMouseButtonLeft, 1)
}

// Type focuses the element at (x,y) and types text, both bounded by a 5s
// timeout per spec.md §4.3 "type(element_node, text)".
func (t *Tab) Type(ctx context.Context, x, y float64, text string) error {
	tctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	page := t.Page.Context(tctx)
	if err := page.Mouse.MoveTo(proto.NewPoint(x, y)).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return err
	}
	return page.InsertText(text)
}

// Screenshot returns the raw PNG bytes. full captures the entire scrollable
// page rather than just the viewport.
func (t *Tab) Screenshot(ctx context.Context, full bool) ([]byte, error) {
	sctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req := &proto.PageCaptureScreenshot{Format: proto.PageCaptureScreenshotFormatPng}
	if full {
		req.CaptureBeyondViewport = true
	}
	return t.Page.Context(sctx).Screenshot(full, req)
}

// ScrollBy synthesizes a CDP scroll gesture for the given signed pixel
// delta, falling back to a JS "nearest scrollable ancestor" walk on error
// (spec.md §4.3 "scroll(pixels)").
func (t *Tab) ScrollBy(ctx context.Context, pixels int) error {
	sctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	err := proto.InputSynthesizeScrollGesture{
		X: 0, Y: 0,
		XDistance: 0, YDistance: float64(-pixels),
	}.Call(t.Page.Context(sctx))
	if err == nil {
		return nil
	}
	t.manager.cfg.Logger.Warn("browser: cdp scroll failed, falling back to JS smart-scroll", "error", err)
	_, jsErr := t.Page.Context(sctx).Eval(fmt.Sprintf(`() => {
		function findScrollable(el) {
			while (el) {
				const s = window.getComputedStyle(el);
				if ((s.overflowY === 'auto' || s.overflowY === 'scroll') && el.scrollHeight > el.clientHeight) return el;
				el = el.parentElement;
			}
			return document.scrollingElement;
		}
		const target = findScrollable(document.activeElement) || document.scrollingElement;
		target.scrollBy(0, %d);
	}`, pixels))
	return jsErr
}

// Close closes the tab's page.
func (t *Tab) Close() error {
	if t.Page != nil {
		return t.Page.Close()
	}
	return nil
}
