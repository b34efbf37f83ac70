package actions

import (
	"context"
	"fmt"
	"time"

	"github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/microcosm-cc/bluemonday"

	"github.com/hahsanayub/browseragent/session"
)

// Extractor answers extract_structured_data's query against rendered page
// markdown, normally backed by agent's LLM client. When nil, the action
// falls back to returning the sanitized markdown verbatim (capped).
type Extractor func(ctx context.Context, query, markdown string, links bool) (string, error)

// SelectorMapFunc returns the SelectorMap produced by the most recent
// BrowserSession.Capture call, so click/type can resolve an index to a node
// without the registry tracking capture state itself.
type SelectorMapFunc func() session.SelectorMap

// NewDefaultRegistry wires every spec.md §9 action kind to its
// session.BrowserSession primitive, per SPEC_FULL.md §3.3's action→thunk
// table.
func NewDefaultRegistry(sess *session.BrowserSession, selMap SelectorMapFunc, extract Extractor) *Registry {
	r := NewRegistry()
	sanitizer := bluemonday.StrictPolicy()

	resolve := func(idx int) (*session.Node, error) {
		sm := selMap()
		n, ok := sm[idx]
		if !ok {
			return nil, fmt.Errorf("actions: no element at index %d", idx)
		}
		return n, nil
	}

	r.Register(Spec{
		Kind: KindGoToURL, Required: []string{"url"},
		Description: "navigate the active tab to a URL",
		Handler: func(ctx context.Context, a Action) (string, error) {
			url := a.String("url")
			if a.Bool("new_tab") {
				id, err := sess.CreateNewTab(ctx, url)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Opened new tab %s at %s", id, url), nil
			}
			if err := sess.NavigateTo(ctx, url); err != nil {
				return "", err
			}
			return "Navigated to " + url, nil
		},
	})

	r.Register(Spec{
		Kind: KindClickElement, Required: []string{"index"},
		Description: "click the element at a selector-map index",
		Handler: func(ctx context.Context, a Action) (string, error) {
			n, err := resolve(a.Int("index"))
			if err != nil {
				return "", err
			}
			path, err := sess.Click(ctx, n)
			if err != nil {
				return "", err
			}
			if path != "" {
				return fmt.Sprintf("Clicked element %d, downloaded %s", a.Int("index"), path), nil
			}
			return fmt.Sprintf("Clicked element %d", a.Int("index")), nil
		},
	})

	r.Register(Spec{
		Kind: KindTypeText, Required: []string{"index", "text"},
		Description: "type text into the element at a selector-map index",
		Handler: func(ctx context.Context, a Action) (string, error) {
			n, err := resolve(a.Int("index"))
			if err != nil {
				return "", err
			}
			text := a.String("text")
			if err := sess.Type(ctx, n, text); err != nil {
				return "", err
			}
			return fmt.Sprintf("Typed %q into element %d", text, a.Int("index")), nil
		},
	})

	r.Register(Spec{
		Kind: KindScroll, Required: []string{"pixels"},
		Description: "scroll the page by a pixel delta",
		Handler: func(ctx context.Context, a Action) (string, error) {
			pixels := a.Int("pixels")
			if _, hasDown := a.Params["down"]; hasDown && !a.Bool("down") {
				pixels = -pixels
			}
			if err := sess.Scroll(ctx, pixels); err != nil {
				return "", err
			}
			return fmt.Sprintf("Scrolled by %d pixels", pixels), nil
		},
	})

	r.Register(Spec{
		Kind: KindWait, Required: nil,
		Description: "pause for a number of seconds",
		Handler: func(ctx context.Context, a Action) (string, error) {
			secs := a.Int("seconds")
			if secs <= 0 {
				secs = 1
			}
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(time.Duration(secs) * time.Second):
			}
			return fmt.Sprintf("Waited %d seconds", secs), nil
		},
	})

	r.Register(Spec{
		Kind: KindExtract, Required: []string{"query"},
		Description: "extract structured information from the current page using the given query",
		Handler: func(ctx context.Context, a Action) (string, error) {
			summary, err := sess.Capture(ctx, session.CaptureOptions{})
			if err != nil {
				return "", err
			}
			if summary.IsPDFViewer {
				return "", fmt.Errorf("actions: extract_structured_data is disallowed on PDF viewer pages")
			}
			conv := converter.NewConverter(converter.WithPlugins(base.NewBasePlugin(), commonmark.NewCommonmarkPlugin()))
			md, err := conv.ConvertString(summary.DOMString)
			if err != nil {
				md = summary.DOMString
			}
			clean := sanitizer.Sanitize(md)

			query := a.String("query")
			links := a.Bool("links")
			if extract != nil {
				return extract(ctx, query, clean, links)
			}
			if len(clean) > 4000 {
				clean = clean[:4000] + "...(truncated)"
			}
			return clean, nil
		},
	})

	r.Register(Spec{
		Kind: KindDone, Required: []string{"text", "success"},
		Description: "signal task completion",
		Handler: func(ctx context.Context, a Action) (string, error) {
			return a.String("text"), nil
		},
	})

	r.Register(Spec{
		Kind: KindCreateNewTab, Required: []string{"url"},
		Description: "open a new tab",
		Handler: func(ctx context.Context, a Action) (string, error) {
			id, err := sess.CreateNewTab(ctx, a.String("url"))
			if err != nil {
				return "", err
			}
			return "Opened new tab " + id, nil
		},
	})

	r.Register(Spec{
		Kind: KindSwitchTab, Required: []string{"page_id"},
		Description: "switch the active tab",
		Handler: func(ctx context.Context, a Action) (string, error) {
			id := a.String("page_id")
			if err := sess.SwitchToTab(id); err != nil {
				return "", err
			}
			return "Switched to tab " + id, nil
		},
	})

	r.Register(Spec{
		Kind: KindCloseTab, Required: []string{"page_id"},
		Description: "close a tab",
		Handler: func(ctx context.Context, a Action) (string, error) {
			id := a.String("page_id")
			if err := sess.CloseTab(id); err != nil {
				return "", err
			}
			return "Closed tab " + id, nil
		},
	})

	r.Register(Spec{
		Kind: KindGoBack, Description: "navigate back in history",
		Handler: func(ctx context.Context, a Action) (string, error) {
			_ = sess.GoBack(ctx)
			return "Navigated back", nil
		},
	})

	r.Register(Spec{
		Kind: KindGoForward, Description: "navigate forward in history",
		Handler: func(ctx context.Context, a Action) (string, error) {
			_ = sess.GoForward(ctx)
			return "Navigated forward", nil
		},
	})

	r.Register(Spec{
		Kind: KindRefresh, Description: "reload the active tab",
		Handler: func(ctx context.Context, a Action) (string, error) {
			_ = sess.Refresh(ctx)
			return "Refreshed page", nil
		},
	})

	r.Register(Spec{
		Kind: KindScreenshot, Description: "capture a screenshot of the active tab",
		Handler: func(ctx context.Context, a Action) (string, error) {
			if _, err := sess.Screenshot(ctx, a.Bool("full")); err != nil {
				return "", err
			}
			return "Captured screenshot", nil
		},
	})

	return r
}
