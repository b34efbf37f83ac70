package session

import (
	"context"

	"github.com/hahsanayub/browseragent/session/internal/dom"
)

// elementCenter returns the CSS-pixel center of a node's bounds, used by
// Click/Type to aim the synthesized mouse event.
func elementCenter(n *dom.Node) (float64, float64) {
	return n.Bounds.X + n.Bounds.W/2, n.Bounds.Y + n.Bounds.H/2
}

// Click implements spec.md §4.3 "click(element_node)": if downloads_dir is
// set, races a 5s download detection and returns the unique destination
// path raceDownload reserves (the downloaded bytes are not written here);
// otherwise waits for DOM-content-loaded.
func (s *BrowserSession) Click(ctx context.Context, n *dom.Node) (downloadedPath string, err error) {
	ot, err := s.activeOpenTab()
	if err != nil {
		return "", err
	}
	x, y := elementCenter(n)

	if s.cfg.DownloadsPath != "" {
		downloadCh := make(chan string, 1)
		go func() { downloadCh <- raceDownload(ctx, ot.tab, s.cfg.DownloadsPath, s.downloads, s.logger()) }()
		if err := ot.tab.Click(ctx, x, y); err != nil {
			return "", ErrBrowser("click", err)
		}
		downloadedPath = <-downloadCh
		return downloadedPath, nil
	}

	if err := ot.tab.Click(ctx, x, y); err != nil {
		return "", ErrBrowser("click", err)
	}
	_ = ot.tab.Page.Context(ctx).WaitLoad()
	return "", nil
}

// Type implements "type(element_node, text)": clicks then fills, both
// under a 5s timeout (enforced inside Tab.Type).
func (s *BrowserSession) Type(ctx context.Context, n *dom.Node, text string) error {
	ot, err := s.activeOpenTab()
	if err != nil {
		return err
	}
	x, y := elementCenter(n)
	if err := ot.tab.Type(ctx, x, y, text); err != nil {
		return ErrBrowser("type", err)
	}
	return nil
}

// Scroll implements "scroll(pixels)".
func (s *BrowserSession) Scroll(ctx context.Context, pixels int) error {
	ot, err := s.activeOpenTab()
	if err != nil {
		return err
	}
	if err := ot.tab.ScrollBy(ctx, pixels); err != nil {
		return ErrBrowser("scroll", err)
	}
	return nil
}

// blankPlaceholderPNG is a complete 1x1 transparent PNG returned as the
// placeholder screenshot for blank/new-tab URLs per spec.md §4.3
// "screenshot(full?)".
var blankPlaceholderPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, // PNG signature
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52, // IHDR chunk
	0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01, // 1x1 pixel
	0x08, 0x04, 0x00, 0x00, 0x00, 0xb5, 0x1c, 0x0c, 0x02,
	0x00, 0x00, 0x00, 0x0b, 0x49, 0x44, 0x41, 0x54, // IDAT chunk
	0x78, 0xda, 0x63, 0x64, 0xf8, 0x0f, 0x00, 0x01, 0x05, 0x01, 0x01, 0x27, 0x18, 0xe3, 0x66,
	0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82, // IEND chunk
}

// Screenshot implements "screenshot(full?)".
func (s *BrowserSession) Screenshot(ctx context.Context, full bool) ([]byte, error) {
	ot, err := s.activeOpenTab()
	if err != nil {
		return nil, err
	}
	u := ot.tab.URL()
	if u == "" || u == "about:blank" || u == "about:newtab" {
		return blankPlaceholderPNG, nil
	}
	b, err := ot.tab.Screenshot(ctx, full)
	if err != nil {
		return nil, ErrBrowser("screenshot", err)
	}
	return b, nil
}
