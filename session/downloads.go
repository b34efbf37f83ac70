package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod/lib/proto"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/hahsanayub/browseragent/session/internal/browser"
)

// downloadTracker de-duplicates downloads by full path and assigns
// unique-name collision suffixes (spec.md §4.3 "Downloads").
type downloadTracker struct {
	dir string
	mu  sync.Mutex
	seen map[string]bool // full path -> tracked
	pdfBasenames map[string]bool // basenames already auto-downloaded as PDFs
}

func newDownloadTracker(dir string) *downloadTracker {
	return &downloadTracker{dir: dir, seen: make(map[string]bool), pdfBasenames: make(map[string]bool)}
}

// uniquePath appends " (1)", " (2)", … before the extension until the path
// doesn't collide with an already-tracked download.
func (d *downloadTracker) uniquePath(suggested string) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	base := filepath.Join(d.dir, suggested)
	if !d.seen[base] {
		if _, err := os.Stat(base); os.IsNotExist(err) {
			d.seen[base] = true
			return base
		}
	}
	ext := filepath.Ext(suggested)
	stem := strings.TrimSuffix(suggested, ext)
	for i := 1; ; i++ {
		candidate := filepath.Join(d.dir, fmt.Sprintf("%s (%d)%s", stem, i, ext))
		if d.seen[candidate] {
			continue
		}
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			d.seen[candidate] = true
			return candidate
		}
	}
}

// raceDownload races a 5s `download` event against the caller's own
// completion signal, per spec.md §4.3 "clicks race a 5s download event".
// Returns the unique destination path reserved under dir for the
// download's suggested filename, or "" if no download started in time. It
// does not write the downloaded bytes to that path.
func raceDownload(ctx context.Context, t *browser.Tab, dir string, tracker *downloadTracker, logger *slog.Logger) string {
	if dir == "" {
		return ""
	}
	type result struct {
		path string
		data []byte
	}
	ch := make(chan result, 1)

	go func() {
		wait := t.Page.Context(ctx).EachEvent(func(e *proto.PageDownloadWillBegin) bool {
			ch <- result{path: e.SuggestedFilename}
			return true
		})
		wait()
	}()

	select {
	case r := <-ch:
		dest := tracker.uniquePath(r.path)
		logger.Info("session: download started", "path", dest)
		return dest
	case <-time.After(5 * time.Second):
		return ""
	case <-ctx.Done():
		return ""
	}
}

// autoDownloadPDF performs the in-page fetch-and-save path of spec.md §4.3
// "PDF auto-download": fetch(url, {cache:'force-cache'}), save bytes under
// downloads_path with a unique filename, skip if the basename was already
// downloaded (a basename whose fetch or save failed is not counted). After
// the write, pdfcpu reads the saved file's page count (SPEC_FULL.md §2's
// wiring for github.com/pdfcpu/pdfcpu); a failed read is logged as a
// warning and the file is kept.
func autoDownloadPDF(ctx context.Context, t *browser.Tab, pageURL, dir string, tracker *downloadTracker, logger *slog.Logger) error {
	if dir == "" {
		return nil
	}
	basename := filepath.Base(pageURL)
	if basename == "" || basename == "/" {
		basename = "document.pdf"
	}
	tracker.mu.Lock()
	already := tracker.pdfBasenames[basename]
	if !already {
		tracker.pdfBasenames[basename] = true
	}
	tracker.mu.Unlock()
	if already {
		return nil
	}
	saved := false
	defer func() {
		if !saved {
			tracker.mu.Lock()
			delete(tracker.pdfBasenames, basename)
			tracker.mu.Unlock()
		}
	}()

	res, err := t.Page.Context(ctx).Eval(fmt.Sprintf(`async () => {
		const r = await fetch(%q, { cache: 'force-cache' });
		const buf = await r.arrayBuffer();
		const bytes = new Uint8Array(buf);
		let binary = '';
		for (let i = 0; i < bytes.byteLength; i++) binary += String.fromCharCode(bytes[i]);
		return btoa(binary);
	}`, pageURL))
	if err != nil {
		return fmt.Errorf("session: pdf fetch: %w", err)
	}

	data, err := base64.StdEncoding.DecodeString(res.Value.Str())
	if err != nil {
		return fmt.Errorf("session: pdf decode: %w", err)
	}
	dest := tracker.uniquePath(basename)
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return fmt.Errorf("session: pdf save: %w", err)
	}
	saved = true

	if _, err := api.PageCountFile(dest); err != nil {
		logger.Warn("session: downloaded pdf failed validation", "path", dest, "error", err)
	}
	return nil
}
