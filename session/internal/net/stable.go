// Package net implements the stable-network wait and pending-request
// tracking spec.md §4.3 requires BrowserSession to perform around
// navigation and capture. Grounded on a resource-type filtering idiom
// (block-set by resource type) generalized into a tracked-request-by-type
// tracker; there is no prior wait-for-idle concept to extend, since a
// continuous watcher streams mutations rather than waiting for network
// quiescence.
package net

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// trackedTypes is the resource-type set the stable-network wait monitors,
// per spec.md §4.3. CDP's Network.ResourceType has no distinct "iframe"
// value — an iframe's sub-document load reports as Document, which this set
// already tracks.
var trackedTypes = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeDocument:   true,
	proto.NetworkResourceTypeStylesheet: true,
	proto.NetworkResourceTypeImage:      true,
	proto.NetworkResourceTypeFont:       true,
	proto.NetworkResourceTypeScript:     true,
}

// ignoredTypes (video/audio/streaming) are excluded even though they could
// otherwise match trackedTypes via a generic "media" classification.
var ignoredTypes = map[proto.NetworkResourceType]bool{
	proto.NetworkResourceTypeMedia: true,
}

// trackingBlocklist is the analytics/tracking URL-substring blocklist used
// both by the stable-network wait and the pending-request report.
var trackingBlocklist = []string{
	"google-analytics.com", "googletagmanager.com", "doubleclick.net",
	"facebook.com/tr", "segment.io", "mixpanel.com", "hotjar.com",
	"sentry.io", "bugsnag.com",
}

func isTracking(url string) bool {
	lower := strings.ToLower(url)
	for _, s := range trackingBlocklist {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

const maxResponseBytes = 5 << 20 // 5MB

// PendingRequest describes one in-flight request as surfaced to
// BrowserStateSummary.pending_network_requests (spec.md §4.3).
type PendingRequest struct {
	URL              string
	Method           string
	LoadingDurationMs int64
	ResourceType     string
	start            time.Time
}

// Tracker watches one page's network activity across its lifetime and
// answers "is the network stable" / "what's pending" queries. One Tracker
// per Tab, attached once when the tab opens.
type Tracker struct {
	mu      sync.Mutex
	pending map[proto.NetworkRequestID]*PendingRequest
	lastActivity time.Time
}

// Attach starts listening to Network events on page. Idempotent per page
// via rod's event subscription lifetime (bound to the page context).
func Attach(page *rod.Page) *Tracker {
	t := &Tracker{pending: make(map[proto.NetworkRequestID]*PendingRequest), lastActivity: time.Now()}

	go page.EachEvent(func(e *proto.NetworkRequestWillBeSent) {
		if e.Request.URL == "" || strings.HasPrefix(e.Request.URL, "data:") || strings.HasPrefix(e.Request.URL, "blob:") {
			return
		}
		if isTracking(e.Request.URL) {
			return
		}
		if ignoredTypes[e.Type] || !trackedTypes[e.Type] {
			return
		}
		t.mu.Lock()
		t.pending[e.RequestID] = &PendingRequest{
			URL: e.Request.URL, Method: e.Request.Method,
			ResourceType: string(e.Type), start: time.Now(),
		}
		t.lastActivity = time.Now()
		t.mu.Unlock()
	}, func(e *proto.NetworkResponseReceived) {
		t.mu.Lock()
		if e.Response.EncodedDataLength > maxResponseBytes {
			delete(t.pending, e.RequestID)
		}
		t.mu.Unlock()
	}, func(e *proto.NetworkLoadingFinished) {
		t.mu.Lock()
		delete(t.pending, e.RequestID)
		t.lastActivity = time.Now()
		t.mu.Unlock()
	}, func(e *proto.NetworkLoadingFailed) {
		t.mu.Lock()
		delete(t.pending, e.RequestID)
		t.lastActivity = time.Now()
		t.mu.Unlock()
	})()

	return t
}

// WaitConfig configures WaitStable (spec.md §4.3 defaults).
type WaitConfig struct {
	WaitForNetworkIdle time.Duration // default 500ms
	MaxWait            time.Duration // default 5s
}

func (c *WaitConfig) defaults() {
	if c.WaitForNetworkIdle <= 0 {
		c.WaitForNetworkIdle = 500 * time.Millisecond
	}
	if c.MaxWait <= 0 {
		c.MaxWait = 5 * time.Second
	}
}

// WaitStable blocks until pending()==0 for WaitForNetworkIdle, or MaxWait
// elapses. Returns a non-empty loadingStatus string on timeout reporting
// the residual pending count, per spec.md §4.3.
func (t *Tracker) WaitStable(ctx context.Context, cfg WaitConfig) (loadingStatus string) {
	cfg.defaults()
	deadline := time.Now().Add(cfg.MaxWait)
	ticker := time.NewTicker(25 * time.Millisecond)
	defer ticker.Stop()

	for {
		if ctx.Err() != nil {
			return "aborted"
		}
		n := t.PendingCount()
		if n == 0 && time.Since(t.lastIdleSince()) >= cfg.WaitForNetworkIdle {
			return ""
		}
		if time.Now().After(deadline) {
			return "network not idle: " + strconv.Itoa(n) + " pending requests"
		}
		select {
		case <-ctx.Done():
			return "aborted"
		case <-ticker.C:
		}
	}
}

func (t *Tracker) lastIdleSince() time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastActivity
}

// PendingCount returns the number of currently tracked in-flight requests.
func (t *Tracker) PendingCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// PendingRequests returns up to 20 pending requests for
// BrowserStateSummary.pending_network_requests, excluding entries over 10s
// old and images/fonts over 3s old (spec.md §4.3).
func (t *Tracker) PendingRequests() []PendingRequest {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]PendingRequest, 0, len(t.pending))
	now := time.Now()
	for _, r := range t.pending {
		age := now.Sub(r.start)
		if age > 10*time.Second {
			continue
		}
		if (r.ResourceType == "Image" || r.ResourceType == "Font") && age > 3*time.Second {
			continue
		}
		rc := *r
		rc.LoadingDurationMs = age.Milliseconds()
		out = append(out, rc)
		if len(out) >= 20 {
			break
		}
	}
	return out
}
