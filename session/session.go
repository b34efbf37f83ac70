package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"github.com/hahsanayub/browseragent/idgen"
	"github.com/hahsanayub/browseragent/session/internal/browser"
	"github.com/hahsanayub/browseragent/session/internal/net"
)

// State is BrowserSession's lifecycle state (spec.md §4.3).
type State int

const (
	StateUninitialized State = iota
	StateStarted
	StateStopping
)

// ClaimMode is spec.md §4.3's claim model.
type ClaimMode int

const (
	ClaimNone ClaimMode = iota
	ClaimExclusive
	ClaimShared
)

// openTab bundles the internal driver-level tab with its net.Tracker and
// the public metadata BrowserStateSummary reports.
type openTab struct {
	tab     *browser.Tab
	tracker *net.Tracker
	parent  string
}

// BrowserSession is the sole mutator of browser state (spec.md §4.3).
type BrowserSession struct {
	cfg Config

	mu          sync.Mutex
	state       State
	pendingStop bool // set when Stop() is deferred behind an active shared claim
	mgr         *browser.Manager
	tabs        map[string]*openTab
	activeTab   string
	nextTabSeq  int

	hashCache map[string]map[string]bool // url -> previous element-hash set

	lastSelectorMap SelectorMap // most recent Capture's selector map, for action index resolution

	newID idgen.Generator

	claimMu    sync.Mutex
	claimMode  ClaimMode
	claimOwner string
	sharedIDs  map[string]bool

	shutdownOnce *sync.Once
	shutdownErr  error
	shutdownDone chan struct{}

	recovery *recoveryState

	events       *ring[RecentEvent]
	closedPopups *ring[ClosedPopupMessage]
	downloads    *downloadTracker
	dialogs      *dialogRegistry

	cleanupHandlers []func()
}

// New constructs a BrowserSession in the uninitialized state. Call Start.
func New(cfg Config) *BrowserSession {
	cfg.defaults()
	return &BrowserSession{
		cfg:          cfg,
		tabs:         make(map[string]*openTab),
		hashCache:    make(map[string]map[string]bool),
		newID:        idgen.Prefixed("tab_", idgen.Default),
		sharedIDs:    make(map[string]bool),
		events:       newRing[RecentEvent](100),
		closedPopups: newRing[ClosedPopupMessage](20),
		downloads:    newDownloadTracker(cfg.DownloadsPath),
	}
}

func (s *BrowserSession) logger() *slog.Logger { return s.cfg.Logger }

func (s *BrowserSession) recordEvent(eventType, url, errMsg, pageID string) {
	s.events.add(RecentEvent{EventType: eventType, Timestamp: time.Now(), URL: url, ErrorMessage: errMsg, PageID: pageID})
}

// Start brings the browser/context/page online with at least one tab.
// Idempotent.
func (s *BrowserSession) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateStarted {
		return nil
	}

	s.mgr = browser.NewManager(s.cfg.Browser)
	s.mgr.SetRecycleCallback(&browser.RecycleCallback{
		BeforeRecycle: s.beforeRecycle,
		AfterRecycle:  s.afterRecycle,
	})
	if _, err := s.mgr.Start(ctx); err != nil {
		return fmt.Errorf("session: start: %w", err)
	}

	pageID := s.newID()
	t, err := browser.Open(ctx, s.mgr, "about:blank", pageID, s.cfg.Browser.Stealth)
	if err != nil {
		return fmt.Errorf("session: open initial tab: %w", err)
	}
	s.attachDialogHandler(t)
	s.tabs[pageID] = &openTab{tab: t, tracker: net.Attach(t.Page)}
	s.activeTab = pageID

	s.state = StateStarted
	s.recordEvent("session_started", "about:blank", "", pageID)
	return nil
}

// beforeRecycle/afterRecycle let the Manager's auto-recycle (manager.go's
// monitorLoop) happen transparently: flush nothing (session holds no
// buffered mutation stream to drain), and on afterRecycle reopen whatever
// tab was active so the agent loop sees continuity.
func (s *BrowserSession) beforeRecycle() {
	s.logger().Info("session: browser recycling, tabs will be reopened")
}

func (s *BrowserSession) afterRecycle(b *rod.Browser) {
	// Reopening is handled lazily: the next capture() will find the
	// active tab's underlying page gone and trigger recovery.go's
	// page-health path, which already knows how to open a fresh page at
	// the last known URL.
	_ = b
}

// stop is the shared implementation for Stop/Kill.
func (s *BrowserSession) stop(ctx context.Context, force bool) error {
	s.mu.Lock()
	if !force && s.cfg.KeepAlive {
		s.mu.Unlock()
		return nil
	}
	if s.shutdownOnce != nil {
		once := s.shutdownOnce
		done := s.shutdownDone
		s.mu.Unlock()
		once.Do(func() {})
		<-done
		return s.shutdownErr
	}
	s.shutdownOnce = &sync.Once{}
	s.shutdownDone = make(chan struct{})
	s.state = StateStopping
	s.mu.Unlock()

	var shutdownErr error
	s.shutdownOnce.Do(func() {
		shutdownErr = s.runShutdown(ctx)
	})
	close(s.shutdownDone)

	s.mu.Lock()
	s.shutdownErr = shutdownErr
	s.state = StateUninitialized
	s.shutdownOnce = nil
	s.mu.Unlock()
	return shutdownErr
}

// runShutdown performs the ordered shutdown of spec.md §4.3: cleanup
// handlers → close context (tabs) → close browser → kill tracked child
// processes → terminate browser process (only if owned). Each sub-step
// gets its own ~3s timeout so a single hang never blocks termination.
func (s *BrowserSession) runShutdown(ctx context.Context) error {
	withTimeout := func(fn func() error) error {
		done := make(chan error, 1)
		go func() { done <- fn() }()
		select {
		case err := <-done:
			return err
		case <-time.After(3 * time.Second):
			return fmt.Errorf("session: shutdown step timed out")
		}
	}

	_ = withTimeout(func() error {
		s.mu.Lock()
		handlers := s.cleanupHandlers
		s.cleanupHandlers = nil
		s.mu.Unlock()
		for _, h := range handlers {
			h()
		}
		return nil
	})

	_ = withTimeout(func() error {
		s.mu.Lock()
		tabs := s.tabs
		s.tabs = make(map[string]*openTab)
		s.mu.Unlock()
		for _, t := range tabs {
			t.tab.Close()
		}
		return nil
	})

	if s.mgr != nil {
		_ = withTimeout(func() error { return s.mgr.Close() })
	}

	return nil
}

// Stop performs ordered shutdown. Idempotent and de-duplicated: concurrent
// callers await the same in-flight shutdown. A no-op when KeepAlive is set.
func (s *BrowserSession) Stop(ctx context.Context) error {
	s.claimMu.Lock()
	shared := s.claimMode == ClaimShared && len(s.sharedIDs) > 0
	s.claimMu.Unlock()
	if shared {
		// Deferred: last release_agent triggers the real stop.
		s.mu.Lock()
		s.pendingStop = true
		s.mu.Unlock()
		return nil
	}
	return s.stop(ctx, false)
}

// Kill forces shutdown regardless of KeepAlive.
func (s *BrowserSession) Kill(ctx context.Context) error {
	s.mu.Lock()
	saved := s.cfg.KeepAlive
	s.cfg.KeepAlive = false
	s.mu.Unlock()

	err := s.stop(ctx, true)

	s.mu.Lock()
	s.cfg.KeepAlive = saved
	s.mu.Unlock()
	return err
}

// ClaimAgent reserves the session for agent id in the given mode. A shared
// claim joins an existing shared claim; while an exclusive claim is held, a
// claim by any other agent fails, and an exclusive claim fails while a
// shared claim is held.
func (s *BrowserSession) ClaimAgent(id string, mode ClaimMode) error {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	switch s.claimMode {
	case ClaimNone:
		s.claimMode = mode
		if mode == ClaimShared {
			s.sharedIDs[id] = true
		} else {
			s.claimOwner = id
		}
		return nil
	case ClaimExclusive:
		if s.claimOwner == id {
			return nil
		}
		return fmt.Errorf("session: already claimed exclusively by %s", s.claimOwner)
	case ClaimShared:
		if mode != ClaimShared {
			return fmt.Errorf("session: already claimed shared; cannot claim exclusive")
		}
		s.sharedIDs[id] = true
		return nil
	}
	return nil
}

// ReleaseAgent decrements the claim; the last release clears the owner and,
// if a shared Stop() was deferred, runs it now.
func (s *BrowserSession) ReleaseAgent(ctx context.Context, id string) error {
	s.claimMu.Lock()
	switch s.claimMode {
	case ClaimExclusive:
		if s.claimOwner == id {
			s.claimOwner = ""
			s.claimMode = ClaimNone
		}
	case ClaimShared:
		delete(s.sharedIDs, id)
		if len(s.sharedIDs) == 0 {
			s.claimMode = ClaimNone
		}
	}
	empty := s.claimMode == ClaimNone
	s.claimMu.Unlock()

	if empty {
		s.mu.Lock()
		deferred := s.pendingStop
		s.pendingStop = false
		s.mu.Unlock()
		if deferred {
			return s.stop(ctx, false)
		}
	}
	return nil
}

// CurrentURL returns the active tab's URL, or "" if no tab is active. Used
// by actions.MultiAct to detect the "URL changed between actions"
// termination condition (spec.md §4.4).
func (s *BrowserSession) CurrentURL() string {
	ot, err := s.activeOpenTab()
	if err != nil {
		return ""
	}
	return ot.tab.URL()
}

func (s *BrowserSession) activeOpenTab() (*openTab, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tabs[s.activeTab]
	if !ok {
		return nil, ErrElementNotFound("no active tab")
	}
	return t, nil
}
