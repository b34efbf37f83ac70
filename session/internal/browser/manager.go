// Package browser manages the Chrome/Chromium process backing a
// BrowserSession: launch (local or remote CDP), stealth mode, per-tab
// resource blocking, an optional Xvfb display for headful stealth, and
// memory/interval-based recycling. Manager previously drove one always-on
// DOM-watching daemon; here the same process lifecycle is repurposed to
// host an agent's on-demand tabs, with BeforeRecycle/AfterRecycle becoming
// the hook BrowserSession reattaches its active tab through across a
// forced relaunch.
package browser

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// StealthLevel controls how a tab is opened.
type StealthLevel int

const (
	LevelPlain    StealthLevel = 0 // no stealth page wrapper
	LevelHeadless StealthLevel = 1 // rod headless + go-rod/stealth
	LevelHeadful  StealthLevel = 2 // rod headful + Xvfb + stealth
)

// Config configures the browser Manager. Field names follow spec.md §6's
// CLI surface so config.Config can map flags onto this struct directly.
type Config struct {
	// CDPURL is the WebSocket URL of an external Chrome instance. Empty
	// launches a local Chrome via launcher. Corresponds to --cdp-url.
	CDPURL string

	Headless          bool
	WindowWidth       int
	WindowHeight      int
	UserDataDir       string
	ProfileDirectory  string
	ProxyURL          string
	NoProxy           []string
	ProxyUsername     string
	ProxyPassword     string
	AllowInsecure     bool // --allow-insecure: ignore TLS cert errors

	ResourceBlocking []string // e.g. "images", "fonts", "media", "stylesheets"

	Stealth     StealthLevel
	XvfbDisplay string

	MemoryLimit     int64         // bytes; recycle when exceeded, default 1GB
	RecycleInterval time.Duration // max process lifetime, default 4h

	Logger *slog.Logger
}

func (c *Config) defaults() {
	if c.WindowWidth <= 0 {
		c.WindowWidth = 1280
	}
	if c.WindowHeight <= 0 {
		c.WindowHeight = 1100
	}
	if c.MemoryLimit <= 0 {
		c.MemoryLimit = 1 << 30
	}
	if c.RecycleInterval <= 0 {
		c.RecycleInterval = 4 * time.Hour
	}
	if c.XvfbDisplay == "" {
		c.XvfbDisplay = ":99"
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// RecycleCallback lets BrowserSession reattach its open tabs across a
// forced Chrome relaunch (memory/interval recycle, or recovery's last
// resort).
type RecycleCallback struct {
	BeforeRecycle func()
	AfterRecycle  func(b *rod.Browser)
}

// Manager owns the Chrome process and its Rod connection.
type Manager struct {
	cfg     Config
	mu      sync.RWMutex
	browser *rod.Browser
	lnch    *launcher.Launcher
	xvfb    *exec.Cmd
	startAt time.Time
	closed  bool
	cb      *RecycleCallback

	ownsProcess bool // false when CDPURL was supplied (spec.md §3 "Ownership")
}

func NewManager(cfg Config) *Manager {
	cfg.defaults()
	return &Manager{cfg: cfg}
}

// Owned reports whether this Manager launched (and therefore may
// terminate) the browser process — spec.md §3's Ownership invariant.
func (m *Manager) Owned() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ownsProcess
}

func (m *Manager) SetRecycleCallback(cb *RecycleCallback) {
	m.mu.Lock()
	m.cb = cb
	m.mu.Unlock()
}

// Start launches or connects to Chrome and begins the recycle monitor.
func (m *Manager) Start(ctx context.Context) (*rod.Browser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil, fmt.Errorf("browser: manager is closed")
	}
	b, err := m.launch(ctx)
	if err != nil {
		return nil, err
	}
	m.browser = b
	m.startAt = time.Now()
	go m.monitorLoop(ctx)
	return b, nil
}

func (m *Manager) Browser() *rod.Browser {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.browser
}

// Recycle kills and relaunches Chrome, invoking the recycle callbacks so
// the caller can flush/reattach state across the gap.
func (m *Manager) Recycle(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("browser: manager is closed")
	}
	return m.recycleLocked(ctx)
}

// Close shuts down Chrome (only if owned, per spec.md §3 Ownership) and
// Xvfb. Safe to call multiple times.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return m.cleanup()
}

func (m *Manager) launch(ctx context.Context) (*rod.Browser, error) {
	log := m.cfg.Logger

	if m.cfg.Stealth == LevelHeadful {
		if err := m.startXvfb(); err != nil {
			return nil, fmt.Errorf("browser: xvfb: %w", err)
		}
	}

	var wsURL string

	if m.cfg.CDPURL != "" {
		wsURL = m.cfg.CDPURL
		m.ownsProcess = false
		log.Info("browser: connecting to remote cdp", "url", wsURL)
	} else {
		l := launcher.New()
		if m.cfg.Stealth == LevelHeadful {
			l = l.Headless(false).Env("DISPLAY", m.cfg.XvfbDisplay)
		} else {
			l = l.Headless(m.cfg.Headless)
		}
		l = l.Set("disable-blink-features", "AutomationControlled")
		l = l.Set("window-size", fmt.Sprintf("%d,%d", m.cfg.WindowWidth, m.cfg.WindowHeight))
		if m.cfg.UserDataDir != "" {
			l = l.UserDataDir(m.cfg.UserDataDir)
		}
		if m.cfg.ProfileDirectory != "" {
			l = l.Set("profile-directory", m.cfg.ProfileDirectory)
		}
		if m.cfg.ProxyURL != "" {
			l = l.Proxy(m.cfg.ProxyURL)
		}

		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser: launch: %w", err)
		}
		wsURL = u
		m.lnch = l
		m.ownsProcess = true
		log.Info("browser: launched local chrome", "url", wsURL, "stealth", m.cfg.Stealth)
	}

	b := rod.New().Context(ctx).ControlURL(wsURL)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("browser: connect: %w", err)
	}

	if m.cfg.AllowInsecure {
		if err := b.IgnoreCertErrors(true); err != nil {
			log.Warn("browser: ignore cert errors failed", "error", err)
		}
	}

	return b, nil
}

func (m *Manager) recycleLocked(ctx context.Context) error {
	log := m.cfg.Logger
	log.Info("browser: recycling", "uptime", time.Since(m.startAt))

	if m.cb != nil && m.cb.BeforeRecycle != nil {
		m.cb.BeforeRecycle()
	}
	if err := m.cleanup(); err != nil {
		log.Warn("browser: cleanup during recycle", "error", err)
	}
	b, err := m.launch(ctx)
	if err != nil {
		return fmt.Errorf("browser: relaunch: %w", err)
	}
	m.browser = b
	m.startAt = time.Now()
	if m.cb != nil && m.cb.AfterRecycle != nil {
		m.cb.AfterRecycle(b)
	}
	log.Info("browser: recycled successfully")
	return nil
}

func (m *Manager) cleanup() error {
	if m.browser != nil {
		if m.ownsProcess {
			m.browser.Close()
		}
		m.browser = nil
	}
	if m.lnch != nil {
		m.lnch.Cleanup()
		m.lnch = nil
	}
	m.stopXvfb()
	return nil
}

// monitorLoop implements the supplemental memory/interval auto-recycle
// capability (not named by spec.md, not excluded by a Non-goal — see
// SPEC_FULL.md §3.2). It is a distinct mechanism from the
// PageUnresponsive recovery path in recovery.go.
func (m *Manager) monitorLoop(ctx context.Context) {
	log := m.cfg.Logger
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.mu.RLock()
			if m.closed || m.browser == nil {
				m.mu.RUnlock()
				return
			}
			startAt := m.startAt
			b := m.browser
			m.mu.RUnlock()

			if time.Since(startAt) > m.cfg.RecycleInterval {
				log.Info("browser: recycle interval reached")
				if err := m.Recycle(ctx); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
				continue
			}

			if !m.Owned() {
				continue // don't recycle a foreign connection
			}

			used, err := getJSHeapUsage(b)
			if err != nil {
				log.Debug("browser: heap check failed", "error", err)
				continue
			}
			if used > m.cfg.MemoryLimit {
				log.Info("browser: memory limit exceeded", "used", used, "limit", m.cfg.MemoryLimit)
				if err := m.Recycle(ctx); err != nil {
					log.Error("browser: recycle failed", "error", err)
				}
			}
		}
	}
}

func getJSHeapUsage(b *rod.Browser) (int64, error) {
	pages, err := b.Pages()
	if err != nil || len(pages) == 0 {
		return 0, fmt.Errorf("browser: no pages for heap check")
	}
	res, err := pages[0].Eval(`() => (performance.memory ? performance.memory.usedJSHeapSize : 0)`)
	if err != nil {
		return 0, err
	}
	return int64(res.Value.Int()), nil
}
