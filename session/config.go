package session

import (
	"log/slog"
	"time"

	"github.com/hahsanayub/browseragent/session/internal/browser"
)

// Config configures one BrowserSession. Built by NewConfig from the
// BrowserParams and DomainPolicy that the config package (the CLI/env
// layer) produces via CLIArgs.ToSessionParams and CLIArgs.ToDomainPolicy.
type Config struct {
	Browser browser.Config

	Policy DomainPolicy

	DownloadsPath    string
	AutoDownloadPDFs bool

	KeepAlive bool // stop() becomes a no-op until kill() (spec.md §4.3)

	WaitForNetworkIdle time.Duration
	MaxWaitPageLoad    time.Duration

	HighlightElements bool
	ViewportExpansion int
	MaxTotalLength    int

	Logger *slog.Logger
}

// BrowserParams is a flat, dependency-free mirror of browser.Config's
// exported fields, letting config (the CLI/env layer, outside the
// session/ tree) populate browser settings without importing
// session/internal/browser directly.
type BrowserParams struct {
	CDPURL string

	Headless         bool
	WindowWidth      int
	WindowHeight     int
	UserDataDir      string
	ProfileDirectory string
	ProxyURL         string
	NoProxy          []string
	ProxyUsername    string
	ProxyPassword    string
	AllowInsecure    bool

	ResourceBlocking []string

	MemoryLimit     int64
	RecycleInterval time.Duration
}

// NewConfig builds a Config from CLI/env-derived params plus a domain
// policy, filling in the internal browser.Config this package owns.
func NewConfig(p BrowserParams, policy DomainPolicy, logger *slog.Logger) Config {
	return Config{
		Browser: browser.Config{
			CDPURL:           p.CDPURL,
			Headless:         p.Headless,
			WindowWidth:      p.WindowWidth,
			WindowHeight:     p.WindowHeight,
			UserDataDir:      p.UserDataDir,
			ProfileDirectory: p.ProfileDirectory,
			ProxyURL:         p.ProxyURL,
			NoProxy:          p.NoProxy,
			ProxyUsername:    p.ProxyUsername,
			ProxyPassword:    p.ProxyPassword,
			AllowInsecure:    p.AllowInsecure,
			ResourceBlocking: p.ResourceBlocking,
			MemoryLimit:      p.MemoryLimit,
			RecycleInterval:  p.RecycleInterval,
			Logger:           logger,
		},
		Policy: policy,
		Logger: logger,
	}
}

func (c *Config) defaults() {
	if c.WaitForNetworkIdle <= 0 {
		c.WaitForNetworkIdle = 500 * time.Millisecond
	}
	if c.MaxWaitPageLoad <= 0 {
		c.MaxWaitPageLoad = 5 * time.Second
	}
	if c.MaxTotalLength <= 0 {
		c.MaxTotalLength = 40000
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}
