package config

import (
	"time"

	"github.com/hahsanayub/browseragent/session"
)

// ToSessionParams maps parsed CLI flags onto session.BrowserParams, the
// dependency-free struct session.NewConfig consumes.
func (a *CLIArgs) ToSessionParams() session.BrowserParams {
	return session.BrowserParams{
		CDPURL:           a.CDPURL,
		Headless:         a.Headless,
		WindowWidth:      a.WindowWidth,
		WindowHeight:     a.WindowHeight,
		UserDataDir:      a.UserDataDir,
		ProfileDirectory: a.ProfileDirectory,
		ProxyURL:         a.ProxyURL,
		NoProxy:          a.NoProxy,
		ProxyUsername:    a.ProxyUsername,
		ProxyPassword:    a.ProxyPassword,
		AllowInsecure:    a.AllowInsecure,
		ResourceBlocking: []string{"images", "fonts", "media"},
		MemoryLimit:      1 << 30,
		RecycleInterval:  4 * time.Hour,
	}
}

// ToDomainPolicy maps --allowed-domains onto a session.DomainPolicy.
func (a *CLIArgs) ToDomainPolicy() session.DomainPolicy {
	return session.DomainPolicy{
		AllowedDomains:   a.AllowedDomains,
		BlockIPAddresses: true,
	}
}
