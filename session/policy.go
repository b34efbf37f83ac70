package session

import (
	"net"
	"net/url"
	"strings"

	"golang.org/x/net/publicsuffix"
)

// DenyReason is spec.md §4.3's closed set of domain-policy denial reasons.
type DenyReason string

const (
	DenyNone               DenyReason = ""
	DenyInvalidURL         DenyReason = "invalid_url"
	DenyMissingHost        DenyReason = "missing_host"
	DenyIPAddressBlocked   DenyReason = "ip_address_blocked"
	DenyNotInAllowed       DenyReason = "not_in_allowed_domains"
	DenyInProhibited       DenyReason = "in_prohibited_domains"
)

// PolicyResult is DomainPolicy.Evaluate's verdict.
type PolicyResult struct {
	Allowed bool
	Reason  DenyReason
	// Conflict is set when both an allow-list and a deny-list pattern
	// matched; allow-list wins per spec.md §9 Open Question 3, but the
	// caller should log this as a warning.
	Conflict bool
}

// DomainPolicy implements spec.md §4.3's allowed/prohibited-domain and
// IP-block evaluation — a per-navigation check with no prior analog (a
// continuous watcher has one target per process, not per-navigation
// policy); grounded on connectivity's glob-aware routing idiom and
// golang.org/x/net/publicsuffix for eTLD+1-aware www./bare-host
// equivalence (SPEC_FULL.md §3.5).
type DomainPolicy struct {
	AllowedDomains    []string
	ProhibitedDomains []string
	BlockIPAddresses  bool // default true: deny navigating to a bare IP literal
}

// Evaluate checks rawURL against the policy. about:blank/about:newtab are
// always allowed; data:/blob: URLs bypass host checks entirely.
func (p *DomainPolicy) Evaluate(rawURL string) PolicyResult {
	if rawURL == "about:blank" || rawURL == "about:newtab" {
		return PolicyResult{Allowed: true}
	}
	if strings.HasPrefix(rawURL, "data:") || strings.HasPrefix(rawURL, "blob:") {
		return PolicyResult{Allowed: true}
	}

	u, err := url.Parse(rawURL)
	if err != nil {
		return PolicyResult{Allowed: false, Reason: DenyInvalidURL}
	}
	host := u.Hostname()
	if host == "" {
		return PolicyResult{Allowed: false, Reason: DenyMissingHost}
	}

	if p.BlockIPAddresses && net.ParseIP(host) != nil {
		return PolicyResult{Allowed: false, Reason: DenyIPAddressBlocked}
	}

	allowMatch := matchesAny(host, p.AllowedDomains)
	denyMatch := matchesAny(host, p.ProhibitedDomains)

	if len(p.AllowedDomains) > 0 && !allowMatch {
		return PolicyResult{Allowed: false, Reason: DenyNotInAllowed}
	}
	if denyMatch {
		if allowMatch {
			// Open Question 3: allow-list wins; surface the conflict.
			return PolicyResult{Allowed: true, Conflict: true}
		}
		return PolicyResult{Allowed: false, Reason: DenyInProhibited}
	}
	return PolicyResult{Allowed: true}
}

func matchesAny(host string, patterns []string) bool {
	for _, p := range patterns {
		if hostMatches(host, p) {
			return true
		}
	}
	return false
}

// hostMatches supports glob patterns ("*.example.org") and www./non-www.
// variants, eTLD+1-aware via publicsuffix so "example.org" and
// "www.example.org" are treated as equivalent bare hosts.
func hostMatches(host, pattern string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	pattern = strings.ToLower(pattern)

	normalize := func(h string) string {
		return strings.TrimPrefix(h, "www.")
	}

	if strings.HasPrefix(pattern, "*.") {
		suffix := pattern[1:] // ".example.org"
		return strings.HasSuffix(host, suffix) || normalize(host) == pattern[2:]
	}

	if normalize(host) == normalize(pattern) {
		return true
	}

	// eTLD+1 fallback: treat as a match when host is itself the
	// registrable domain of pattern (pattern "shop.example.org" matches
	// host "example.org"; other subdomains of it do not).
	hostETLD1, err1 := publicsuffix.EffectiveTLDPlusOne(host)
	patETLD1, err2 := publicsuffix.EffectiveTLDPlusOne(pattern)
	if err1 == nil && err2 == nil && hostETLD1 == patETLD1 && host == patETLD1 {
		return true
	}
	return false
}
