package agent

import (
	"fmt"
	"strings"
)

// SensitiveData is spec.md §4.7's `{domain_pattern -> {key -> secret}}`
// mapping, substituted into outgoing action parameters only when the
// current URL matches the associated domain pattern.
type SensitiveData map[string]map[string]string

// DomainMatcher matches a URL against a domain pattern, reusing
// session.DomainPolicy's glob/eTLD+1 semantics so "sensitive data applies
// to this domain" and "this domain is in the allow-list" use one rule.
type DomainMatcher func(pattern, url string) bool

// RequireAllowedDomain implements spec.md §4.7: "The loop refuses to start
// when sensitive data is present without at least one allowed-domain entry
// on the session."
func (sd SensitiveData) RequireAllowedDomain(allowedDomains []string) error {
	if len(sd) == 0 {
		return nil
	}
	if len(allowedDomains) == 0 {
		return fmt.Errorf("agent: sensitive data configured without any allowed domain on the session")
	}
	return nil
}

// Substitute replaces `{{key}}` placeholders in an action's string
// parameters with the secret for the domain pattern matching currentURL, at
// execution time only. Text that is not a `{{key}}` placeholder is left
// unchanged.
func (sd SensitiveData) Substitute(currentURL string, match DomainMatcher, params map[string]any) map[string]any {
	if len(sd) == 0 {
		return params
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		s, ok := v.(string)
		if !ok {
			out[k] = v
			continue
		}
		out[k] = sd.replaceIn(currentURL, match, s)
	}
	return out
}

func (sd SensitiveData) replaceIn(currentURL string, match DomainMatcher, s string) string {
	for pattern, secrets := range sd {
		if !match(pattern, currentURL) {
			continue
		}
		for key, secret := range secrets {
			s = strings.ReplaceAll(s, "{{"+key+"}}", secret)
		}
	}
	return s
}

// URLShortener rewrites URLs in outgoing text longer than Limit to
// `<prefix>...<suffix>` and keeps a reverse mapping so the original can be
// restored before recording or executing, per spec.md §4.7 "URL
// shortening".
type URLShortener struct {
	Limit         int
	PrefixLen     int
	SuffixLen     int
	shortToOrig   map[string]string
}

// NewURLShortener returns a shortener with the conventional prefix/suffix
// sizing (first 30 / last 10 characters of the URL).
func NewURLShortener(limit int) *URLShortener {
	return &URLShortener{Limit: limit, PrefixLen: 30, SuffixLen: 10, shortToOrig: make(map[string]string)}
}

// Shorten replaces every URL-shaped substring in s longer than Limit with
// its shortened form, recording the reverse mapping.
func (u *URLShortener) Shorten(s string) string {
	if u.Limit <= 0 {
		return s
	}
	var b strings.Builder
	i := 0
	for i < len(s) {
		start := indexAnyScheme(s[i:])
		if start < 0 {
			b.WriteString(s[i:])
			break
		}
		start += i
		b.WriteString(s[i:start])
		end := start
		for end < len(s) && !strings.ContainsRune(" \t\n\"')]>", rune(s[end])) {
			end++
		}
		url := s[start:end]
		if len(url) > u.Limit {
			short := u.shorten(url)
			b.WriteString(short)
		} else {
			b.WriteString(url)
		}
		i = end
	}
	return b.String()
}

func (u *URLShortener) shorten(url string) string {
	prefix := url
	if len(prefix) > u.PrefixLen {
		prefix = prefix[:u.PrefixLen]
	}
	suffix := ""
	if len(url) > u.SuffixLen {
		suffix = url[len(url)-u.SuffixLen:]
	}
	short := prefix + "..." + suffix
	u.shortToOrig[short] = url
	return short
}

// Restore replaces every shortened URL in s with its original, used to
// restore next_goal and textual action fields before recording/executing.
func (u *URLShortener) Restore(s string) string {
	for short, orig := range u.shortToOrig {
		s = strings.ReplaceAll(s, short, orig)
	}
	return s
}

func indexAnyScheme(s string) int {
	best := -1
	for _, scheme := range []string{"https://", "http://"} {
		if idx := strings.Index(s, scheme); idx >= 0 && (best < 0 || idx < best) {
			best = idx
		}
	}
	return best
}
