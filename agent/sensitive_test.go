package agent

import (
	"strings"
	"testing"
)

func exactDomainMatch(pattern, url string) bool {
	return strings.Contains(url, pattern)
}

func TestSensitiveData_RequireAllowedDomain(t *testing.T) {
	var empty SensitiveData
	if err := empty.RequireAllowedDomain(nil); err != nil {
		t.Errorf("RequireAllowedDomain with no sensitive data: unexpected error %v", err)
	}

	sd := SensitiveData{"example.com": {"password": "s3cr3t"}}
	if err := sd.RequireAllowedDomain(nil); err == nil {
		t.Error("RequireAllowedDomain with sensitive data and no allowed domains: want error, got nil")
	}
	if err := sd.RequireAllowedDomain([]string{"example.com"}); err != nil {
		t.Errorf("RequireAllowedDomain with an allowed domain: unexpected error %v", err)
	}
}

func TestSensitiveData_Substitute(t *testing.T) {
	sd := SensitiveData{"example.com": {"password": "s3cr3t", "user": "alice"}}
	params := map[string]any{
		"text":  "login as {{user}} with {{password}}",
		"index": 3,
	}

	out := sd.Substitute("https://example.com/login", exactDomainMatch, params)
	if out["text"] != "login as alice with s3cr3t" {
		t.Errorf("Substitute text = %q, want substituted secrets", out["text"])
	}
	if out["index"] != 3 {
		t.Errorf("Substitute non-string param = %v, want passthrough 3", out["index"])
	}

	// a domain that doesn't match leaves placeholders untouched.
	out2 := sd.Substitute("https://other.com/login", exactDomainMatch, params)
	if out2["text"] != params["text"] {
		t.Errorf("Substitute on non-matching domain = %q, want unchanged", out2["text"])
	}
}

func TestURLShortener_ShortenAndRestore(t *testing.T) {
	u := NewURLShortener(20)
	long := "https://example.com/a/very/long/path/that/exceeds/the/limit"
	text := "see " + long + " for details"

	shortened := u.Shorten(text)
	if strings.Contains(shortened, long) {
		t.Fatalf("Shorten(%q) did not shorten the long URL", shortened)
	}
	if !strings.Contains(shortened, "...") {
		t.Fatalf("Shorten(%q) missing ... marker", shortened)
	}

	restored := u.Restore(shortened)
	if restored != text {
		t.Errorf("Restore(Shorten(text)) = %q, want %q", restored, text)
	}
}

func TestURLShortener_LeavesShortURLsAlone(t *testing.T) {
	u := NewURLShortener(1000)
	text := "visit https://example.com today"
	if got := u.Shorten(text); got != text {
		t.Errorf("Shorten with a high limit = %q, want unchanged %q", got, text)
	}
}

func TestIndexAnyScheme_PicksEarliestMatch(t *testing.T) {
	s := "prefix http://a.com then https://b.com"
	idx := indexAnyScheme(s)
	want := strings.Index(s, "http://a.com")
	if idx != want {
		t.Errorf("indexAnyScheme = %d, want %d (earliest scheme occurrence)", idx, want)
	}
}
