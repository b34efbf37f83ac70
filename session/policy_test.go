package session

import "testing"

func TestDomainPolicy_AboutAndDataURLsAlwaysAllowed(t *testing.T) {
	p := &DomainPolicy{AllowedDomains: []string{"example.com"}}
	for _, u := range []string{"about:blank", "about:newtab", "data:text/plain,hi", "blob:https://example.com/abc"} {
		if r := p.Evaluate(u); !r.Allowed {
			t.Errorf("Evaluate(%q) = %+v, want Allowed", u, r)
		}
	}
}

func TestDomainPolicy_InvalidURL(t *testing.T) {
	p := &DomainPolicy{}
	r := p.Evaluate("http://[::1")
	if r.Allowed || r.Reason != DenyInvalidURL {
		t.Errorf("Evaluate(invalid url) = %+v, want DenyInvalidURL", r)
	}
}

func TestDomainPolicy_BlocksIPAddresses(t *testing.T) {
	p := &DomainPolicy{BlockIPAddresses: true}
	r := p.Evaluate("http://192.168.1.1/path")
	if r.Allowed || r.Reason != DenyIPAddressBlocked {
		t.Errorf("Evaluate(ip literal) = %+v, want DenyIPAddressBlocked", r)
	}
}

func TestDomainPolicy_AllowsIPAddressesWhenNotBlocking(t *testing.T) {
	p := &DomainPolicy{BlockIPAddresses: false}
	r := p.Evaluate("http://192.168.1.1/path")
	if !r.Allowed {
		t.Errorf("Evaluate(ip literal, BlockIPAddresses=false) = %+v, want Allowed", r)
	}
}

func TestDomainPolicy_NotInAllowedList(t *testing.T) {
	p := &DomainPolicy{AllowedDomains: []string{"example.com"}}
	r := p.Evaluate("https://other.com/page")
	if r.Allowed || r.Reason != DenyNotInAllowed {
		t.Errorf("Evaluate(not allowed) = %+v, want DenyNotInAllowed", r)
	}
}

func TestDomainPolicy_WWWAndBareHostEquivalence(t *testing.T) {
	p := &DomainPolicy{AllowedDomains: []string{"example.com"}}
	r := p.Evaluate("https://www.example.com/page")
	if !r.Allowed {
		t.Errorf("Evaluate(www variant) = %+v, want Allowed", r)
	}
}

func TestDomainPolicy_GlobPattern(t *testing.T) {
	p := &DomainPolicy{AllowedDomains: []string{"*.example.com"}}
	if r := p.Evaluate("https://sub.example.com/page"); !r.Allowed {
		t.Errorf("Evaluate(sub.example.com against *.example.com) = %+v, want Allowed", r)
	}
	if r := p.Evaluate("https://example.com/page"); !r.Allowed {
		t.Errorf("Evaluate(bare example.com against *.example.com) = %+v, want Allowed", r)
	}
}

func TestDomainPolicy_InProhibited(t *testing.T) {
	p := &DomainPolicy{ProhibitedDomains: []string{"evil.com"}}
	r := p.Evaluate("https://evil.com/page")
	if r.Allowed || r.Reason != DenyInProhibited {
		t.Errorf("Evaluate(prohibited) = %+v, want DenyInProhibited", r)
	}
}

func TestDomainPolicy_AllowListWinsOverProhibitedAndFlagsConflict(t *testing.T) {
	p := &DomainPolicy{AllowedDomains: []string{"example.com"}, ProhibitedDomains: []string{"example.com"}}
	r := p.Evaluate("https://example.com/page")
	if !r.Allowed || !r.Conflict {
		t.Errorf("Evaluate(allow+deny both match) = %+v, want Allowed with Conflict", r)
	}
}

func TestDomainPolicy_NoListsAllowsAnything(t *testing.T) {
	p := &DomainPolicy{}
	r := p.Evaluate("https://anything.example/page")
	if !r.Allowed {
		t.Errorf("Evaluate with no allow/deny lists = %+v, want Allowed", r)
	}
}
