package urlscheme

import "testing"

func TestProto(t *testing.T) {
	cases := map[string]string{
		"localhost":        "http",
		"ide.localhost":     "http",
		"127.0.0.1":        "http",
		"::1":               "http",
		"cradle.example.com": "https",
	}
	for domain, want := range cases {
		if got := Proto(domain); got != want {
			t.Errorf("Proto(%q) = %q, want %q", domain, got, want)
		}
	}
}

func TestURLs(t *testing.T) {
	urls := URLs("cradle.example.com", "abcd1234")
	if urls.Editor != "https://cradle.example.com/editor/abcd1234" {
		t.Errorf("unexpected editor URL: %s", urls.Editor)
	}
	if urls.Desktop != "https://cradle.example.com/desktop/abcd1234" {
		t.Errorf("unexpected desktop URL: %s", urls.Desktop)
	}
	if urls.Web != "https://cradle.example.com/web/abcd1234" {
		t.Errorf("unexpected web URL: %s", urls.Web)
	}
}

func TestURLsLocalhostIsHTTP(t *testing.T) {
	urls := URLs("localhost", "abcd1234")
	if urls.Editor != "http://localhost/editor/abcd1234" {
		t.Errorf("unexpected editor URL: %s", urls.Editor)
	}
}

func TestBuildLabelsRulesMatchRoles(t *testing.T) {
	labels := BuildLabels("cradle.example.com", "abcd1234")
	if len(labels.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(labels.Rules))
	}
	for _, rule := range labels.Rules {
		if rule.Priority != RouterPriority {
			t.Errorf("rule %s: priority = %d, want %d", rule.Role, rule.Priority, RouterPriority)
		}
		if rule.StripPrefix != rule.PathPrefix {
			t.Errorf("rule %s: strip prefix %q != path prefix %q", rule.Role, rule.StripPrefix, rule.PathPrefix)
		}
		if rule.TLSResolver == "" {
			t.Errorf("rule %s: expected TLS resolver for public domain", rule.Role)
		}
	}
}

func TestBuildLabelsNoTLSForLocalhost(t *testing.T) {
	labels := BuildLabels("localhost", "abcd1234")
	for _, rule := range labels.Rules {
		if rule.TLSResolver != "" {
			t.Errorf("rule %s: expected no TLS resolver for localhost, got %q", rule.Role, rule.TLSResolver)
		}
	}
}
