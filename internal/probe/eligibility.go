package probe

import "ecosense-relay/internal/sites"

// Strategy decides whether a page is eligible for analysis.
type Strategy interface {
	Eligible(pageURL string) bool
}

// Whitelist restricts analysis to a fixed set of e-commerce domains.
type Whitelist struct {
	Matcher *sites.Matcher
}

// Eligible reports whether the URL's host is on the whitelist.
func (w Whitelist) Eligible(pageURL string) bool {
	return w.Matcher.MatchesURL(pageURL)
}

// InjectionScoped treats every submitted page as eligible. It models a
// deployment where reach is already limited upstream, so the probe only
// ever sees pages it should analyze.
type InjectionScoped struct{}

// Eligible always returns true.
func (InjectionScoped) Eligible(string) bool { return true }
