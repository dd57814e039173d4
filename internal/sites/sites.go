// Package sites holds the e-commerce domain whitelist the probe checks
// pages against.
package sites

import (
	"net/url"
	"strings"
)

// DefaultDomains is the shipped whitelist. It is configuration data;
// deployments may extend it via ECOSENSE_EXTRA_DOMAINS.
var DefaultDomains = []string{
	"amazon.com",
	"amazon.sg",
	"ebay.com",
	"walmart.com",
	"target.com",
	"etsy.com",
	"nike.com",
	"adidas.com",
	"bestbuy.com",
	"zara.com",
	"hm.com",
	"shein.com",
	"aliexpress.com",
	"shopify.com",
	"lazada.sg",
	"shopee.sg",
}

// Matcher answers whitelist membership for page hostnames.
type Matcher struct {
	domains []string
}

// NewMatcher builds a matcher over the given domains. Entries are lowercased
// and blanks dropped.
func NewMatcher(domains []string) *Matcher {
	cleaned := make([]string, 0, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			cleaned = append(cleaned, d)
		}
	}
	return &Matcher{domains: cleaned}
}

// MatchesHost reports whether host equals a whitelisted domain or is a
// dot-suffixed subdomain of one (www.amazon.com matches amazon.com;
// notamazon.com does not).
func (m *Matcher) MatchesHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == "" {
		return false
	}
	for _, d := range m.domains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// MatchesURL parses rawURL and checks its hostname. Unparseable URLs never
// match.
func (m *Matcher) MatchesURL(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return m.MatchesHost(u.Hostname())
}
