package sites

import "testing"

func TestMatchesHost(t *testing.T) {
	m := NewMatcher([]string{"amazon.com", "Shopee.SG", " "})

	cases := []struct {
		host string
		want bool
	}{
		{"amazon.com", true},
		{"www.amazon.com", true},
		{"smile.amazon.com", true},
		{"notamazon.com", false},
		{"amazon.com.evil.org", false},
		{"shopee.sg", true},
		{"SHOPEE.SG", true},
		{"example.org", false},
		{"", false},
	}
	for _, tc := range cases {
		if got := m.MatchesHost(tc.host); got != tc.want {
			t.Errorf("MatchesHost(%q) = %v, want %v", tc.host, got, tc.want)
		}
	}
}

func TestMatchesURL(t *testing.T) {
	m := NewMatcher(DefaultDomains)

	if !m.MatchesURL("https://www.amazon.com/dp/X?tag=1") {
		t.Fatalf("expected product URL to match")
	}
	if m.MatchesURL("https://www.example.org/page") {
		t.Fatalf("expected non-whitelisted URL to not match")
	}
	if m.MatchesURL("://bad-url") {
		t.Fatalf("expected unparseable URL to not match")
	}
}
