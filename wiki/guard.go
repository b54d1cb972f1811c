package wiki

import (
	"net/url"
	"strings"
)

// EgressGuard validates outbound target hosts against an allowlist of domain
// suffixes. Every outbound call goes through Check before any network I/O;
// this is the single point that keeps the bridge from becoming an open proxy.
type EgressGuard struct {
	suffixes []string
}

// NewEgressGuard builds a guard from domain suffixes (e.g. "fandom.com").
// Suffixes are normalized to lowercase without leading dots.
func NewEgressGuard(suffixes []string) *EgressGuard {
	normalized := make([]string, 0, len(suffixes))
	for _, s := range suffixes {
		s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
		if s != "" {
			normalized = append(normalized, s)
		}
	}
	return &EgressGuard{suffixes: normalized}
}

// IsAllowed reports whether the URL's host equals, or is a subdomain of, one
// of the allowed suffixes. Malformed URLs (no scheme, no host) are not
// allowed rather than an error; the guard never performs I/O.
func (g *EgressGuard) IsAllowed(rawURL string) bool {
	host := hostOf(rawURL)
	if host == "" {
		return false
	}
	for _, suffix := range g.suffixes {
		if host == suffix || strings.HasSuffix(host, "."+suffix) {
			return true
		}
	}
	return false
}

// Check returns a ForbiddenError for disallowed URLs, nil otherwise
func (g *EgressGuard) Check(rawURL string) error {
	if g.IsAllowed(rawURL) {
		return nil
	}
	return &ForbiddenError{URL: rawURL, Host: hostOf(rawURL)}
}

// hostOf extracts the lowercase hostname, or "" if the URL is unusable
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
