package crawler

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var ErrInvalidSeed = errors.New("invalid seed url")

// Scope decides which links belong to the crawled site. A link is internal when
// it uses http(s) and its host is the seed's host or a subdomain of it.
type Scope struct {
	domain string
}

// NewScope creates a scope around the host of the seed URL
func NewScope(seed *url.URL) *Scope {
	return &Scope{domain: normalizeHost(seed.Hostname())}
}

// Domain returns the host the scope matches against
func (s *Scope) Domain() string {
	return s.domain
}

// IsInternal reports whether u belongs to the scope
func (s *Scope) IsInternal(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := normalizeHost(u.Hostname())
	if host == "" || s.domain == "" {
		return false
	}
	return host == s.domain || strings.HasSuffix(host, "."+s.domain)
}

func normalizeHost(host string) string {
	return strings.TrimSuffix(strings.ToLower(host), ".")
}

// ParseSeed validates a seed URL. Only absolute http(s) URLs with a host are accepted.
func ParseSeed(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidSeed, u.Scheme)
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidSeed)
	}
	normalize(u)
	return u, nil
}

// resolveLink resolves href against base and normalizes the result
func resolveLink(base *url.URL, href string) (*url.URL, bool) {
	href = strings.TrimSpace(href)
	ref, err := url.Parse(href)
	if err != nil {
		return nil, false
	}
	u := ref
	if base != nil {
		u = base.ResolveReference(ref)
	}
	normalize(u)
	return u, true
}

// normalize drops the fragment and gives hierarchical URLs with a host a root
// path, so https://example.com and https://example.com/ are the same page.
func normalize(u *url.URL) {
	u.Fragment = ""
	u.RawFragment = ""
	if u.Host != "" && u.Opaque == "" && u.Path == "" {
		u.Path = "/"
		u.RawPath = ""
	}
}
