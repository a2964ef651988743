package tarantula

import (
	"net"
	"net/url"
	"strings"
)

// NormalizeURL returns a canonical copy of u for deduplication: scheme and
// host lower-cased, default ports stripped, fragment dropped, empty path
// rewritten to "/". Two URLs normalizing identically are the same page.
func NormalizeURL(u *url.URL) *url.URL {
	n := *u
	n.Scheme = strings.ToLower(n.Scheme)
	n.Host = strings.ToLower(n.Host)
	if host, port, err := net.SplitHostPort(n.Host); err == nil {
		if (n.Scheme == "http" && port == "80") || (n.Scheme == "https" && port == "443") {
			n.Host = host
		}
	}
	n.Fragment = ""
	n.RawFragment = ""
	if n.Path == "" {
		n.Path = "/"
	}
	return &n
}

// ParseURL parses raw and normalizes the result. Returns EINVALID for
// unparseable input.
func ParseURL(raw string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, Errorf(EINVALID, "invalid URL %q: %v", raw, err)
	}
	return NormalizeURL(u), nil
}
