package tarantula

import "net/url"

// LinkExtractor locates outbound links in fetched page content.
type LinkExtractor interface {
	// ExtractLinks parses html and returns absolute, normalized,
	// deduplicated http/https links. Relative hrefs are resolved against
	// base, the final URL after redirects. Anchors, javascript: and
	// mailto: references are discarded.
	ExtractLinks(base *url.URL, html string) ([]string, error)
}
