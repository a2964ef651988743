// Package goquery provides link extraction backed by the goquery DOM
// library.
package goquery

import (
	"net/url"
	"strings"

	"tarantula"

	"github.com/PuerkitoBio/goquery"
)

// Compile-time interface verification.
var _ tarantula.LinkExtractor = (*Extractor)(nil)

// Extractor locates anchor links in HTML and returns them as normalized
// absolute http/https URLs, deduplicated within the page.
type Extractor struct{}

// NewExtractor creates a new Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// ExtractLinks parses html and returns the page's outbound links. Relative
// hrefs are resolved against base; bare anchors, javascript:, mailto:, and
// other non-web schemes are discarded.
func (e *Extractor) ExtractLinks(base *url.URL, html string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, tarantula.Errorf(tarantula.EINVALID, "failed to parse HTML: %v", err)
	}

	seen := make(map[string]struct{})
	var links []string

	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok {
			return
		}
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}

		ref, err := url.Parse(href)
		if err != nil {
			return
		}
		resolved := tarantula.NormalizeURL(base.ResolveReference(ref))
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return
		}
		if resolved.Host == "" {
			return
		}

		link := resolved.String()
		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	})

	return links, nil
}
