package tarantula

import (
	"context"
	"net/url"
	"time"
)

// RobotsPolicy answers robots.txt questions for crawled hosts. The first
// reference to a host triggers a single robots.txt fetch; concurrent first
// references collapse into one request. A fetch or parse failure degrades to
// allow-all so robots absence never blocks a crawl.
type RobotsPolicy interface {
	// Allowed reports whether the user agent may fetch u.
	Allowed(ctx context.Context, u *url.URL, userAgent string) bool

	// CrawlDelay returns the host's robots.txt crawl-delay for the user
	// agent, or zero when none is declared.
	CrawlDelay(ctx context.Context, u *url.URL, userAgent string) time.Duration
}
