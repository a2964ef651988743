// Package robotstxt resolves and caches robots.txt policies per host.
package robotstxt

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"tarantula"

	"github.com/temoto/robotstxt"
	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds a single robots.txt fetch.
const DefaultFetchTimeout = 10 * time.Second

// maxRobotsBytes caps how much of a robots.txt body is read.
const maxRobotsBytes = 512 * 1024

// Compile-time interface verification.
var _ tarantula.RobotsPolicy = (*Resolver)(nil)

// Resolver fetches robots.txt once per host, parses it with the robotstxt
// library, and caches the rules for the process lifetime. Concurrent first
// references to a host collapse into a single fetch. Any fetch or parse
// failure, and any non-2xx status, degrades to allow-all so robots absence
// never blocks a crawl.
type Resolver struct {
	client *http.Client

	group singleflight.Group

	mu    sync.RWMutex
	cache map[string]*robotstxt.RobotsData
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithClient sets the HTTP client used for robots.txt fetches.
func WithClient(client *http.Client) Option {
	return func(r *Resolver) { r.client = client }
}

// NewResolver creates a Resolver with an empty cache.
func NewResolver(opts ...Option) *Resolver {
	r := &Resolver{
		cache: make(map[string]*robotstxt.RobotsData),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	return r
}

// Allowed reports whether the user agent may fetch u.
func (r *Resolver) Allowed(ctx context.Context, u *url.URL, userAgent string) bool {
	data := r.rules(ctx, u, userAgent)
	if data == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return data.FindGroup(userAgent).Test(path)
}

// CrawlDelay returns the host's declared crawl-delay for the user agent, or
// zero when none is declared.
func (r *Resolver) CrawlDelay(ctx context.Context, u *url.URL, userAgent string) time.Duration {
	data := r.rules(ctx, u, userAgent)
	if data == nil {
		return 0
	}
	return data.FindGroup(userAgent).CrawlDelay
}

// rules returns the cached rules for u's host, fetching them on first
// reference. A nil return means no restrictions.
func (r *Resolver) rules(ctx context.Context, u *url.URL, userAgent string) *robotstxt.RobotsData {
	key := strings.ToLower(u.Scheme + "://" + u.Host)

	r.mu.RLock()
	data, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return data
	}

	v, _, _ := r.group.Do(key, func() (any, error) {
		data := r.fetch(ctx, u.Scheme, u.Host, userAgent)
		r.mu.Lock()
		r.cache[key] = data
		r.mu.Unlock()
		return data, nil
	})
	data, _ = v.(*robotstxt.RobotsData)
	return data
}

// fetch performs the single robots.txt request for a host. Nil means
// allow-all; it is cached like any other answer and never retried.
func (r *Resolver) fetch(ctx context.Context, scheme, host, userAgent string) *robotstxt.RobotsData {
	robotsURL := scheme + "://" + host + "/robots.txt"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL, nil)
	if err != nil {
		return nil
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRobotsBytes))
	if err != nil {
		return nil
	}
	data, err := robotstxt.FromBytes(body)
	if err != nil {
		return nil
	}
	return data
}
