package tarantula

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// Defaults applied by RunConfig.Normalize for fields left at their zero
// value. They mirror the crawler's historical behavior.
const (
	DefaultUserAgent        = "tarantula"
	DefaultMaximumRedirects = 10
	DefaultMaximumDepth     = 16
	DefaultCrawlDelay       = 10 * time.Second
)

// RunConfig describes a single crawl run. It is immutable for the lifetime
// of the run once accepted by a Runner. The optional integer fields are
// pointers so an explicit zero survives JSON decoding: absent means "use the
// default", a present 0 means 0.
type RunConfig struct {
	// URL is the seed the crawl starts from. Required, http or https.
	URL string `json:"url"`

	// IgnoreRedirects causes any redirect response to be reported as a
	// redirect_limit failure instead of being followed.
	IgnoreRedirects bool `json:"ignore_redirects"`

	// MaximumRedirects caps how many redirect hops a single fetch may
	// follow before it fails with redirect_limit. Nil defaults to 10.
	MaximumRedirects *int `json:"maximum_redirects"`

	// MaximumDepth caps link-hop distance from the seed. Depth 0 crawls
	// only the seed page. Nil defaults to 16.
	MaximumDepth *int `json:"maximum_depth"`

	// IgnoreRobotsTxt bypasses robots.txt entirely: everything is allowed
	// and no robots crawl-delay applies.
	IgnoreRobotsTxt bool `json:"ignore_robots_txt"`

	// KeepHTMLInMemory includes the raw page body in emitted results.
	KeepHTMLInMemory bool `json:"keep_html_in_memory"`

	// UserAgent is sent with every outbound request, robots.txt included.
	UserAgent string `json:"user_agent"`

	// CallbackURL receives one POST per page result plus a completion
	// event. Empty disables delivery.
	CallbackURL string `json:"callback_url"`

	// CrawlDelayMS is the default minimum gap between requests to the same
	// host, in milliseconds. The effective gap is the larger of this value
	// and the host's robots.txt crawl-delay. Nil defaults to 10000.
	CrawlDelayMS *int `json:"crawl_delay_ms"`
}

// MaxRedirects returns the effective redirect cap.
func (c RunConfig) MaxRedirects() int {
	if c.MaximumRedirects == nil {
		if c.IgnoreRedirects {
			return 0
		}
		return DefaultMaximumRedirects
	}
	return *c.MaximumRedirects
}

// MaxDepth returns the effective maximum link-hop depth.
func (c RunConfig) MaxDepth() int {
	if c.MaximumDepth == nil {
		return DefaultMaximumDepth
	}
	return *c.MaximumDepth
}

// CrawlDelay returns the effective default per-host delay as a Duration.
func (c RunConfig) CrawlDelay() time.Duration {
	if c.CrawlDelayMS == nil {
		return DefaultCrawlDelay
	}
	return time.Duration(*c.CrawlDelayMS) * time.Millisecond
}

// Normalize returns a copy of the config with defaults materialized into
// unset fields, so the accepted config records what the run actually used.
func (c RunConfig) Normalize() RunConfig {
	if c.MaximumRedirects == nil {
		v := c.MaxRedirects()
		c.MaximumRedirects = &v
	}
	if c.MaximumDepth == nil {
		v := DefaultMaximumDepth
		c.MaximumDepth = &v
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.CrawlDelayMS == nil {
		v := int(DefaultCrawlDelay / time.Millisecond)
		c.CrawlDelayMS = &v
	}
	return c
}

// Validate returns EINVALID if the config cannot seed a run.
func (c RunConfig) Validate() error {
	if c.URL == "" {
		return Errorf(EINVALID, "seed URL required")
	}
	u, err := url.Parse(c.URL)
	if err != nil {
		return Errorf(EINVALID, "invalid seed URL %q: %v", c.URL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Errorf(EINVALID, "unsupported seed URL scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return Errorf(EINVALID, "seed URL %q has no host", c.URL)
	}
	if c.MaximumRedirects != nil && *c.MaximumRedirects < 0 {
		return Errorf(EINVALID, "maximum_redirects must not be negative")
	}
	if c.MaximumDepth != nil && *c.MaximumDepth < 0 {
		return Errorf(EINVALID, "maximum_depth must not be negative")
	}
	if c.CrawlDelayMS != nil && *c.CrawlDelayMS < 0 {
		return Errorf(EINVALID, "crawl_delay_ms must not be negative")
	}
	if c.CallbackURL != "" {
		cb, err := url.Parse(c.CallbackURL)
		if err != nil || (cb.Scheme != "http" && cb.Scheme != "https") {
			return Errorf(EINVALID, "invalid callback URL %q", c.CallbackURL)
		}
	}
	return nil
}

// RunState identifies where a run is in its lifecycle.
type RunState string

// Run lifecycle states. Completed and Cancelled are terminal.
const (
	RunStarting  RunState = "starting"
	RunRunning   RunState = "running"
	RunDraining  RunState = "draining"
	RunCompleted RunState = "completed"
	RunCancelled RunState = "cancelled"
)

// Terminal reports whether no further work will happen for a run in this
// state.
func (s RunState) Terminal() bool {
	return s == RunCompleted || s == RunCancelled
}

// RunSnapshot is a point-in-time view of a run's progress.
type RunSnapshot struct {
	ID      uuid.UUID `json:"id"`
	State   RunState  `json:"state"`
	SeedURL string    `json:"seed_url"`

	// Visited counts pages actually fetched, successfully or not.
	// Robots-skipped and cancelled tasks are not visited.
	Visited  int `json:"visited"`
	Pending  int `json:"pending"`
	InFlight int `json:"in_flight"`
	Results  int `json:"results"`
	Failures int `json:"failures"`

	// DroppedDeliveries counts results discarded because the delivery
	// queue was full.
	DroppedDeliveries int `json:"dropped_deliveries"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// Runner starts and manages crawl runs.
type Runner interface {
	// StartRun validates cfg, seeds a new run, and returns its id.
	// Returns EINVALID if the config cannot seed a run.
	StartRun(ctx context.Context, cfg RunConfig) (uuid.UUID, error)

	// CancelRun stops dispatching for a run. In-flight fetches finish
	// normally but emit no results and offer no links.
	// Returns ENOTFOUND if the run does not exist, ECONFLICT if it
	// already reached a terminal state.
	CancelRun(id uuid.UUID) error

	// Snapshot returns the current progress of a run.
	// Returns ENOTFOUND if the run does not exist.
	Snapshot(id uuid.UUID) (*RunSnapshot, error)
}
