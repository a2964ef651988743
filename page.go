package tarantula

import (
	"time"

	"github.com/google/uuid"
)

// PageStatus classifies the terminal outcome of a fetch attempt.
type PageStatus string

// Fetch outcome classifications. A page failing with any of these does not
// halt the run; its children are simply never discovered.
const (
	StatusOK              PageStatus = "ok"
	StatusHTTPError       PageStatus = "http_error"
	StatusTimeout         PageStatus = "timeout"
	StatusConnectionError PageStatus = "connection_error"
	StatusRedirectLimit   PageStatus = "redirect_limit"
)

// Redirect records a single redirect hop observed while fetching a page.
type Redirect struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	StatusCode  int    `json:"status_code"`
}

// PageResult is emitted once per fetch attempt that reached a terminal
// outcome. It is immutable once emitted.
type PageResult struct {
	ID     uuid.UUID  `json:"id"`
	RunID  uuid.UUID  `json:"run_id"`
	URL    string     `json:"url"`
	Status PageStatus `json:"status"`

	// FinalURL is the URL after redirects; equal to URL when none were
	// followed.
	FinalURL string `json:"final_url"`

	// StatusCode is the HTTP status of the final response, 0 when the
	// fetch never produced one.
	StatusCode int `json:"status_code,omitempty"`

	// Depth is the link-hop distance from the seed.
	Depth int `json:"depth"`

	// Links holds the normalized outbound links discovered on the page.
	Links []string `json:"links,omitempty"`

	// Redirects is the hop chain followed to reach FinalURL.
	Redirects []Redirect `json:"redirects,omitempty"`

	// ContentHash is an xxhash of the page body, empty on failure.
	ContentHash string `json:"content_hash,omitempty"`

	// Content is the raw body, populated only when the run was configured
	// with keep_html_in_memory.
	Content string `json:"content,omitempty"`

	FetchedAt time.Time     `json:"fetched_at"`
	Duration  time.Duration `json:"duration"`
}

// Failed reports whether the fetch reached a terminal failure.
func (r *PageResult) Failed() bool {
	return r.Status != StatusOK
}
