package tarantula

import (
	"net/url"
	"time"

	"github.com/google/uuid"
)

// CrawlTask is a discovered URL bound to its discovery depth and run.
// A task is consumed exactly once by a worker.
type CrawlTask struct {
	RunID uuid.UUID

	// URL is the normalized absolute URL to fetch.
	URL *url.URL

	// Depth is the link-hop distance from the seed.
	Depth int
}

// Host returns the task URL's host, the key for politeness state.
func (t *CrawlTask) Host() string {
	return t.URL.Host
}

// Admission is the frontier's verdict on an offered URL. Rejections are
// normal filtering outcomes, not errors.
type Admission int

// Admission verdicts.
const (
	AdmissionAccepted Admission = iota
	AdmissionDuplicate
	AdmissionDepthExceeded
	AdmissionUnsupportedScheme
	AdmissionMalformed
)

// Accepted reports whether the URL was admitted to the queue.
func (a Admission) Accepted() bool {
	return a == AdmissionAccepted
}

// String implements fmt.Stringer.
func (a Admission) String() string {
	switch a {
	case AdmissionAccepted:
		return "accepted"
	case AdmissionDuplicate:
		return "duplicate"
	case AdmissionDepthExceeded:
		return "depth_exceeded"
	case AdmissionUnsupportedScheme:
		return "unsupported_scheme"
	case AdmissionMalformed:
		return "malformed"
	}
	return "unknown"
}

// FrontierStats is a point-in-time view of frontier bookkeeping. Tasks that
// were taken and retired are not counted here; whether a retired task was
// actually fetched is the caller's bookkeeping.
type FrontierStats struct {
	Pending  int
	InFlight int
}

// Frontier manages the crawl queue for a single run: URLs discovered but not
// yet visited, plus bookkeeping of what has been visited and what is in
// flight. Implementations must be safe for concurrent use.
type Frontier interface {
	// Offer proposes a URL at the given depth. The URL is normalized
	// before admission; two URLs normalizing identically are the same
	// frontier entry.
	Offer(rawURL string, depth int) Admission

	// Take removes the next dispatchable task and marks it in flight.
	// Host fairness is the implementation's concern: one host with many
	// queued links must not starve others. Returns false when no task is
	// currently dispatchable.
	Take() (*CrawlTask, bool)

	// Requeue returns an in-flight task to the queue, to be retried no
	// sooner than delay from now. Used when the host's rate limit denied
	// a slot.
	Requeue(task *CrawlTask, delay time.Duration)

	// MarkDone retires an in-flight task.
	MarkDone(task *CrawlTask)

	// Idle reports whether nothing is pending and nothing is in flight.
	Idle() bool

	// Stats returns current bookkeeping counts.
	Stats() FrontierStats
}
