package crawl

import (
	"sync"
	"time"

	"tarantula"
	"tarantula/bloom"

	"github.com/google/uuid"
)

// Frontier sizing for the seen-filter.
const (
	// frontierExpectedURLs is the expected number of URLs for Bloom filter
	// sizing.
	frontierExpectedURLs = 100000
	// frontierFalsePositiveRate is the acceptable false positive rate for
	// deduplication.
	frontierFalsePositiveRate = 0.001
)

// Compile-time interface verification.
var _ tarantula.Frontier = (*Frontier)(nil)

// Frontier is an in-memory URL frontier for one run. Pending tasks are
// grouped by host and drawn round-robin so one link-heavy host cannot starve
// the others. Deduplication uses a Bloom filter over normalized URLs. Safe
// for concurrent use by multiple goroutines.
type Frontier struct {
	runID    uuid.UUID
	maxDepth int

	mu       sync.Mutex
	seen     *bloom.Filter
	queues   map[string]*hostQueue
	ring     []string
	cursor   int
	pending  int
	inFlight int
}

// hostQueue holds one host's pending tasks in FIFO order. notBefore delays
// dispatch for the whole host after a rate-limit denial.
type hostQueue struct {
	tasks     []*tarantula.CrawlTask
	notBefore time.Time
}

// NewFrontier creates an empty frontier for the given run, rejecting offers
// deeper than maxDepth.
func NewFrontier(runID uuid.UUID, maxDepth int) *Frontier {
	return &Frontier{
		runID:    runID,
		maxDepth: maxDepth,
		seen:     bloom.NewFilter(frontierExpectedURLs, frontierFalsePositiveRate),
		queues:   make(map[string]*hostQueue),
	}
}

// Offer proposes a URL at the given depth.
func (f *Frontier) Offer(rawURL string, depth int) tarantula.Admission {
	u, err := tarantula.ParseURL(rawURL)
	if err != nil {
		return tarantula.AdmissionMalformed
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return tarantula.AdmissionUnsupportedScheme
	}
	if u.Host == "" {
		return tarantula.AdmissionMalformed
	}
	if depth > f.maxDepth {
		return tarantula.AdmissionDepthExceeded
	}

	key := u.String()

	f.mu.Lock()
	defer f.mu.Unlock()

	if f.seen.Has(key) {
		return tarantula.AdmissionDuplicate
	}
	f.seen.Add(key)

	q, ok := f.queues[u.Host]
	if !ok {
		q = &hostQueue{}
		f.queues[u.Host] = q
		f.ring = append(f.ring, u.Host)
	}
	q.tasks = append(q.tasks, &tarantula.CrawlTask{
		RunID: f.runID,
		URL:   u,
		Depth: depth,
	})
	f.pending++
	return tarantula.AdmissionAccepted
}

// Take removes the next dispatchable task and marks it in flight. Hosts are
// scanned round-robin from the position after the last draw; hosts inside a
// backoff window are skipped.
func (f *Frontier) Take() (*tarantula.CrawlTask, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.pending == 0 || len(f.ring) == 0 {
		return nil, false
	}

	now := time.Now()
	for i := range f.ring {
		idx := (f.cursor + i) % len(f.ring)
		q := f.queues[f.ring[idx]]
		if len(q.tasks) == 0 || q.notBefore.After(now) {
			continue
		}
		task := q.tasks[0]
		q.tasks = q.tasks[1:]
		f.cursor = (idx + 1) % len(f.ring)
		f.pending--
		f.inFlight++
		return task, true
	}
	return nil, false
}

// Requeue returns an in-flight task to the front of its host queue and
// delays the whole host by at least delay.
func (f *Frontier) Requeue(task *tarantula.CrawlTask, delay time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()

	q, ok := f.queues[task.URL.Host]
	if !ok {
		q = &hostQueue{}
		f.queues[task.URL.Host] = q
		f.ring = append(f.ring, task.URL.Host)
	}
	q.tasks = append([]*tarantula.CrawlTask{task}, q.tasks...)
	if until := time.Now().Add(delay); until.After(q.notBefore) {
		q.notBefore = until
	}
	f.pending++
	f.inFlight--
}

// MarkDone retires an in-flight task.
func (f *Frontier) MarkDone(task *tarantula.CrawlTask) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.inFlight--
}

// Idle reports whether nothing is pending and nothing is in flight.
func (f *Frontier) Idle() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pending == 0 && f.inFlight == 0
}

// Stats returns current bookkeeping counts.
func (f *Frontier) Stats() tarantula.FrontierStats {
	f.mu.Lock()
	defer f.mu.Unlock()
	return tarantula.FrontierStats{
		Pending:  f.pending,
		InFlight: f.inFlight,
	}
}
