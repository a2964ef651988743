// Package crawl provides the crawl orchestration core: the URL frontier,
// per-host politeness enforcement, and the coordinator that drives the
// fetch → extract → enqueue cycle for each run until it drains.
package crawl

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"tarantula"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	// takePollInterval is how long the dispatch loop sleeps when no task
	// is currently eligible.
	takePollInterval = 10 * time.Millisecond

	// defaultFetchTimeout bounds a single page fetch end to end.
	defaultFetchTimeout = 30 * time.Second

	// deliveryTimeout bounds a single callback delivery attempt.
	deliveryTimeout = 30 * time.Second

	// defaultDeliveryQueueSize bounds how many undelivered results may
	// accumulate before new ones are dropped.
	defaultDeliveryQueueSize = 256
)

// Compile-time interface verification.
var _ tarantula.Runner = (*Coordinator)(nil)

// Coordinator owns all crawl runs in the process. Per run it pulls eligible
// work from the frontier, gates dispatch on robots rules and host rate
// limits, walks the fetch → extract → enqueue cycle with a bounded worker
// pool, and detects termination: a run drains when nothing is pending and
// nothing is in flight. Robots cache and host limiter state are shared
// across runs.
type Coordinator struct {
	fetcher   tarantula.Fetcher
	extractor tarantula.LinkExtractor
	robots    tarantula.RobotsPolicy
	limiter   tarantula.HostLimiter
	sink      tarantula.ResultSink
	store     tarantula.RunStore
	logger    *slog.Logger

	workers      int
	fetchTimeout time.Duration
	queueSize    int

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	runs   map[uuid.UUID]*run
	closed bool

	deliveries chan delivery
	deliverWG  sync.WaitGroup
}

// CoordinatorOption configures a Coordinator.
type CoordinatorOption func(*Coordinator)

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) CoordinatorOption {
	return func(c *Coordinator) { c.logger = logger }
}

// WithWorkers sets the worker pool size per run. Defaults to the number of
// CPUs.
func WithWorkers(n int) CoordinatorOption {
	return func(c *Coordinator) { c.workers = n }
}

// WithFetchTimeout bounds a single page fetch. Defaults to 30s.
func WithFetchTimeout(d time.Duration) CoordinatorOption {
	return func(c *Coordinator) { c.fetchTimeout = d }
}

// WithRunStore archives runs and page outcomes to store. Archive failures
// are logged, never fatal.
func WithRunStore(store tarantula.RunStore) CoordinatorOption {
	return func(c *Coordinator) { c.store = store }
}

// WithDeliveryQueueSize bounds the async delivery queue.
func WithDeliveryQueueSize(n int) CoordinatorOption {
	return func(c *Coordinator) { c.queueSize = n }
}

// NewCoordinator creates a Coordinator and starts its delivery worker.
// Callers must Close it to release the worker.
func NewCoordinator(
	fetcher tarantula.Fetcher,
	extractor tarantula.LinkExtractor,
	robots tarantula.RobotsPolicy,
	limiter tarantula.HostLimiter,
	sink tarantula.ResultSink,
	opts ...CoordinatorOption,
) *Coordinator {
	c := &Coordinator{
		fetcher:      fetcher,
		extractor:    extractor,
		robots:       robots,
		limiter:      limiter,
		sink:         sink,
		workers:      runtime.NumCPU(),
		fetchTimeout: defaultFetchTimeout,
		queueSize:    defaultDeliveryQueueSize,
		runs:         make(map[uuid.UUID]*run),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.workers <= 0 {
		c.workers = runtime.NumCPU()
	}
	if c.queueSize <= 0 {
		c.queueSize = defaultDeliveryQueueSize
	}

	c.ctx, c.cancel = context.WithCancel(context.Background())
	c.deliveries = make(chan delivery, c.queueSize)
	c.deliverWG.Add(1)
	go c.deliverLoop()

	return c
}

// run tracks per-run state: config, frontier, lifecycle, and counters.
type run struct {
	id       uuid.UUID
	cfg      tarantula.RunConfig
	frontier tarantula.Frontier
	done     chan struct{}

	mu         sync.Mutex
	state      tarantula.RunState
	cancelled  bool
	results    int
	failures   int
	dropped    int
	startedAt  time.Time
	finishedAt time.Time
}

func (r *run) canceled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// setState transitions the run unless it already reached a terminal state.
func (r *run) setState(s tarantula.RunState) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state.Terminal() || r.state == s {
		return false
	}
	r.state = s
	return true
}

// delivery is one unit of work for the delivery queue. A nil result is a
// run-completion event.
type delivery struct {
	cfg    tarantula.RunConfig
	runID  uuid.UUID
	result *tarantula.PageResult
}

// StartRun validates cfg, seeds a new run at depth 0, and launches its
// dispatch loop. The passed context only scopes validation and archive
// writes; the run itself outlives it.
func (c *Coordinator) StartRun(ctx context.Context, cfg tarantula.RunConfig) (uuid.UUID, error) {
	cfg = cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return uuid.Nil, err
	}

	id := uuid.New()
	r := &run{
		id:        id,
		cfg:       cfg,
		frontier:  NewFrontier(id, cfg.MaxDepth()),
		done:      make(chan struct{}),
		state:     tarantula.RunStarting,
		startedAt: time.Now(),
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return uuid.Nil, tarantula.Errorf(tarantula.EUNAVAILABLE, "coordinator is shut down")
	}
	c.runs[id] = r
	c.mu.Unlock()

	if adm := r.frontier.Offer(cfg.URL, 0); !adm.Accepted() {
		c.mu.Lock()
		delete(c.runs, id)
		c.mu.Unlock()
		return uuid.Nil, tarantula.Errorf(tarantula.EINVALID, "seed URL %q rejected: %s", cfg.URL, adm)
	}

	if c.store != nil {
		if err := c.store.CreateRun(ctx, id, cfg); err != nil {
			c.logger.Warn("run archive create failed", "run_id", id, "error", err)
		}
	}

	r.setState(tarantula.RunRunning)
	c.recordState(id, tarantula.RunRunning)
	c.logger.Info("run started", "run_id", id, "seed", cfg.URL, "max_depth", cfg.MaxDepth())

	go c.runLoop(r)
	return id, nil
}

// CancelRun stops dispatching for a run. In-flight fetches finish normally
// but emit no results and offer no links.
func (c *Coordinator) CancelRun(id uuid.UUID) error {
	c.mu.Lock()
	r, ok := c.runs[id]
	c.mu.Unlock()
	if !ok {
		return tarantula.Errorf(tarantula.ENOTFOUND, "run %q not found", id)
	}

	r.mu.Lock()
	if r.state.Terminal() {
		r.mu.Unlock()
		return tarantula.Errorf(tarantula.ECONFLICT, "run %q already %s", id, r.state)
	}
	r.cancelled = true
	r.state = tarantula.RunCancelled
	r.mu.Unlock()

	c.logger.Info("run cancelled", "run_id", id)
	return nil
}

// Snapshot returns the current progress of a run.
func (c *Coordinator) Snapshot(id uuid.UUID) (*tarantula.RunSnapshot, error) {
	c.mu.Lock()
	r, ok := c.runs[id]
	c.mu.Unlock()
	if !ok {
		return nil, tarantula.Errorf(tarantula.ENOTFOUND, "run %q not found", id)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	// The frontier is released once the run reaches a terminal state;
	// nothing is pending or in flight by then.
	var stats tarantula.FrontierStats
	if r.frontier != nil {
		stats = r.frontier.Stats()
	}
	return &tarantula.RunSnapshot{
		ID:                r.id,
		State:             r.state,
		SeedURL:           r.cfg.URL,
		Visited:           r.results + r.failures,
		Pending:           stats.Pending,
		InFlight:          stats.InFlight,
		Results:           r.results,
		Failures:          r.failures,
		DroppedDeliveries: r.dropped,
		StartedAt:         r.startedAt,
		FinishedAt:        r.finishedAt,
	}, nil
}

// Done returns a channel closed when the run reaches a terminal state.
func (c *Coordinator) Done(id uuid.UUID) (<-chan struct{}, error) {
	c.mu.Lock()
	r, ok := c.runs[id]
	c.mu.Unlock()
	if !ok {
		return nil, tarantula.Errorf(tarantula.ENOTFOUND, "run %q not found", id)
	}
	return r.done, nil
}

// Close cancels all non-terminal runs, waits for their workers, and stops
// the delivery queue.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	var runs []*run
	for _, r := range c.runs {
		runs = append(runs, r)
	}
	c.mu.Unlock()

	c.cancel()
	for _, r := range runs {
		<-r.done
	}
	close(c.deliveries)
	c.deliverWG.Wait()
	return nil
}

// runLoop dispatches eligible tasks to the worker pool until the run drains
// or is cancelled. It holds no locks while waiting: dispatch pressure only
// blocks on the pool's own limit.
func (c *Coordinator) runLoop(r *run) {
	g := new(errgroup.Group)
	g.SetLimit(c.workers)

	for {
		if c.ctx.Err() != nil {
			r.mu.Lock()
			r.cancelled = true
			r.state = tarantula.RunCancelled
			r.mu.Unlock()
			break
		}
		if r.canceled() {
			break
		}

		task, ok := r.frontier.Take()
		if !ok {
			stats := r.frontier.Stats()
			if stats.Pending == 0 && stats.InFlight == 0 {
				break
			}
			// Frontier looks empty but fetches are still in flight;
			// they may offer new links and reopen the run.
			if stats.Pending == 0 {
				if r.setState(tarantula.RunDraining) {
					c.logger.Debug("run draining", "run_id", r.id)
				}
			}
			select {
			case <-time.After(takePollInterval):
			case <-c.ctx.Done():
			}
			continue
		}

		r.setState(tarantula.RunRunning)
		g.Go(func() error {
			c.process(c.ctx, r, task)
			return nil
		})
	}

	_ = g.Wait()
	c.finish(r)
}

// finish records the terminal state and emits the completion event after all
// of the run's results were enqueued.
func (c *Coordinator) finish(r *run) {
	r.mu.Lock()
	if !r.state.Terminal() {
		r.state = tarantula.RunCompleted
	}
	r.finishedAt = time.Now()
	state := r.state
	results, failures := r.results, r.failures
	// All workers are done; drop the frontier so its seen-filter and
	// queues don't outlive the run. Counters stay for Snapshot.
	r.frontier = nil
	r.mu.Unlock()

	c.recordState(r.id, state)
	c.logger.Info("run finished",
		"run_id", r.id,
		"state", state,
		"results", results,
		"failures", failures,
	)

	// The completion event must not be dropped; block if the queue is
	// momentarily full.
	select {
	case c.deliveries <- delivery{cfg: r.cfg, runID: r.id}:
	case <-c.ctx.Done():
	}
	close(r.done)
}

// process handles one task: robots gate, rate-limit gate, fetch, extract,
// offer children, emit the result. Links are offered before the task is
// retired so the frontier never looks drained while expansion is pending.
func (c *Coordinator) process(ctx context.Context, r *run, task *tarantula.CrawlTask) {
	if r.canceled() || ctx.Err() != nil {
		r.frontier.MarkDone(task)
		return
	}

	ua := r.cfg.UserAgent

	if !r.cfg.IgnoreRobotsTxt && !c.robots.Allowed(ctx, task.URL, ua) {
		c.logger.Debug("blocked by robots.txt", "run_id", r.id, "url", task.URL)
		r.frontier.MarkDone(task)
		return
	}

	delay := r.cfg.CrawlDelay()
	if !r.cfg.IgnoreRobotsTxt {
		if rd := c.robots.CrawlDelay(ctx, task.URL, ua); rd > delay {
			delay = rd
		}
	}

	ok, retryAfter := c.limiter.TryAcquire(task.Host(), delay)
	if !ok {
		// Not an error: hand the slot back and serve another host.
		r.frontier.Requeue(task, retryAfter)
		return
	}

	fctx, cancel := context.WithTimeout(ctx, c.fetchTimeout)
	res, err := c.fetcher.Fetch(fctx, tarantula.FetchRequest{
		URL:              task.URL,
		UserAgent:        ua,
		MaximumRedirects: r.cfg.MaxRedirects(),
		IgnoreRedirects:  r.cfg.IgnoreRedirects,
	})
	cancel()
	c.limiter.Release(task.Host())

	if r.canceled() {
		r.frontier.MarkDone(task)
		return
	}

	result := c.buildResult(r, task, res, err)

	if result.Status == tarantula.StatusOK && task.Depth < r.cfg.MaxDepth() {
		for _, link := range result.Links {
			r.frontier.Offer(link, task.Depth+1)
		}
	}

	c.emit(r, result)
	r.frontier.MarkDone(task)
}

// buildResult folds a fetch outcome into an immutable PageResult.
func (c *Coordinator) buildResult(r *run, task *tarantula.CrawlTask, res *tarantula.FetchResult, err error) *tarantula.PageResult {
	result := &tarantula.PageResult{
		ID:        uuid.New(),
		RunID:     r.id,
		URL:       task.URL.String(),
		FinalURL:  task.URL.String(),
		Depth:     task.Depth,
		FetchedAt: time.Now(),
	}

	if err != nil {
		result.Status = tarantula.ClassifyFetchError(err)
		c.logger.Debug("fetch failed", "run_id", r.id, "url", result.URL, "status", result.Status, "error", err)
		return result
	}

	result.FinalURL = res.FinalURL.String()
	result.StatusCode = res.StatusCode
	result.Redirects = res.Redirects
	result.Duration = res.Duration

	if !res.OK() {
		result.Status = tarantula.StatusHTTPError
		return result
	}

	result.Status = tarantula.StatusOK
	result.ContentHash = hashContent(res.Body)
	if r.cfg.KeepHTMLInMemory {
		result.Content = res.Body
	}

	links, lerr := c.extractor.ExtractLinks(res.FinalURL, res.Body)
	if lerr != nil {
		c.logger.Warn("link extraction failed", "run_id", r.id, "url", result.FinalURL, "error", lerr)
		return result
	}
	result.Links = links
	return result
}

// emit counts the result, archives it, and hands it to the delivery queue
// without ever blocking the worker.
func (c *Coordinator) emit(r *run, result *tarantula.PageResult) {
	r.mu.Lock()
	if result.Failed() {
		r.failures++
	} else {
		r.results++
	}
	r.mu.Unlock()

	if c.store != nil {
		if err := c.store.RecordResult(context.WithoutCancel(c.ctx), result); err != nil {
			c.logger.Warn("result archive failed", "run_id", r.id, "url", result.URL, "error", err)
		}
	}

	select {
	case c.deliveries <- delivery{cfg: r.cfg, runID: r.id, result: result}:
	default:
		r.mu.Lock()
		r.dropped++
		r.mu.Unlock()
		c.logger.Warn("delivery queue full, dropping result", "run_id", r.id, "url", result.URL)
	}
}

// deliverLoop is the delivery worker: it drains the queue, one destination
// call at a time, so callback latency never backs up into crawling.
func (c *Coordinator) deliverLoop() {
	defer c.deliverWG.Done()
	for d := range c.deliveries {
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		var err error
		if d.result == nil {
			err = c.sink.Complete(ctx, d.cfg, d.runID)
		} else {
			err = c.sink.Deliver(ctx, d.cfg, d.result)
		}
		cancel()
		if err != nil {
			c.logger.Warn("delivery failed", "run_id", d.runID, "error", err)
		}
	}
}

// recordState archives a lifecycle transition when a store is configured.
func (c *Coordinator) recordState(id uuid.UUID, state tarantula.RunState) {
	if c.store == nil {
		return
	}
	if err := c.store.UpdateRunState(context.WithoutCancel(c.ctx), id, state); err != nil {
		c.logger.Warn("run archive update failed", "run_id", id, "error", err)
	}
}

func hashContent(content string) string {
	return fmt.Sprintf("%x", xxhash.Sum64String(content))
}
