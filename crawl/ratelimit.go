package crawl

import (
	"sync"
	"time"

	"tarantula"

	"golang.org/x/time/rate"
)

// DefaultHostConcurrency is the per-host in-flight request cap when none is
// configured.
const DefaultHostConcurrency = 2

// concurrencyRetryHint is the wait suggested when a host is denied for being
// at its concurrency cap and no delay-based hint applies.
const concurrencyRetryHint = 100 * time.Millisecond

var _ tarantula.HostLimiter = (*HostLimiter)(nil)

// HostLimiter enforces per-host politeness using token buckets. Each host
// gets its own limiter paced at the requested inter-request gap, plus a cap
// on concurrent in-flight requests. State is shared across runs so
// politeness applies process-wide.
type HostLimiter struct {
	maxConcurrent int

	mu    sync.Mutex
	hosts map[string]*hostState
}

type hostState struct {
	limiter  *rate.Limiter
	delay    time.Duration
	inFlight int
}

// NewHostLimiter creates a limiter capping each host at maxConcurrent
// simultaneous requests. Non-positive values use DefaultHostConcurrency.
func NewHostLimiter(maxConcurrent int) *HostLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultHostConcurrency
	}
	return &HostLimiter{
		maxConcurrent: maxConcurrent,
		hosts:         make(map[string]*hostState),
	}
}

// TryAcquire attempts to claim a request slot for host with at least delay
// between successive grants. It never blocks; when denied it returns how
// long the caller should wait before retrying.
func (l *HostLimiter) TryAcquire(host string, delay time.Duration) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	hs, ok := l.hosts[host]
	if !ok {
		hs = &hostState{
			limiter: rate.NewLimiter(limitFor(delay), 1),
			delay:   delay,
		}
		l.hosts[host] = hs
	} else if hs.delay != delay {
		// Robots crawl-delay or run config can change the effective gap.
		hs.limiter.SetLimit(limitFor(delay))
		hs.delay = delay
	}

	if hs.inFlight >= l.maxConcurrent {
		hint := delay
		if hint <= 0 {
			hint = concurrencyRetryHint
		}
		return false, hint
	}

	now := time.Now()
	res := hs.limiter.ReserveN(now, 1)
	if !res.OK() {
		return false, delay
	}
	if wait := res.DelayFrom(now); wait > 0 {
		// Returning the token immediately leaves the bucket untouched.
		res.CancelAt(now)
		return false, wait
	}

	hs.inFlight++
	return true, 0
}

// Release returns a previously acquired slot for host.
func (l *HostLimiter) Release(host string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if hs, ok := l.hosts[host]; ok && hs.inFlight > 0 {
		hs.inFlight--
	}
}

func limitFor(delay time.Duration) rate.Limit {
	if delay <= 0 {
		return rate.Inf
	}
	return rate.Every(delay)
}
