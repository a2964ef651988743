package tarantula

import "time"

// HostLimiter enforces per-host politeness: a bounded number of concurrent
// in-flight requests per host and a minimum gap between successive requests
// to the same host. State is keyed by host and shared across runs.
type HostLimiter interface {
	// TryAcquire attempts to claim a request slot for host, asking for at
	// least delay between successive grants. It never blocks: when denied
	// it returns a hint for how long the caller should wait before
	// retrying, so a worker can serve a different host instead of idling.
	TryAcquire(host string, delay time.Duration) (ok bool, retryAfter time.Duration)

	// Release returns a previously acquired slot. It must be called
	// exactly once per successful TryAcquire, on every exit path.
	Release(host string)
}
