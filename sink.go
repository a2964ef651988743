package tarantula

import (
	"context"

	"github.com/google/uuid"
)

// ResultSink delivers crawl results to an external consumer. Delivery runs
// off the fetch critical path; a slow or unreachable destination must never
// stall crawling. The owning run's config is passed with every call so
// implementations can resolve the destination and user agent per run.
type ResultSink interface {
	// Deliver pushes one page result to the destination.
	Deliver(ctx context.Context, cfg RunConfig, result *PageResult) error

	// Complete signals that a run reached a terminal state and no further
	// results will follow for it.
	Complete(ctx context.Context, cfg RunConfig, runID uuid.UUID) error
}
