package tarantula

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunRecord is an archived run.
type RunRecord struct {
	ID        uuid.UUID `json:"id"`
	SeedURL   string    `json:"seed_url"`
	State     RunState  `json:"state"`
	Results   int       `json:"results"`
	Failures  int       `json:"failures"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RunStore archives run lifecycle and per-page outcomes so run history
// survives beyond the in-memory coordinator state.
type RunStore interface {
	// CreateRun records an accepted run.
	CreateRun(ctx context.Context, id uuid.UUID, cfg RunConfig) error

	// UpdateRunState records a lifecycle transition.
	// Returns ENOTFOUND if the run was never created.
	UpdateRunState(ctx context.Context, id uuid.UUID, state RunState) error

	// RecordResult archives one page outcome.
	RecordResult(ctx context.Context, result *PageResult) error

	// FindRunByID retrieves an archived run.
	// Returns ENOTFOUND if the run does not exist.
	FindRunByID(ctx context.Context, id uuid.UUID) (*RunRecord, error)
}
