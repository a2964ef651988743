package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"tarantula"

	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ tarantula.RunStore = (*RunStore)(nil)

// RunStore archives crawl runs and per-page outcomes in SQLite.
type RunStore struct {
	db *DB
}

// NewRunStore creates a RunStore backed by db.
func NewRunStore(db *DB) *RunStore {
	return &RunStore{db: db}
}

// CreateRun records an accepted run in the starting state's row.
func (s *RunStore) CreateRun(ctx context.Context, id uuid.UUID, cfg tarantula.RunConfig) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, seed_url, user_agent, callback_url, maximum_depth, state, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id.String(), cfg.URL, cfg.UserAgent, cfg.CallbackURL, cfg.MaxDepth(),
		string(tarantula.RunStarting), now, now,
	)
	if err != nil {
		return tarantula.Errorf(tarantula.EINTERNAL, "create run: %v", err)
	}
	return nil
}

// UpdateRunState records a lifecycle transition.
func (s *RunStore) UpdateRunState(ctx context.Context, id uuid.UUID, state tarantula.RunState) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET state = ?, updated_at = ? WHERE id = ?`,
		string(state), now, id.String(),
	)
	if err != nil {
		return tarantula.Errorf(tarantula.EINTERNAL, "update run state: %v", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return tarantula.Errorf(tarantula.ENOTFOUND, "run %q not found", id)
	}
	return nil
}

// RecordResult archives one page outcome. The raw content is never stored;
// only its hash survives.
func (s *RunStore) RecordResult(ctx context.Context, result *tarantula.PageResult) error {
	links, err := json.Marshal(result.Links)
	if err != nil {
		return tarantula.Errorf(tarantula.EINTERNAL, "encode links: %v", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO page_results (id, run_id, url, final_url, status, status_code, depth, links, content_hash, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		result.ID.String(), result.RunID.String(), result.URL, result.FinalURL,
		string(result.Status), result.StatusCode, result.Depth, string(links),
		result.ContentHash, result.FetchedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return tarantula.Errorf(tarantula.EINTERNAL, "record result: %v", err)
	}
	return nil
}

// FindRunByID retrieves an archived run together with its result counts.
func (s *RunStore) FindRunByID(ctx context.Context, id uuid.UUID) (*tarantula.RunRecord, error) {
	var (
		rec              tarantula.RunRecord
		rawID            string
		state            string
		created, updated string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT r.id, r.seed_url, r.state, r.created_at, r.updated_at,
			COUNT(CASE WHEN p.status = 'ok' THEN 1 END),
			COUNT(CASE WHEN p.status IS NOT NULL AND p.status != 'ok' THEN 1 END)
		FROM runs r
		LEFT JOIN page_results p ON p.run_id = r.id
		WHERE r.id = ?
		GROUP BY r.id`,
		id.String(),
	).Scan(&rawID, &rec.SeedURL, &state, &created, &updated, &rec.Results, &rec.Failures)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, tarantula.Errorf(tarantula.ENOTFOUND, "run %q not found", id)
	} else if err != nil {
		return nil, tarantula.Errorf(tarantula.EINTERNAL, "find run: %v", err)
	}

	rec.ID, err = uuid.Parse(rawID)
	if err != nil {
		return nil, tarantula.Errorf(tarantula.EINTERNAL, "parse run id: %v", err)
	}
	rec.State = tarantula.RunState(state)
	if rec.CreatedAt, err = time.Parse(time.RFC3339, created); err != nil {
		return nil, tarantula.Errorf(tarantula.EINTERNAL, "parse created_at: %v", err)
	}
	if rec.UpdatedAt, err = time.Parse(time.RFC3339, updated); err != nil {
		return nil, tarantula.Errorf(tarantula.EINTERNAL, "parse updated_at: %v", err)
	}
	return &rec, nil
}
