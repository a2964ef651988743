// Package mock provides hand-written mocks for tarantula service
// interfaces, used in tests.
package mock

import (
	"context"
	"net/url"
	"time"

	"tarantula"

	"github.com/google/uuid"
)

var _ tarantula.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of tarantula.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, req tarantula.FetchRequest) (*tarantula.FetchResult, error)
}

func (f *Fetcher) Fetch(ctx context.Context, req tarantula.FetchRequest) (*tarantula.FetchResult, error) {
	return f.FetchFn(ctx, req)
}

var _ tarantula.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor is a mock implementation of tarantula.LinkExtractor.
type LinkExtractor struct {
	ExtractLinksFn func(base *url.URL, html string) ([]string, error)
}

func (e *LinkExtractor) ExtractLinks(base *url.URL, html string) ([]string, error) {
	return e.ExtractLinksFn(base, html)
}

var _ tarantula.RobotsPolicy = (*RobotsPolicy)(nil)

// RobotsPolicy is a mock implementation of tarantula.RobotsPolicy.
type RobotsPolicy struct {
	AllowedFn    func(ctx context.Context, u *url.URL, userAgent string) bool
	CrawlDelayFn func(ctx context.Context, u *url.URL, userAgent string) time.Duration
}

func (p *RobotsPolicy) Allowed(ctx context.Context, u *url.URL, userAgent string) bool {
	return p.AllowedFn(ctx, u, userAgent)
}

func (p *RobotsPolicy) CrawlDelay(ctx context.Context, u *url.URL, userAgent string) time.Duration {
	return p.CrawlDelayFn(ctx, u, userAgent)
}

var _ tarantula.HostLimiter = (*HostLimiter)(nil)

// HostLimiter is a mock implementation of tarantula.HostLimiter.
type HostLimiter struct {
	TryAcquireFn func(host string, delay time.Duration) (bool, time.Duration)
	ReleaseFn    func(host string)
}

func (l *HostLimiter) TryAcquire(host string, delay time.Duration) (bool, time.Duration) {
	return l.TryAcquireFn(host, delay)
}

func (l *HostLimiter) Release(host string) {
	l.ReleaseFn(host)
}

var _ tarantula.ResultSink = (*ResultSink)(nil)

// ResultSink is a mock implementation of tarantula.ResultSink.
type ResultSink struct {
	DeliverFn  func(ctx context.Context, cfg tarantula.RunConfig, result *tarantula.PageResult) error
	CompleteFn func(ctx context.Context, cfg tarantula.RunConfig, runID uuid.UUID) error
}

func (s *ResultSink) Deliver(ctx context.Context, cfg tarantula.RunConfig, result *tarantula.PageResult) error {
	return s.DeliverFn(ctx, cfg, result)
}

func (s *ResultSink) Complete(ctx context.Context, cfg tarantula.RunConfig, runID uuid.UUID) error {
	return s.CompleteFn(ctx, cfg, runID)
}

var _ tarantula.RunStore = (*RunStore)(nil)

// RunStore is a mock implementation of tarantula.RunStore.
type RunStore struct {
	CreateRunFn      func(ctx context.Context, id uuid.UUID, cfg tarantula.RunConfig) error
	UpdateRunStateFn func(ctx context.Context, id uuid.UUID, state tarantula.RunState) error
	RecordResultFn   func(ctx context.Context, result *tarantula.PageResult) error
	FindRunByIDFn    func(ctx context.Context, id uuid.UUID) (*tarantula.RunRecord, error)
}

func (s *RunStore) CreateRun(ctx context.Context, id uuid.UUID, cfg tarantula.RunConfig) error {
	return s.CreateRunFn(ctx, id, cfg)
}

func (s *RunStore) UpdateRunState(ctx context.Context, id uuid.UUID, state tarantula.RunState) error {
	return s.UpdateRunStateFn(ctx, id, state)
}

func (s *RunStore) RecordResult(ctx context.Context, result *tarantula.PageResult) error {
	return s.RecordResultFn(ctx, result)
}

func (s *RunStore) FindRunByID(ctx context.Context, id uuid.UUID) (*tarantula.RunRecord, error) {
	return s.FindRunByIDFn(ctx, id)
}

var _ tarantula.Runner = (*Runner)(nil)

// Runner is a mock implementation of tarantula.Runner.
type Runner struct {
	StartRunFn  func(ctx context.Context, cfg tarantula.RunConfig) (uuid.UUID, error)
	CancelRunFn func(id uuid.UUID) error
	SnapshotFn  func(id uuid.UUID) (*tarantula.RunSnapshot, error)
}

func (r *Runner) StartRun(ctx context.Context, cfg tarantula.RunConfig) (uuid.UUID, error) {
	return r.StartRunFn(ctx, cfg)
}

func (r *Runner) CancelRun(id uuid.UUID) error {
	return r.CancelRunFn(id)
}

func (r *Runner) Snapshot(id uuid.UUID) (*tarantula.RunSnapshot, error) {
	return r.SnapshotFn(id)
}
