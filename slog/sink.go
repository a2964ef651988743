package slog

import (
	"context"
	"log/slog"
	"time"

	"tarantula"

	"github.com/google/uuid"
)

// Ensure Sink implements tarantula.ResultSink.
var _ tarantula.ResultSink = (*Sink)(nil)

// Sink wraps a tarantula.ResultSink with delivery logging.
type Sink struct {
	next   tarantula.ResultSink
	logger *slog.Logger
}

// NewSink creates a logging ResultSink decorator.
func NewSink(next tarantula.ResultSink, logger *slog.Logger) *Sink {
	return &Sink{next: next, logger: logger}
}

// Deliver delegates to the wrapped sink and logs the outcome.
func (s *Sink) Deliver(ctx context.Context, cfg tarantula.RunConfig, result *tarantula.PageResult) error {
	begin := time.Now()
	err := s.next.Deliver(ctx, cfg, result)
	if err != nil {
		s.logger.Warn("result delivery failed",
			"run_id", result.RunID,
			"url", result.URL,
			"duration", time.Since(begin),
			"error", err,
		)
		return err
	}
	s.logger.Debug("result delivered",
		"run_id", result.RunID,
		"url", result.URL,
		"page_status", result.Status,
		"duration", time.Since(begin),
	)
	return nil
}

// Complete delegates to the wrapped sink and logs the outcome.
func (s *Sink) Complete(ctx context.Context, cfg tarantula.RunConfig, runID uuid.UUID) error {
	err := s.next.Complete(ctx, cfg, runID)
	if err != nil {
		s.logger.Warn("completion delivery failed", "run_id", runID, "error", err)
		return err
	}
	s.logger.Debug("completion delivered", "run_id", runID)
	return nil
}
