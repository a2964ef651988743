// Package slog provides logging decorators for tarantula services.
package slog

import (
	"context"
	"log/slog"
	"time"

	"tarantula"
)

// Ensure Fetcher implements tarantula.Fetcher.
var _ tarantula.Fetcher = (*Fetcher)(nil)

// Fetcher wraps a tarantula.Fetcher with structured request logging.
type Fetcher struct {
	next   tarantula.Fetcher
	logger *slog.Logger
}

// NewFetcher creates a logging Fetcher decorator.
func NewFetcher(next tarantula.Fetcher, logger *slog.Logger) *Fetcher {
	return &Fetcher{next: next, logger: logger}
}

// Fetch delegates to the wrapped fetcher and logs the outcome.
func (f *Fetcher) Fetch(ctx context.Context, req tarantula.FetchRequest) (*tarantula.FetchResult, error) {
	begin := time.Now()
	res, err := f.next.Fetch(ctx, req)
	if err != nil {
		f.logger.Warn("page fetch failed",
			"url", req.URL.String(),
			"status", tarantula.ClassifyFetchError(err),
			"duration", time.Since(begin),
			"error", err,
		)
		return nil, err
	}
	f.logger.Debug("page fetch",
		"url", req.URL.String(),
		"final_url", res.FinalURL.String(),
		"status_code", res.StatusCode,
		"redirects", len(res.Redirects),
		"bytes", len(res.Body),
		"duration", time.Since(begin),
	)
	return res, nil
}
