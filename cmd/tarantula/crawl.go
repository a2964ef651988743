package main

import (
	"context"
	"encoding/json"
	"io"
	"sync"

	"github.com/google/uuid"

	"tarantula"
)

// CrawlCmd is the "crawl" subcommand.
type CrawlCmd struct {
	URL             string `arg:"" help:"Seed URL to crawl"`
	Depth           int    `short:"d" default:"16" help:"Maximum link depth from the seed"`
	UserAgent       string `default:"tarantula" help:"User agent for requests"`
	Delay           int    `default:"10000" help:"Per-host crawl delay in milliseconds"`
	MaxRedirects    int    `default:"10" help:"Maximum redirects to follow per fetch"`
	IgnoreRedirects bool   `help:"Do not follow redirects"`
	IgnoreRobots    bool   `help:"Ignore robots.txt rules"`
	KeepHTML        bool   `help:"Include page HTML in results"`
}

// Run executes the crawl command. It starts a single run and blocks
// until the run reaches a terminal state, writing each page result to
// stdout as a JSON line.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	// Kong always materializes flag values, so the CLI config has no
	// unset fields: explicit zeros pass through as zeros.
	cfg := tarantula.RunConfig{
		URL:              c.URL,
		MaximumDepth:     &c.Depth,
		UserAgent:        c.UserAgent,
		CrawlDelayMS:     &c.Delay,
		MaximumRedirects: &c.MaxRedirects,
		IgnoreRedirects:  c.IgnoreRedirects,
		IgnoreRobotsTxt:  c.IgnoreRobots,
		KeepHTMLInMemory: c.KeepHTML,
	}

	id, err := deps.Runner.StartRun(deps.Ctx, cfg)
	if err != nil {
		return err
	}

	done, err := deps.Coordinator.Done(id)
	if err != nil {
		return err
	}

	select {
	case <-deps.Ctx.Done():
		// Let in-flight fetches wind down before exiting.
		if err := deps.Runner.CancelRun(id); err == nil {
			<-done
		}
	case <-done:
	}

	snapshot, err := deps.Runner.Snapshot(id)
	if err != nil {
		return err
	}
	deps.Logger.Info("run finished",
		"run_id", id,
		"state", snapshot.State,
		"visited", snapshot.Visited,
		"results", snapshot.Results,
		"failures", snapshot.Failures,
	)
	return nil
}

var _ tarantula.ResultSink = (*writerSink)(nil)

// writerSink writes page results to an io.Writer as JSON lines.
type writerSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

func newWriterSink(w io.Writer) *writerSink {
	return &writerSink{enc: json.NewEncoder(w)}
}

func (s *writerSink) Deliver(_ context.Context, _ tarantula.RunConfig, result *tarantula.PageResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(result)
}

func (s *writerSink) Complete(context.Context, tarantula.RunConfig, uuid.UUID) error {
	return nil
}
