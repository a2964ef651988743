package crawl

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarantula"
	"tarantula/mock"
)

func TestCoordinator_releases_frontier_after_terminal_state(t *testing.T) {
	t.Parallel()

	fetcher := &mock.Fetcher{
		FetchFn: func(_ context.Context, req tarantula.FetchRequest) (*tarantula.FetchResult, error) {
			return &tarantula.FetchResult{FinalURL: req.URL, StatusCode: 200}, nil
		},
	}
	extractor := &mock.LinkExtractor{
		ExtractLinksFn: func(*url.URL, string) ([]string, error) { return nil, nil },
	}
	robots := &mock.RobotsPolicy{
		AllowedFn:    func(context.Context, *url.URL, string) bool { return true },
		CrawlDelayFn: func(context.Context, *url.URL, string) time.Duration { return 0 },
	}
	limiter := &mock.HostLimiter{
		TryAcquireFn: func(string, time.Duration) (bool, time.Duration) { return true, 0 },
		ReleaseFn:    func(string) {},
	}
	sink := &mock.ResultSink{
		DeliverFn:  func(context.Context, tarantula.RunConfig, *tarantula.PageResult) error { return nil },
		CompleteFn: func(context.Context, tarantula.RunConfig, uuid.UUID) error { return nil },
	}

	c := NewCoordinator(fetcher, extractor, robots, limiter, sink)
	defer c.Close()

	id, err := c.StartRun(context.Background(), tarantula.RunConfig{URL: "https://example.com/"})
	require.NoError(t, err)

	done, err := c.Done(id)
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish in time")
	}

	c.mu.Lock()
	r := c.runs[id]
	c.mu.Unlock()
	require.NotNil(t, r)

	r.mu.Lock()
	defer r.mu.Unlock()
	assert.Nil(t, r.frontier, "terminal runs must not pin their frontier")

	// Counters survive for in-process snapshots.
	assert.Equal(t, 1, r.results)
}
