package http_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tarantula"
	tarhttp "tarantula/http"
)

func TestCallbackSink_posts_page_results_as_JSON(t *testing.T) {
	t.Parallel()

	received := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "tarantula", r.Header.Get("User-Agent"))

		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
	}))
	defer srv.Close()

	runID := uuid.New()
	result := &tarantula.PageResult{
		ID:     uuid.New(),
		RunID:  runID,
		URL:    "https://example.com/",
		Status: tarantula.StatusOK,
		Depth:  2,
	}

	sink := tarhttp.NewCallbackSink()
	err := sink.Deliver(context.Background(), tarantula.RunConfig{
		CallbackURL: srv.URL,
		UserAgent:   "tarantula",
	}, result)
	require.NoError(t, err)

	payload := <-received
	assert.Equal(t, "https://example.com/", payload["url"])
	assert.Equal(t, string(tarantula.StatusOK), payload["status"])
	assert.Equal(t, runID.String(), payload["run_id"])
	assert.Equal(t, float64(2), payload["depth"])
}

func TestCallbackSink_posts_completion_event(t *testing.T) {
	t.Parallel()

	received := make(chan map[string]any, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		received <- payload
	}))
	defer srv.Close()

	runID := uuid.New()
	sink := tarhttp.NewCallbackSink()
	err := sink.Complete(context.Background(), tarantula.RunConfig{CallbackURL: srv.URL}, runID)
	require.NoError(t, err)

	payload := <-received
	assert.Equal(t, "complete", payload["event"])
	assert.Equal(t, runID.String(), payload["run_id"])
}

func TestCallbackSink_is_noop_without_callback_URL(t *testing.T) {
	t.Parallel()

	sink := tarhttp.NewCallbackSink()
	assert.NoError(t, sink.Deliver(context.Background(), tarantula.RunConfig{}, &tarantula.PageResult{}))
	assert.NoError(t, sink.Complete(context.Background(), tarantula.RunConfig{}, uuid.New()))
}

func TestCallbackSink_retries_failed_deliveries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
	}))
	defer srv.Close()

	sink := tarhttp.NewCallbackSink(tarhttp.WithRetries(2))
	err := sink.Deliver(context.Background(), tarantula.RunConfig{CallbackURL: srv.URL}, &tarantula.PageResult{})
	require.NoError(t, err, "third attempt succeeds within two retries")
	assert.Equal(t, int64(3), calls.Load())
}

func TestCallbackSink_gives_up_after_retry_budget(t *testing.T) {
	t.Parallel()

	var calls atomic.Int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	sink := tarhttp.NewCallbackSink(tarhttp.WithRetries(1))
	err := sink.Deliver(context.Background(), tarantula.RunConfig{CallbackURL: srv.URL}, &tarantula.PageResult{})
	require.Error(t, err)
	assert.Equal(t, tarantula.EUNAVAILABLE, tarantula.ErrorCode(err))
	assert.Equal(t, int64(2), calls.Load())
}

func TestCallbackSink_respects_context_between_retries(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	sink := tarhttp.NewCallbackSink(tarhttp.WithRetries(5))
	start := time.Now()
	err := sink.Deliver(ctx, tarantula.RunConfig{CallbackURL: srv.URL}, &tarantula.PageResult{})
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "cancellation should cut the retry loop short")
}
