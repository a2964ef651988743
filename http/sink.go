package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"tarantula"

	"github.com/google/uuid"
)

// DefaultDeliveryRetries is how many times a failed callback POST is retried
// before the result is given up on.
const DefaultDeliveryRetries = 2

// deliveryRetryBackoff is the pause between delivery attempts.
const deliveryRetryBackoff = 500 * time.Millisecond

// Compile-time interface verification.
var _ tarantula.ResultSink = (*CallbackSink)(nil)

// CallbackSink posts page results and run-completion events as JSON to each
// run's configured callback URL. Runs without a callback URL are a no-op.
// Failed deliveries are retried a bounded number of times and then dropped;
// errors never propagate into crawl control flow.
type CallbackSink struct {
	client  *http.Client
	retries int
}

// SinkOption configures a CallbackSink.
type SinkOption func(*CallbackSink)

// WithSinkClient sets the HTTP client used for callback requests.
func WithSinkClient(client *http.Client) SinkOption {
	return func(s *CallbackSink) { s.client = client }
}

// WithRetries sets how many times a failed delivery is retried.
func WithRetries(n int) SinkOption {
	return func(s *CallbackSink) { s.retries = n }
}

// NewCallbackSink creates a CallbackSink.
func NewCallbackSink(opts ...SinkOption) *CallbackSink {
	s := &CallbackSink{
		retries: DefaultDeliveryRetries,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = &http.Client{Timeout: 10 * time.Second}
	}
	return s
}

// Deliver posts one page result to the run's callback URL.
func (s *CallbackSink) Deliver(ctx context.Context, cfg tarantula.RunConfig, result *tarantula.PageResult) error {
	if cfg.CallbackURL == "" {
		return nil
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return tarantula.Errorf(tarantula.EINTERNAL, "encode page result: %v", err)
	}
	return s.post(ctx, cfg, payload)
}

// completeEvent is the terminal payload posted once per run.
type completeEvent struct {
	RunID uuid.UUID `json:"run_id"`
	Event string    `json:"event"`
}

// Complete posts the run-completion event to the run's callback URL.
func (s *CallbackSink) Complete(ctx context.Context, cfg tarantula.RunConfig, runID uuid.UUID) error {
	if cfg.CallbackURL == "" {
		return nil
	}
	payload, err := json.Marshal(completeEvent{RunID: runID, Event: "complete"})
	if err != nil {
		return tarantula.Errorf(tarantula.EINTERNAL, "encode completion event: %v", err)
	}
	return s.post(ctx, cfg, payload)
}

// post performs the callback request with bounded retries.
func (s *CallbackSink) post(ctx context.Context, cfg tarantula.RunConfig, payload []byte) error {
	var lastErr error
	for attempt := 0; attempt <= s.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(deliveryRetryBackoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		lastErr = s.postOnce(ctx, cfg, payload)
		if lastErr == nil {
			return nil
		}
	}
	return lastErr
}

func (s *CallbackSink) postOnce(ctx context.Context, cfg tarantula.RunConfig, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.CallbackURL, bytes.NewReader(payload))
	if err != nil {
		return tarantula.Errorf(tarantula.EINVALID, "build callback request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.UserAgent != "" {
		req.Header.Set("User-Agent", cfg.UserAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return tarantula.Errorf(tarantula.EUNAVAILABLE, "callback request failed: %v", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tarantula.Errorf(tarantula.EUNAVAILABLE, "callback returned status %d", resp.StatusCode)
	}
	return nil
}
