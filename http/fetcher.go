// Package http provides the network-facing adapters: the page fetcher and
// the result callback sink.
package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"tarantula"

	"golang.org/x/net/html/charset"
)

// DefaultFetchTimeout is the default timeout for page fetches.
const DefaultFetchTimeout = 10 * time.Second

// DefaultMaxBodyBytes caps how much of a response body is read.
const DefaultMaxBodyBytes = 10 * 1024 * 1024

// Sentinel errors surfaced through http.Client's CheckRedirect.
var (
	errRedirectsDisabled = errors.New("redirects disabled for this run")
	errTooManyRedirects  = errors.New("maximum redirect count exceeded")
)

// Compile-time interface verification.
var _ tarantula.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves pages over HTTP. It records every redirect hop, enforces
// the per-request redirect cap, decodes non-UTF-8 bodies, and classifies
// transport failures so the caller never sees an unclassified error.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the per-request timeout. Defaults to DefaultFetchTimeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.timeout = d }
}

// WithMaxBodyBytes caps response body reads.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) { f.maxBodyBytes = n }
}

// WithTransport sets the underlying round tripper, mostly for tests.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Fetcher) { f.client.Transport = rt }
}

// NewFetcher creates an HTTP page fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:       &http.Client{},
		timeout:      DefaultFetchTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client.Timeout = f.timeout
	return f
}

// Fetch retrieves req.URL, following redirects up to the request's cap.
// Any received HTTP response produces a FetchResult; transport failures
// return a classified FetchError.
func (f *Fetcher) Fetch(ctx context.Context, req tarantula.FetchRequest) (*tarantula.FetchResult, error) {
	var redirects []tarantula.Redirect

	// Per-request client copy so the redirect policy can close over this
	// fetch's hop chain. The transport, and with it the connection pool,
	// is shared.
	client := *f.client
	client.CheckRedirect = func(next *http.Request, via []*http.Request) error {
		prev := via[len(via)-1]
		status := 0
		if next.Response != nil {
			status = next.Response.StatusCode
		}
		redirects = append(redirects, tarantula.Redirect{
			Source:      prev.URL.String(),
			Destination: next.URL.String(),
			StatusCode:  status,
		})
		if req.IgnoreRedirects {
			return errRedirectsDisabled
		}
		if len(via) > req.MaximumRedirects {
			return errTooManyRedirects
		}
		return nil
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL.String(), nil)
	if err != nil {
		return nil, &tarantula.FetchError{
			Status: tarantula.StatusConnectionError,
			URL:    req.URL.String(),
			Err:    err,
		}
	}
	if req.UserAgent != "" {
		httpReq.Header.Set("User-Agent", req.UserAgent)
	}

	start := time.Now()
	resp, err := client.Do(httpReq)
	if err != nil {
		return nil, classify(req.URL.String(), err)
	}
	defer resp.Body.Close()

	reader, err := charset.NewReader(io.LimitReader(resp.Body, f.maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, classify(req.URL.String(), err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, classify(req.URL.String(), err)
	}

	return &tarantula.FetchResult{
		FinalURL:   resp.Request.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       string(body),
		Redirects:  redirects,
		Duration:   time.Since(start),
	}, nil
}

// classify maps a transport error to its FetchError kind.
func classify(url string, err error) *tarantula.FetchError {
	status := tarantula.StatusConnectionError
	switch {
	case errors.Is(err, errRedirectsDisabled), errors.Is(err, errTooManyRedirects):
		status = tarantula.StatusRedirectLimit
	case isTimeout(err):
		status = tarantula.StatusTimeout
	}
	return &tarantula.FetchError{Status: status, URL: url, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}
